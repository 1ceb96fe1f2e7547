package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (APP_ENV=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("APP_ENV"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithAnalysis returns a logger with analysis request fields attached.
// Use this for all logging within a single analyze pipeline run.
func WithAnalysis(queryID, questionType string) *slog.Logger {
	return slog.With(
		"query_id", queryID,
		"question_type", questionType,
	)
}

// WithProvider returns a logger scoped to a specific provider call.
func WithProvider(logger *slog.Logger, provider, model string) *slog.Logger {
	return logger.With(
		"provider", provider,
		"model", model,
	)
}
