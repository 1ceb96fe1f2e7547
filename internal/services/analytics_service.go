package services

import (
	"time"

	"propintel/internal/config"
	"propintel/internal/database"
	"propintel/internal/models"
)

// AnalyticsService aggregates usage statistics for the stats endpoint
type AnalyticsService struct {
	cfg       *config.Config
	db        *database.DB
	rss       *RSSService
	startedAt time.Time
}

// NewAnalyticsService creates the analytics aggregator. db may be nil when
// persistence is unavailable; stats then cover only live components.
func NewAnalyticsService(cfg *config.Config, db *database.DB, rss *RSSService) *AnalyticsService {
	return &AnalyticsService{
		cfg:       cfg,
		db:        db,
		rss:       rss,
		startedAt: time.Now(),
	}
}

// Uptime returns how long the server has been running
func (s *AnalyticsService) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Snapshot collects database, feed, and provider statistics in one pass
func (s *AnalyticsService) Snapshot() map[string]interface{} {
	snapshot := map[string]interface{}{
		"uptime_seconds":   int64(s.Uptime().Seconds()),
		"usable_providers": config.EnabledServices(s.cfg),
	}

	if s.db != nil {
		if stats, err := s.db.Stats(); err == nil {
			snapshot["queries"] = stats
		} else {
			snapshot["queries_error"] = err.Error()
		}
	} else {
		snapshot["queries"] = &models.DatabaseStats{}
	}

	if s.rss != nil {
		active, total := s.rss.ActiveFeedCount()
		snapshot["feeds"] = map[string]interface{}{
			"active": active,
			"total":  total,
		}
	}

	return snapshot
}
