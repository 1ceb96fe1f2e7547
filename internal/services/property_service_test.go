package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"propintel/internal/database"
)

func TestClassifyQuestion(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Which suburb should I buy in?", TypeSuburbAnalysis},
		{"Are there new development approvals in Newstead?", TypeDevelopment},
		{"What are the current market trends?", TypeMarketTrends},
		{"Is rental yield better in units or houses?", TypeInvestment},
		{"How will the Olympics affect transport?", TypeInfrastructure},
		{"Tell me something interesting", TypeGeneral},
	}

	for _, tt := range tests {
		if got := ClassifyQuestion(tt.question); got != tt.want {
			t.Errorf("ClassifyQuestion(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	svc := NewPropertyService(testLLMConfig(), NewLLMService(testLLMConfig(), nil), nil, nil, nil)

	if _, err := svc.Analyze(context.Background(), "   "); err == nil {
		t.Error("Expected error for blank question")
	}

	long := strings.Repeat("a", maxQuestionLen+1)
	if _, err := svc.Analyze(context.Background(), long); err == nil {
		t.Error("Expected error for oversized question")
	}
}

func TestAnalyzeFallbackWhenProvidersDown(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Claude.APIKey = ""
	cfg.Gemini.Enabled = false

	svc := NewPropertyService(cfg, NewLLMService(cfg, nil), nil, nil, nil)

	result, err := svc.Analyze(context.Background(), "What are the market trends in Brisbane?")
	if err != nil {
		t.Fatalf("Degraded analysis must not return an error: %v", err)
	}

	if result.Success {
		t.Error("Expected unsuccessful result with no usable providers")
	}
	if result.FinalAnswer == "" {
		t.Error("Expected a fallback answer")
	}
	if result.QuestionType != TypeMarketTrends {
		t.Errorf("Expected market_trends classification, got %q", result.QuestionType)
	}
	if result.Stages.ClaudeSuccess || result.Stages.GeminiSuccess {
		t.Error("No stage should report success")
	}
}

func TestAnalyzeUsesResearchPassWhenSynthesisFails(t *testing.T) {
	claude := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[{"type":"text","text":"research answer"}]}`)
	}))
	defer claude.Close()

	cfg := testLLMConfig()
	cfg.Gemini.Enabled = false
	cfg.Claude.Models = []string{"claude-only"}

	llm := NewLLMService(cfg, nil)
	llm.anthropicURL = claude.URL

	svc := NewPropertyService(cfg, llm, nil, nil, nil)

	result, err := svc.Analyze(context.Background(), "Which suburbs have good yield?")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.Success {
		t.Fatal("Expected success from the research pass alone")
	}
	if result.FinalAnswer != "research answer" {
		t.Errorf("Expected research pass answer, got %q", result.FinalAnswer)
	}
	if result.Stages.GeminiSuccess {
		t.Error("Synthesis stage should report failure")
	}
}

func TestAnalyzePersistsHistory(t *testing.T) {
	db, err := database.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	cfg := testLLMConfig()
	cfg.Claude.Enabled = false
	cfg.Gemini.Enabled = false

	svc := NewPropertyService(cfg, NewLLMService(cfg, nil), nil, db, nil)

	if _, err := svc.Analyze(context.Background(), "What is happening in Brisbane?"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	history, err := db.History(10, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 stored query, got %d", len(history))
	}
	if history[0].Success {
		t.Error("Degraded analysis should be stored as unsuccessful")
	}
}

func TestPresetQuestions(t *testing.T) {
	cfg := testLLMConfig()
	cfg.PresetQuestions = []string{"Q1?", "Q2?"}

	svc := NewPropertyService(cfg, NewLLMService(cfg, nil), nil, nil, nil)

	entries := svc.PresetQuestions(10)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 preset questions, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Type != "preset" {
			t.Errorf("Expected type preset, got %q", e.Type)
		}
	}

	if got := svc.PresetQuestions(1); len(got) != 1 {
		t.Errorf("Expected limit to cap results, got %d", len(got))
	}
}

func TestClearCachedAnswersWithoutRedis(t *testing.T) {
	cfg := testLLMConfig()
	svc := NewPropertyService(cfg, NewLLMService(cfg, nil), nil, nil, nil)

	if err := svc.ClearCachedAnswers(context.Background()); err != nil {
		t.Errorf("Clearing without Redis must be a no-op, got %v", err)
	}
}

func TestAnswerCacheKeyNormalizes(t *testing.T) {
	a := answerCacheKey("  What   about Brisbane? ")
	b := answerCacheKey("what about brisbane?")
	if a != b {
		t.Error("Whitespace and casing should not change the cache key")
	}

	c := answerCacheKey("what about sydney?")
	if a == c {
		t.Error("Different questions must not collide")
	}
}
