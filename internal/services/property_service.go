package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"propintel/internal/config"
	"propintel/internal/database"
	"propintel/internal/logging"
	"propintel/internal/models"
)

const (
	answerCacheTTL    = time.Hour
	answerCachePrefix = "propintel:analysis:"
	maxQuestionLen    = 2000
	rssContextMax     = 8
)

// Question type buckets used for routing data sources and history analytics
const (
	TypeSuburbAnalysis = "suburb_analysis"
	TypeDevelopment    = "development"
	TypeMarketTrends   = "market_trends"
	TypeInvestment     = "investment"
	TypeInfrastructure = "infrastructure"
	TypeGeneral        = "general"
)

var questionTypeKeywords = map[string][]string{
	TypeSuburbAnalysis: {"suburb", "area", "location", "where", "which part"},
	TypeDevelopment:    {"development", "construction", "building", "approval", "da ", "planning"},
	TypeMarketTrends:   {"trend", "market", "price", "growth", "forecast", "median"},
	TypeInvestment:     {"invest", "yield", "return", "rental", "cash flow", "capital gain"},
	TypeInfrastructure: {"infrastructure", "transport", "rail", "road", "school", "hospital", "olympics"},
}

// PropertyService orchestrates the multi-stage property analysis pipeline:
// news context gathering, strategic research, and comprehensive synthesis.
type PropertyService struct {
	cfg   *config.Config
	llm   *LLMService
	rss   *RSSService
	db    *database.DB
	redis *RedisService // nil when Redis is not configured
}

// NewPropertyService wires the analysis pipeline. db and redis may be nil;
// the pipeline skips persistence and caching when they are.
func NewPropertyService(cfg *config.Config, llm *LLMService, rss *RSSService, db *database.DB, redis *RedisService) *PropertyService {
	return &PropertyService{
		cfg:   cfg,
		llm:   llm,
		rss:   rss,
		db:    db,
		redis: redis,
	}
}

// ClassifyQuestion buckets a question for data-source routing. The first
// matching bucket wins, checked in a fixed order so classification is stable.
func ClassifyQuestion(question string) string {
	lower := strings.ToLower(question)
	for _, qt := range []string{TypeSuburbAnalysis, TypeDevelopment, TypeMarketTrends, TypeInvestment, TypeInfrastructure} {
		for _, kw := range questionTypeKeywords[qt] {
			if strings.Contains(lower, kw) {
				return qt
			}
		}
	}
	return TypeGeneral
}

// Analyze runs the full pipeline for one question. It never returns an error
// for provider failures; degraded results carry a fallback answer instead.
func (s *PropertyService) Analyze(ctx context.Context, question string) (*models.AnalysisResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if len(question) > maxQuestionLen {
		return nil, fmt.Errorf("question exceeds %d characters", maxQuestionLen)
	}

	queryID := uuid.New().String()
	questionType := ClassifyQuestion(question)
	logger := logging.WithAnalysis(queryID, questionType)

	if m := GetMetrics(); m != nil {
		m.RecordAnalyzeRequest()
	}

	if cached := s.cachedResult(ctx, question); cached != nil {
		logger.Info("Serving analysis from cache")
		return cached, nil
	}

	start := time.Now()
	logger.Info("Starting property analysis", "question_length", len(question))

	result := &models.AnalysisResult{
		Question:     question,
		QuestionType: questionType,
	}

	// Stage 1: gather news context
	sources, rssContext := s.gatherContext(ctx, questionType)
	result.DataSources = sources
	result.Stages.RSSDataFetched = rssContext != ""
	result.Stages.DataSourcesCount = len(sources)

	// Stage 2: strategic research
	claudeResult := s.llm.AnalyzeWithClaude(ctx, question, rssContext)
	result.ClaudeResult = claudeResult
	result.Stages.ClaudeSuccess = claudeResult.Success
	result.Stages.ClaudeModel = claudeResult.ModelUsed

	claudeContext := ""
	if claudeResult.Success {
		claudeContext = claudeResult.Analysis
	} else {
		logger.Warn("Strategic research stage failed", "error", claudeResult.Error)
	}

	// Stage 3: comprehensive synthesis
	geminiResult := s.llm.AnalyzeWithGemini(ctx, question, claudeContext, rssContext)
	result.GeminiResult = geminiResult
	result.Stages.GeminiSuccess = geminiResult.Success
	result.Stages.GeminiModel = geminiResult.ModelUsed

	switch {
	case geminiResult.Success:
		result.Success = true
		result.FinalAnswer = geminiResult.Analysis
	case claudeResult.Success:
		// Synthesis failed but research succeeded; serve the research pass
		result.Success = true
		result.FinalAnswer = claudeResult.Analysis
	default:
		result.Success = false
		result.FinalAnswer = fallbackAnswer(questionType)
		result.Stages.Error = "all text providers failed"
		if m := GetMetrics(); m != nil {
			m.RecordAnalyzeError("all_providers_failed")
		}
	}

	elapsed := time.Since(start).Seconds()
	if m := GetMetrics(); m != nil {
		m.RecordAnalyzeLatency(elapsed)
	}

	logger.Info("Analysis complete",
		"success", result.Success,
		"processing_time", elapsed,
		"data_sources", len(sources),
	)

	s.persist(result, elapsed, logger)
	if result.Success {
		s.cacheResult(ctx, question, result)
	}

	return result, nil
}

// gatherContext pulls recent articles and formats them for the LLM prompts.
// Location-specific questions prefer Brisbane-relevant articles.
func (s *PropertyService) gatherContext(ctx context.Context, questionType string) ([]models.DataSource, string) {
	if s.rss == nil {
		return nil, ""
	}

	var articles []models.Article
	var err error

	if questionType == TypeSuburbAnalysis || questionType == TypeInfrastructure {
		articles, err = s.rss.BrisbaneNews(ctx, rssContextMax)
		if err == nil && len(articles) == 0 {
			articles, err = s.rss.RecentNews(ctx, rssContextMax)
		}
	} else {
		articles, err = s.rss.RecentNews(ctx, rssContextMax)
	}
	if err != nil || len(articles) == 0 {
		return nil, ""
	}

	var sources []models.DataSource
	var b strings.Builder
	b.WriteString("Recent Australian property market news:\n")

	for i, a := range articles {
		relevance := "national"
		if a.BrisbaneRelevant {
			relevance = "brisbane_region"
		}
		sources = append(sources, models.DataSource{
			Source:    a.Source,
			Title:     a.Title,
			Summary:   a.Summary,
			Link:      a.Link,
			Published: a.Published.Format(time.RFC3339),
			Type:      "rss_news",
			Relevance: relevance,
		})
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, a.Source, a.Title, a.Summary)
	}

	return sources, b.String()
}

func (s *PropertyService) persist(result *models.AnalysisResult, elapsed float64, logger *slog.Logger) {
	if s.db == nil {
		return
	}
	if _, err := s.db.StoreQuery(result.Question, result.FinalAnswer, result.QuestionType, elapsed, result.Success); err != nil {
		logger.Warn("Failed to store query history", "error", err)
	}
}

func (s *PropertyService) cachedResult(ctx context.Context, question string) *models.AnalysisResult {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, answerCacheKey(question))
	if err != nil {
		if !IsNotFound(err) {
			slog.Warn("Answer cache read failed", "error", err)
		}
		return nil
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	result.Cached = true
	return &result
}

func (s *PropertyService) cacheResult(ctx context.Context, question string, result *models.AnalysisResult) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, answerCacheKey(question), raw, answerCacheTTL)
}

// ClearCachedAnswers drops every cached analysis result. Called when the
// query history is reset so stale answers don't outlive their records.
func (s *PropertyService) ClearCachedAnswers(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.DeleteByPrefix(ctx, answerCachePrefix)
}

// answerCacheKey normalizes the question so trivial whitespace and casing
// differences share a cache entry.
func answerCacheKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return answerCachePrefix + hex.EncodeToString(sum[:])
}

// fallbackAnswer keeps the endpoint useful when every provider is down
func fallbackAnswer(questionType string) string {
	base := "Our analysis providers are temporarily unavailable, so we can't generate a live answer right now. "
	switch questionType {
	case TypeSuburbAnalysis:
		return base + "For suburb research, check recent sales data on the major property portals and your state valuer-general's records."
	case TypeDevelopment:
		return base + "For development activity, Brisbane City Council's development.i portal lists current applications and approvals."
	case TypeMarketTrends:
		return base + "For market trends, the quarterly reports from CoreLogic and the ABS residential property price index are good starting points."
	case TypeInvestment:
		return base + "For investment questions, compare rental yields and vacancy rates from SQM Research before committing."
	case TypeInfrastructure:
		return base + "For infrastructure impacts, the Queensland Government's infrastructure pipeline and Brisbane 2032 delivery plans are the primary sources."
	default:
		return base + "Please try again in a few minutes."
	}
}

// PresetQuestions returns the configured starter questions merged with the
// most popular historical ones.
func (s *PropertyService) PresetQuestions(limit int) []models.QuestionEntry {
	entries := make([]models.QuestionEntry, 0, len(s.cfg.PresetQuestions))
	seen := make(map[string]bool)

	for _, q := range s.cfg.PresetQuestions {
		entries = append(entries, models.QuestionEntry{Question: q, Type: "preset"})
		seen[strings.ToLower(q)] = true
	}

	if s.db != nil {
		popular, err := s.db.PopularQuestions(limit)
		if err == nil {
			for _, p := range popular {
				if seen[strings.ToLower(p.Question)] {
					continue
				}
				p.Type = "popular"
				entries = append(entries, p)
			}
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
