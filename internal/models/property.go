package models

import "time"

// AnalyzeRequest is the body for POST /api/property/analyze
type AnalyzeRequest struct {
	Question       string `json:"question"`
	IncludeDetails bool   `json:"include_details,omitempty"`
}

// ProcessingStages reports which stages of the analysis pipeline succeeded
type ProcessingStages struct {
	RSSDataFetched   bool   `json:"rss_data_fetched"`
	ClaudeSuccess    bool   `json:"claude_success"`
	GeminiSuccess    bool   `json:"gemini_success"`
	ClaudeModel      string `json:"claude_model,omitempty"`
	GeminiModel      string `json:"gemini_model,omitempty"`
	DataSourcesCount int    `json:"data_sources_count"`
	Error            string `json:"error,omitempty"`
}

// DataSource describes one piece of evidence fed into the analysis
type DataSource struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Type      string `json:"type"` // "rss_news" or "fallback"
	Relevance string `json:"relevance"`
}

// AnalysisResult is the outcome of the full multi-LLM analysis pipeline
type AnalysisResult struct {
	Success      bool             `json:"success"`
	Question     string           `json:"question"`
	QuestionType string           `json:"question_type"`
	FinalAnswer  string           `json:"final_answer"`
	Stages       ProcessingStages `json:"processing_stages"`
	ClaudeResult *LLMResult       `json:"claude_result,omitempty"`
	GeminiResult *LLMResult       `json:"gemini_result,omitempty"`
	DataSources  []DataSource     `json:"data_sources,omitempty"`
	Cached       bool             `json:"cached,omitempty"`
}

// QueryRecord is a stored analysis query
type QueryRecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	QuestionType   string    `json:"question_type"`
	ProcessingTime float64   `json:"processing_time"` // seconds
	Success        bool      `json:"success"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuestionEntry is a preset or popular question exposed by the questions endpoint
type QuestionEntry struct {
	Question string `json:"question"`
	Type     string `json:"type"` // "preset" or "popular"
	Count    int    `json:"count"`
}

// DatabaseStats summarizes the query history store
type DatabaseStats struct {
	TotalQueries      int       `json:"total_queries"`
	SuccessfulQueries int       `json:"successful_queries"`
	SuccessRate       float64   `json:"success_rate"`
	AvgProcessingTime float64   `json:"avg_processing_time"`
	LastQueryAt       time.Time `json:"last_query_at,omitempty"`
}
