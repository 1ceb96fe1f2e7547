package models

import "time"

// Article is a single item parsed from a property news feed
type Article struct {
	Source           string    `json:"source"`
	Title            string    `json:"title"`
	Summary          string    `json:"summary"`
	Link             string    `json:"link"`
	Published        time.Time `json:"published"`
	BrisbaneRelevant bool      `json:"brisbane_relevant"`
}

// FeedStatus reports the last fetch outcome for one configured feed
type FeedStatus struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Active       bool      `json:"active"`
	ArticleCount int       `json:"article_count"`
	LastFetched  time.Time `json:"last_fetched,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}
