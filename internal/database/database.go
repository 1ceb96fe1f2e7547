package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"propintel/internal/models"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens the SQLite query-history database at the given path
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time; keep the pool small
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Initialize creates all required tables
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		question_type TEXT NOT NULL DEFAULT 'custom',
		processing_time REAL NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_queries_question ON queries(question);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("✅ Database initialized successfully")
	return nil
}

// StoreQuery persists a completed analysis and returns its id
func (db *DB) StoreQuery(question, answer, questionType string, processingTime float64, success bool) (string, error) {
	id := uuid.New().String()

	_, err := db.Exec(
		`INSERT INTO queries (id, question, answer, question_type, processing_time, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, question, answer, questionType, processingTime, boolToInt(success), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store query: %w", err)
	}

	return id, nil
}

// History returns the most recent queries, newest first
func (db *DB) History(limit, offset int) ([]models.QueryRecord, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := db.Query(
		`SELECT id, question, answer, question_type, processing_time, success, created_at
		 FROM queries ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var success int
		if err := rows.Scan(&r.ID, &r.Question, &r.Answer, &r.QuestionType, &r.ProcessingTime, &success, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query row: %w", err)
		}
		r.Success = success != 0
		records = append(records, r)
	}

	return records, rows.Err()
}

// PopularQuestions returns the most frequently asked questions
func (db *DB) PopularQuestions(limit int) ([]models.QuestionEntry, error) {
	rows, err := db.Query(
		`SELECT question, COUNT(*) as count FROM queries
		 GROUP BY question ORDER BY count DESC, MAX(created_at) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular questions: %w", err)
	}
	defer rows.Close()

	var entries []models.QuestionEntry
	for rows.Next() {
		var e models.QuestionEntry
		if err := rows.Scan(&e.Question, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		e.Type = "popular"
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Stats aggregates query history statistics for the stats endpoint
func (db *DB) Stats() (*models.DatabaseStats, error) {
	stats := &models.DatabaseStats{}

	var lastQuery sql.NullTime
	var avgTime sql.NullFloat64
	err := db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(processing_time), 0), MAX(created_at)
		 FROM queries`,
	).Scan(&stats.TotalQueries, &stats.SuccessfulQueries, &avgTime, &lastQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	stats.AvgProcessingTime = avgTime.Float64
	if lastQuery.Valid {
		stats.LastQueryAt = lastQuery.Time
	}
	if stats.TotalQueries > 0 {
		stats.SuccessRate = float64(stats.SuccessfulQueries) / float64(stats.TotalQueries)
	}

	return stats, nil
}

// ClearAll removes every stored query and returns how many were deleted
func (db *DB) ClearAll() (int64, error) {
	result, err := db.Exec(`DELETE FROM queries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear queries: %w", err)
	}
	return result.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
