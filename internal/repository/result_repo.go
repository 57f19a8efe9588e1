package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result is the stored outcome of processing one email: the parsed event,
// the acknowledgment and the quote, keyed by the content-hash email id.
// Its presence is what makes reprocessing idempotent.
type Result struct {
	EmailID    string          `json:"email_id"`
	Status     string          `json:"status"`
	Total      float64         `json:"total"`
	Currency   string          `json:"currency"`
	SourceFile string          `json:"source_file"`
	EventJSON  json.RawMessage `json:"event"`
	AckJSON    json.RawMessage `json:"acknowledgment"`
	QuoteJSON  json.RawMessage `json:"quote"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ResultRepository persists processing results in sqlite.
type ResultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a processing result. The email id is the primary key; a
// second insert for the same id is a programming error surfaced as a
// constraint failure, not silently overwritten.
func (r *ResultRepository) Create(ctx context.Context, result *Result) error {
	query := `
		INSERT INTO results (
			email_id, status, total, currency, source_file,
			event_json, ack_json, quote_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		result.EmailID,
		result.Status,
		result.Total,
		result.Currency,
		result.SourceFile,
		string(result.EventJSON),
		string(result.AckJSON),
		string(result.QuoteJSON),
	)
	if err != nil {
		r.logger.Error("Failed to create result",
			zap.String("email_id", result.EmailID),
			zap.Error(err))
		return fmt.Errorf("failed to create result: %w", err)
	}

	return nil
}

// Exists reports whether a result is already stored for the email id.
func (r *ResultRepository) Exists(ctx context.Context, emailID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM results WHERE email_id = ?", emailID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check result existence: %w", err)
	}
	return true, nil
}

// GetByID retrieves a result by email id. Returns nil when not found.
func (r *ResultRepository) GetByID(ctx context.Context, emailID string) (*Result, error) {
	query := `
		SELECT email_id, status, total, currency, source_file,
			event_json, ack_json, quote_json, created_at
		FROM results
		WHERE email_id = ?
	`

	result, err := scanResult(r.db.QueryRowContext(ctx, query, emailID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get result", zap.String("email_id", emailID), zap.Error(err))
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// List returns the most recent results, newest first.
func (r *ResultRepository) List(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT email_id, status, total, currency, source_file,
			event_json, ack_json, quote_json, created_at
		FROM results
		ORDER BY created_at DESC, email_id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list results", zap.Error(err))
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*Result, error) {
	var result Result
	var eventJSON, ackJSON, quoteJSON string

	err := row.Scan(
		&result.EmailID,
		&result.Status,
		&result.Total,
		&result.Currency,
		&result.SourceFile,
		&eventJSON,
		&ackJSON,
		&quoteJSON,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result.EventJSON = json.RawMessage(eventJSON)
	result.AckJSON = json.RawMessage(ackJSON)
	result.QuoteJSON = json.RawMessage(quoteJSON)
	return &result, nil
}
