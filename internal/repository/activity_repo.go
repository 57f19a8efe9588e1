package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ActivityEntry is one line of the append-only processing timeline.
type ActivityEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	EmailID   string         `json:"email_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActivityStats summarizes the activity log.
type ActivityStats struct {
	TotalEntries int            `json:"total_entries"`
	Actions      map[string]int `json:"actions"`
	UniqueEmails int            `json:"unique_emails"`
	Errors       int            `json:"errors"`
}

// ActivityRepository persists the activity timeline in sqlite. Entries are
// append-only; there is no update or delete path.
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one activity entry.
func (r *ActivityRepository) Append(ctx context.Context, entry ActivityEntry) error {
	var details sql.NullString
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal activity details: %w", err)
		}
		details = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity (action, email_id, message, details) VALUES (?, ?, ?, ?)",
		entry.Action, entry.EmailID, entry.Message, details,
	)
	if err != nil {
		r.logger.Error("Failed to append activity entry",
			zap.String("action", entry.Action),
			zap.String("email_id", entry.EmailID),
			zap.Error(err))
		return fmt.Errorf("failed to append activity entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.query(ctx,
		"SELECT id, action, email_id, message, details, created_at FROM activity ORDER BY id DESC LIMIT ?",
		limit)
}

// ByEmail returns every entry recorded for one email id, oldest first.
func (r *ActivityRepository) ByEmail(ctx context.Context, emailID string) ([]ActivityEntry, error) {
	return r.query(ctx,
		"SELECT id, action, email_id, message, details, created_at FROM activity WHERE email_id = ? ORDER BY id",
		emailID)
}

// ByAction returns every entry with the given action, oldest first.
func (r *ActivityRepository) ByAction(ctx context.Context, action string) ([]ActivityEntry, error) {
	return r.query(ctx,
		"SELECT id, action, email_id, message, details, created_at FROM activity WHERE action = ? ORDER BY id",
		action)
}

// Stats aggregates entry counts by action plus unique email and error
// totals.
func (r *ActivityRepository) Stats(ctx context.Context) (*ActivityStats, error) {
	stats := &ActivityStats{Actions: make(map[string]int)}

	rows, err := r.db.QueryContext(ctx,
		"SELECT action, COUNT(*) FROM activity GROUP BY action")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity stats: %w", err)
		}
		stats.Actions[action] = count
		stats.TotalEntries += count
		if action == "error" {
			stats.Errors = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT email_id) FROM activity").Scan(&stats.UniqueEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique emails: %w", err)
	}

	return stats, nil
}

func (r *ActivityRepository) query(ctx context.Context, query string, args ...any) ([]ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query activity", zap.Error(err))
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.EmailID, &entry.Message, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				// Details are advisory; a corrupt blob should not hide the entry.
				entry.Details = nil
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
