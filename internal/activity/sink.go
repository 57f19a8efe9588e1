// Package activity provides the append-only processing timeline as an
// explicit collaborator. The orchestrator receives a Sink instead of
// reaching for ambient global state, which keeps the parsing and quoting
// core pure functions of their inputs.
package activity

import (
	"context"

	"github.com/acmecorp/quote-workflow/internal/repository"
	"go.uber.org/zap"
)

// Sink records one timeline entry per call. Implementations must be
// append-only; recording failures are the sink's problem to report and must
// never abort the email being processed.
type Sink interface {
	Log(ctx context.Context, action, emailID, message string, details map[string]any)
}

// repositorySink appends entries to the sqlite activity log.
type repositorySink struct {
	repo   *repository.ActivityRepository
	logger *zap.Logger
}

// NewRepositorySink creates a Sink backed by the activity repository.
func NewRepositorySink(repo *repository.ActivityRepository, logger *zap.Logger) Sink {
	return &repositorySink{repo: repo, logger: logger}
}

func (s *repositorySink) Log(ctx context.Context, action, emailID, message string, details map[string]any) {
	entry := repository.ActivityEntry{
		Action:  action,
		EmailID: emailID,
		Message: message,
		Details: details,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		// The timeline is best-effort; losing an entry must not fail the batch.
		s.logger.Warn("Dropped activity entry",
			zap.String("action", action),
			zap.String("email_id", emailID),
			zap.Error(err))
	}
}

// nopSink discards every entry. Useful in tests.
type nopSink struct{}

// NewNopSink returns a Sink that records nothing.
func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Log(context.Context, string, string, string, map[string]any) {}
