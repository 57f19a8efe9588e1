package workflow

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/acmecorp/quote-workflow/internal/ack"
	"github.com/acmecorp/quote-workflow/internal/activity"
	"github.com/acmecorp/quote-workflow/internal/domain/entity"
	"github.com/acmecorp/quote-workflow/internal/parser"
	"github.com/acmecorp/quote-workflow/internal/quote"
	"github.com/acmecorp/quote-workflow/internal/repository"
	"github.com/acmecorp/quote-workflow/internal/storage"
	"go.uber.org/zap"
)

// Outcome classifies what happened to one inbox file.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// Summary counts the outcomes of one inbox run.
type Summary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Orchestrator drives the pipeline for a batch of inquiry emails: read,
// parse, acknowledge, quote, persist. Emails are processed strictly one at
// a time; a failure in one email is isolated and never stops the batch.
type Orchestrator struct {
	parser   *parser.Parser
	acks     *ack.Generator
	quotes   *quote.Generator
	store    *storage.ArtifactStore
	results  *repository.ResultRepository
	timeline activity.Sink
	logger   *zap.Logger
}

// NewOrchestrator wires the pipeline collaborators together.
func NewOrchestrator(
	p *parser.Parser,
	a *ack.Generator,
	q *quote.Generator,
	store *storage.ArtifactStore,
	results *repository.ResultRepository,
	timeline activity.Sink,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		parser:   p,
		acks:     a,
		quotes:   q,
		store:    store,
		results:  results,
		timeline: timeline,
		logger:   logger,
	}
}

// EmailID derives the stable identifier for an email from its content:
// the first 8 hex characters of the md5 digest. Identical content always
// maps to the same id, which is what makes reprocessing idempotent.
func EmailID(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])[:8]
}

// ProcessInbox processes every .txt file in the inbox directory in
// lexicographic order and returns the outcome counts.
func (o *Orchestrator) ProcessInbox(ctx context.Context, inboxDir string) (*Summary, error) {
	info, err := os.Stat(inboxDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("inbox directory not found: %s", inboxDir)
	}

	files, err := filepath.Glob(filepath.Join(inboxDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan inbox: %w", err)
	}
	sort.Strings(files)

	summary := &Summary{Total: len(files)}
	if len(files) == 0 {
		o.timeline.Log(ctx, entity.ActionInfo, "system", fmt.Sprintf("No .txt files found in %s", inboxDir), nil)
		return summary, nil
	}

	o.timeline.Log(ctx, entity.ActionStart, "system",
		fmt.Sprintf("Processing %d emails from %s", len(files), inboxDir), nil)

	for _, file := range files {
		outcome, err := o.ProcessEmail(ctx, file)
		switch outcome {
		case OutcomeProcessed:
			summary.Processed++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
			o.logger.Warn("Email failed, continuing batch",
				zap.String("file", filepath.Base(file)),
				zap.Error(err))
		}
	}

	o.timeline.Log(ctx, entity.ActionComplete, "system",
		fmt.Sprintf("Workflow complete: %d processed, %d failed, %d skipped",
			summary.Processed, summary.Failed, summary.Skipped), nil)

	return summary, nil
}

// ProcessEmail runs one email through the full pipeline. Reading the source
// file is the only hard failure mode; once content is in hand the parser
// and quote generator are total and the remaining failures are persistence
// errors.
func (o *Orchestrator) ProcessEmail(ctx context.Context, path string) (Outcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		o.timeline.Log(ctx, entity.ActionError, "unknown",
			fmt.Sprintf("Failed to read %s: %v", filepath.Base(path), err), nil)
		return OutcomeFailed, fmt.Errorf("failed to read email: %w", err)
	}

	emailID := EmailID(content)

	exists, err := o.results.Exists(ctx, emailID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed idempotency check: %w", err)
	}
	if exists {
		o.timeline.Log(ctx, entity.ActionSkip, emailID,
			fmt.Sprintf("Already processed: %s", filepath.Base(path)), nil)
		return OutcomeSkipped, nil
	}

	o.timeline.Log(ctx, entity.ActionStart, emailID,
		fmt.Sprintf("Processing: %s", filepath.Base(path)), nil)

	if outcome, err := o.process(ctx, emailID, path, string(content)); err != nil {
		o.timeline.Log(ctx, entity.ActionError, emailID,
			fmt.Sprintf("Failed to process %s: %v", filepath.Base(path), err), nil)
		return outcome, err
	}
	return OutcomeProcessed, nil
}

func (o *Orchestrator) process(ctx context.Context, emailID, path, content string) (Outcome, error) {
	event := o.parser.Parse(content, emailID)
	if err := o.store.SaveJSON(ctx, storage.EventPath(emailID), event); err != nil {
		return OutcomeFailed, err
	}
	o.timeline.Log(ctx, entity.ActionParse, emailID,
		fmt.Sprintf("Extracted %d products", len(event.Products)),
		map[string]any{"gaps": len(event.Gaps)})

	acknowledgment := o.acks.Generate(event)
	if err := o.store.SaveJSON(ctx, storage.AckPath(emailID), acknowledgment); err != nil {
		return OutcomeFailed, err
	}
	o.timeline.Log(ctx, entity.ActionAck, emailID,
		fmt.Sprintf("Generated acknowledgment with %d questions", len(acknowledgment.Questions)), nil)

	q := o.quotes.Generate(event)
	if err := o.store.SaveJSON(ctx, storage.QuotePath(emailID), q); err != nil {
		return OutcomeFailed, err
	}

	if err := o.persistResult(ctx, path, event, acknowledgment, q); err != nil {
		return OutcomeFailed, err
	}

	o.timeline.Log(ctx, entity.ActionQuote, emailID,
		fmt.Sprintf("Generated %s quote: %s %.2f", q.Status, q.Currency, q.Total), nil)

	o.logger.Info("Email processed",
		zap.String("email_id", emailID),
		zap.String("status", q.Status),
		zap.Float64("total", q.Total))

	return OutcomeProcessed, nil
}

func (o *Orchestrator) persistResult(ctx context.Context, path string, event *entity.ParsedEvent, acknowledgment *entity.Acknowledgment, q *entity.Quote) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ackJSON, err := json.Marshal(acknowledgment)
	if err != nil {
		return fmt.Errorf("failed to marshal acknowledgment: %w", err)
	}
	quoteJSON, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	return o.results.Create(ctx, &repository.Result{
		EmailID:    event.EmailID,
		Status:     q.Status,
		Total:      q.Total,
		Currency:   q.Currency,
		SourceFile: filepath.Base(path),
		EventJSON:  eventJSON,
		AckJSON:    ackJSON,
		QuoteJSON:  quoteJSON,
	})
}
