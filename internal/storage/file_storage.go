package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Subdirectories of the artifact store, one per record kind.
const (
	EventsDir = "events"
	OutboxDir = "outbox"
	QuotesDir = "quotes"
)

// ArtifactStore writes processing artifacts as indented JSON documents
// under a base directory. Paths are validated so a crafted email id can
// never escape the base directory.
type ArtifactStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewArtifactStore creates an artifact store rooted at baseDir.
func NewArtifactStore(baseDir string, logger *zap.Logger) *ArtifactStore {
	return &ArtifactStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// SaveJSON marshals v with indentation and writes it to the relative path.
func (s *ArtifactStore) SaveJSON(ctx context.Context, relPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return s.save(relPath, data)
}

// Read returns the raw content of an artifact.
func (s *ArtifactStore) Read(ctx context.Context, relPath string) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return content, nil
}

// Exists checks whether an artifact is present at the relative path.
func (s *ArtifactStore) Exists(ctx context.Context, relPath string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, relPath))
	return err == nil
}

func (s *ArtifactStore) save(relPath string, content []byte) error {
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create artifact directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write artifact",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("Artifact saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return nil
}

// validatePath checks that the path stays within baseDir.
func (s *ArtifactStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// EventPath returns the artifact path for a parsed event.
func EventPath(emailID string) string {
	return filepath.Join(EventsDir, emailID+".json")
}

// AckPath returns the artifact path for an acknowledgment.
func AckPath(emailID string) string {
	return filepath.Join(OutboxDir, emailID+"_ack.json")
}

// QuotePath returns the artifact path for a quote.
func QuotePath(emailID string) string {
	return filepath.Join(QuotesDir, emailID+".json")
}
