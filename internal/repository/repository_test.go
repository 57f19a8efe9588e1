package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/acmecorp/quote-workflow/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations(filepath.Join("..", "..", "migrations")))
	return db
}

func testResult(emailID, status string, total float64) *Result {
	return &Result{
		EmailID:    emailID,
		Status:     status,
		Total:      total,
		Currency:   "USD",
		SourceFile: "inbox/" + emailID + ".txt",
		EventJSON:  json.RawMessage(`{"email_id":"` + emailID + `"}`),
		AckJSON:    json.RawMessage(`{"email_id":"` + emailID + `"}`),
		QuoteJSON:  json.RawMessage(`{"email_id":"` + emailID + `"}`),
	}
}

func TestResultRepositoryCreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testResult("abc12345", "complete", 260.06)))

	got, err := repo.GetByID(ctx, "abc12345")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc12345", got.EmailID)
	assert.Equal(t, "complete", got.Status)
	assert.Equal(t, 260.06, got.Total)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "inbox/abc12345.txt", got.SourceFile)
	assert.JSONEq(t, `{"email_id":"abc12345"}`, string(got.QuoteJSON))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestResultRepositoryGetMissingReturnsNil(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultRepositoryDuplicateCreateFails(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testResult("abc12345", "complete", 100)))
	err := repo.Create(ctx, testResult("abc12345", "pending", 0))
	assert.Error(t, err)
}

func TestResultRepositoryExists(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "abc12345")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, testResult("abc12345", "complete", 100)))

	exists, err = repo.Exists(ctx, "abc12345")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResultRepositoryList(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	for _, id := range []string{"aaa11111", "bbb22222", "ccc33333"} {
		require.NoError(t, repo.Create(ctx, testResult(id, "complete", 50)))
	}

	results, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ccc33333", results[0].EmailID)
	assert.Equal(t, "bbb22222", results[1].EmailID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestActivityRepositoryAppendAndQuery(t *testing.T) {
	db := setupDB(t)
	repo := NewActivityRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	entries := []ActivityEntry{
		{Action: "start", Message: "Processing inbox"},
		{Action: "parse", EmailID: "abc12345", Message: "Parsed email", Details: map[string]any{"products": float64(2)}},
		{Action: "quote", EmailID: "abc12345", Message: "Quote generated"},
		{Action: "error", EmailID: "def67890", Message: "Unreadable file"},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Append(ctx, entry))
	}

	t.Run("recent is newest first and limited", func(t *testing.T) {
		recent, err := repo.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "error", recent[0].Action)
		assert.Equal(t, "quote", recent[1].Action)
	})

	t.Run("by email is oldest first", func(t *testing.T) {
		byEmail, err := repo.ByEmail(ctx, "abc12345")
		require.NoError(t, err)
		require.Len(t, byEmail, 2)
		assert.Equal(t, "parse", byEmail[0].Action)
		assert.Equal(t, "quote", byEmail[1].Action)
	})

	t.Run("by action", func(t *testing.T) {
		errorsOnly, err := repo.ByAction(ctx, "error")
		require.NoError(t, err)
		require.Len(t, errorsOnly, 1)
		assert.Equal(t, "def67890", errorsOnly[0].EmailID)
	})

	t.Run("details round-trip", func(t *testing.T) {
		byEmail, err := repo.ByEmail(ctx, "abc12345")
		require.NoError(t, err)
		require.NotEmpty(t, byEmail)
		assert.Equal(t, map[string]any{"products": float64(2)}, byEmail[0].Details)
		assert.Nil(t, byEmail[1].Details)
	})
}

func TestActivityRepositoryStats(t *testing.T) {
	db := setupDB(t)
	repo := NewActivityRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	for _, entry := range []ActivityEntry{
		{Action: "parse", EmailID: "a1"},
		{Action: "parse", EmailID: "a2"},
		{Action: "quote", EmailID: "a1"},
		{Action: "error", EmailID: "a3"},
	} {
		require.NoError(t, repo.Append(ctx, entry))
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, map[string]int{"parse": 2, "quote": 1, "error": 1}, stats.Actions)
	assert.Equal(t, 3, stats.UniqueEmails)
	assert.Equal(t, 1, stats.Errors)
}
