package export

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/acmecorp/quote-workflow/internal/repository"
	"github.com/acmecorp/quote-workflow/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func setupExporter(t *testing.T) (*Exporter, *repository.ResultRepository) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations(filepath.Join("..", "..", "migrations")))

	results := repository.NewResultRepository(db.DB, logger)
	return NewExporter(results, logger), results
}

func seed(t *testing.T, results *repository.ResultRepository, emailID, status string, total float64) {
	t.Helper()
	require.NoError(t, results.Create(context.Background(), &repository.Result{
		EmailID:    emailID,
		Status:     status,
		Total:      total,
		Currency:   "USD",
		SourceFile: emailID + ".txt",
		EventJSON:  json.RawMessage(`{}`),
		AckJSON:    json.RawMessage(`{}`),
		QuoteJSON:  json.RawMessage(`{}`),
	}))
}

func TestExport(t *testing.T) {
	exporter, results := setupExporter(t)
	seed(t, results, "aaa11111", "complete", 260.06)
	seed(t, results, "bbb22222", "pending", 0)

	outputPath := filepath.Join(t.TempDir(), "quotes.xlsx")
	count, err := exporter.Export(context.Background(), outputPath)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Email ID", "Status", "Source File", "Total", "Currency", "Created At"}, rows[0])

	// Newest first: the second insert leads.
	assert.Equal(t, "bbb22222", rows[1][0])
	assert.Equal(t, "pending", rows[1][1])
	assert.Equal(t, "aaa11111", rows[2][0])
	assert.Equal(t, "complete", rows[2][1])
	assert.Equal(t, "260.06", rows[2][3])
	assert.Equal(t, "USD", rows[2][4])
}

func TestExportEmptyLedger(t *testing.T) {
	exporter, _ := setupExporter(t)

	outputPath := filepath.Join(t.TempDir(), "quotes.xlsx")
	count, err := exporter.Export(context.Background(), outputPath)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
