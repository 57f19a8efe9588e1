package export

import (
	"context"
	"fmt"

	"github.com/acmecorp/quote-workflow/internal/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// exportLimit caps how many quotes one workbook carries.
const exportLimit = 10000

// Exporter writes the stored quote ledger to an Excel workbook for the
// sales team.
type Exporter struct {
	results *repository.ResultRepository
	logger  *zap.Logger
}

// NewExporter creates a new quote exporter
func NewExporter(results *repository.ResultRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		results: results,
		logger:  logger,
	}
}

// Export writes every stored quote to outputPath as a single-sheet
// workbook, newest first, and returns the number of rows written.
func (e *Exporter) Export(ctx context.Context, outputPath string) (int, error) {
	results, err := e.results.List(ctx, exportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load quotes for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headers := []string{"Email ID", "Status", "Source File", "Total", "Currency", "Created At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return 0, fmt.Errorf("failed to compute header cell: %w", err)
		}
		e.setCell(f, sheet, cell, header)
	}

	for row, result := range results {
		values := []any{
			result.EmailID,
			result.Status,
			result.SourceFile,
			result.Total,
			result.Currency,
			result.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return 0, fmt.Errorf("failed to compute cell: %w", err)
			}
			e.setCell(f, sheet, cell, value)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Quote ledger exported",
		zap.String("output_path", outputPath),
		zap.Int("quotes", len(results)))

	return len(results), nil
}

// setCell sets a cell value, logging instead of failing: one broken cell
// should not abort a whole export.
func (e *Exporter) setCell(f *excelize.File, sheet, cell string, value any) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
