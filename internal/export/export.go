// Package export writes dead-lettered actions to an Excel file for
// manual triage.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"syncq/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Failed actions"

type Exporter struct {
	dir    string
	logger zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// WriteFailedActions saves the given dead letters as an .xlsx file and
// returns its path.
func (e *Exporter) WriteFailedActions(failed []models.FailedAction) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Failed actions as of %s", time.Now().Format("02.01.2006 15:04")))
	_ = f.MergeCell(sheetName, "A1", "G1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"ID", "Type", "Priority", "Retries", "Error", "Created", "Failed"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, fa := range failed {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), fa.Action.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), string(fa.Action.Type))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(fa.Action.Priority))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), fa.Action.RetryCount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), fa.Error)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), fa.Action.CreatedAt.Format("02.01.2006 15:04:05"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), fa.FailedAt.Format("02.01.2006 15:04:05"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "C", 15)
	_ = f.SetColWidth(sheetName, "D", "D", 10)
	_ = f.SetColWidth(sheetName, "E", "E", 50)
	_ = f.SetColWidth(sheetName, "F", "G", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("failed_actions_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(failed)).Msg("failed actions exported")
	return filePath, nil
}
