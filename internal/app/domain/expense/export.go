package expense

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
)

const exportSheetName = "Expenses"

var exportHeader = []string{"Employee Name", "Description", "Amount", "Date", "Status"}

// ExportExcel renders every expense into an xlsx workbook, date ascending,
// with the same columns the admin table shows.
func (s *ServiceImpl) ExportExcel(ctx context.Context) ([]byte, error) {
	start := time.Now()
	l := s.logger.With(zap.String("method", "ExportExcel"))

	expenses, err := s.GetAllExpenses(ctx, "")
	if err != nil {
		return nil, err
	}

	data, err := buildWorkbook(expenses)
	if err != nil {
		l.Error("Failed to build workbook", zap.Error(err))
		return nil, err
	}

	metrics.Get().ExportDurationSeconds.Record(ctx, time.Since(start).Seconds())
	l.Info("Export generated", zap.Int("rows", len(expenses)), zap.Int("bytes", len(data)))
	return data, nil
}

func buildWorkbook(expenses []models.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error removing default sheet: %w", err)
	}

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("error resolving header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheetName, cell, title); err != nil {
			return nil, fmt.Errorf("error writing header: %w", err)
		}
	}

	for i, e := range expenses {
		row := i + 2
		values := []any{e.EmployeeName, e.Description, e.Amount, e.Date, string(e.Status)}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("error resolving cell: %w", err)
			}
			if err := f.SetCellValue(exportSheetName, cell, v); err != nil {
				return nil, fmt.Errorf("error writing row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
