package expense

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
)

func TestBuildWorkbook(t *testing.T) {
	data, err := buildWorkbook([]models.Expense{
		{EmployeeName: "Alice", Description: "Stationery", Amount: 120.5, Date: "2024-01-15", Status: models.StatusPending},
		{EmployeeName: "Bob", Description: "Taxi", Amount: 40, Date: "2024-02-01", Status: models.StatusDisbursed},
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, []string{"Alice", "Stationery", "120.5", "2024-01-15", "PENDING"}, rows[1])
	assert.Equal(t, []string{"Bob", "Taxi", "40", "2024-02-01", "DISBURSED"}, rows[2])
}

func TestBuildWorkbook_Empty(t *testing.T) {
	data, err := buildWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
