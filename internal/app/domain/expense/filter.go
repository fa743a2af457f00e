package expense

import (
	"sort"
	"strings"
	"time"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
)

// FilterBySearch narrows expenses to those whose employee name or description
// contains the query, case-insensitively. The filter runs in memory over the
// already-fetched slice; it is never pushed into SQL, so its matching rules
// stay identical no matter where the data came from.
func FilterBySearch(expenses []models.Expense, query string) []models.Expense {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return expenses
	}

	filtered := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if strings.Contains(strings.ToLower(e.EmployeeName), query) ||
			strings.Contains(strings.ToLower(e.Description), query) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// SortByDate orders expenses oldest-first by their parsed date. Records with
// unparseable dates sort last, in their original relative order.
func SortByDate(expenses []models.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		ti, errI := time.Parse("2006-01-02", expenses[i].Date)
		tj, errJ := time.Parse("2006-01-02", expenses[j].Date)
		if errI != nil {
			return false
		}
		if errJ != nil {
			return true
		}
		return ti.Before(tj)
	})
}
