package handlers

import (
	"regexp"
	"strconv"
	"strings"

	"staff-ledger/internal/models"
)

var (
	batchSeparators = regexp.MustCompile(`[,\n;]+`)
	batchEntry      = regexp.MustCompile(`^\s*([^:]+):\s*([\d.]+)`)
	// amountPrefix is the longest leading decimal, so "12.5.3" reads as 12.5.
	amountPrefix    = regexp.MustCompile(`^\d*\.?\d*`)
)

// ParseBatchText turns pasted "Concept: 12.50" entries into expense inputs.
// Entries are separated by newlines, commas or semicolons; entries that do
// not match the format are skipped. Description and route are title-cased.
func ParseBatchText(employeeID int64, date, route, text string) ([]models.ExpenseInput, error) {
	route = strings.TrimSpace(route)
	if employeeID <= 0 || route == "" || strings.TrimSpace(text) == "" {
		return nil, invalid("Select an employee, enter the route and paste the expense list.")
	}
	route = TitleCase(route)

	var items []models.ExpenseInput
	for _, line := range batchSeparators.Split(text, -1) {
		m := batchEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[1])
		amount, err := strconv.ParseFloat(amountPrefix.FindString(m[2]), 64)
		if desc == "" || err != nil {
			continue
		}
		items = append(items, models.ExpenseInput{
			EmployeeID:  employeeID,
			Amount:      amount,
			Description: TitleCase(desc),
			Date:        date,
			Route:       route,
		})
	}
	if len(items) == 0 {
		return nil, invalid(`No expenses found. Use the format "Concept: amount".`)
	}
	return items, nil
}
