package handlers

import (
	"context"
	"time"

	"staff-ledger/internal/models"
)

// Summaries returns one summary per active employee covering the expenses
// dated within [from, to]. Empty bounds are open. Employees without expenses
// in range are included with a zero total.
func (h *Handlers) Summaries(ctx context.Context, from, to string) ([]models.Summary, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return nil, invalid("Date must use the YYYY-MM-DD format.")
		}
	}
	if from != "" && to != "" && from > to {
		return nil, invalid("The start date must not be after the end date.")
	}

	employees, err := h.store.Employees.ListActive(ctx)
	if err != nil {
		return nil, h.fail("build summary", err)
	}
	expenses, err := h.store.Expenses.List(ctx, nil)
	if err != nil {
		return nil, h.fail("build summary", err)
	}

	byEmployee := make(map[int64][]models.Expense, len(employees))
	for _, e := range expenses {
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		byEmployee[e.EmployeeID] = append(byEmployee[e.EmployeeID], e)
	}

	out := make([]models.Summary, 0, len(employees))
	for _, emp := range employees {
		list := byEmployee[emp.ID]
		if list == nil {
			list = []models.Expense{}
		}
		var total float64
		for _, e := range list {
			total += e.Amount
		}
		out = append(out, models.Summary{
			Employee: emp,
			Expenses: list,
			Total:    total,
			Count:    len(list),
		})
	}
	return out, nil
}
