package models

// DateLayout is the storage and wire format of expense dates.
const DateLayout = "2006-01-02"

// Expense represents an expense charged to an employee.
type Expense struct {
	ID          int64   `json:"id"`
	EmployeeID  int64   `json:"employee_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Category    string  `json:"category,omitempty"`
	Route       string  `json:"route"`
}

// ExpenseInput is one row of a single or batch insert.
type ExpenseInput struct {
	EmployeeID  int64   `json:"employee_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Category    string  `json:"category,omitempty"`
	Route       string  `json:"route,omitempty"`
}

// Summary groups an employee with their expenses and totals.
type Summary struct {
	Employee Employee  `json:"employee"`
	Expenses []Expense `json:"expenses"`
	Total    float64   `json:"total"`
	Count    int       `json:"count"`
}
