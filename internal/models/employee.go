package models

import "time"

// Employee represents a registered staff member.
type Employee struct {
	ID            int64      `json:"id"`
	NationalID    int64      `json:"national_id"`
	GivenName     string     `json:"given_name"`
	FamilyName    string     `json:"family_name"`
	Address       string     `json:"address"`
	Phone         int64      `json:"phone"`
	Age           int        `json:"age"`
	RegisteredAt  time.Time  `json:"registered_at"`
	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// EmployeeInput holds the mutable fields of an employee.
type EmployeeInput struct {
	NationalID int64  `json:"national_id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Address    string `json:"address"`
	Phone      int64  `json:"phone"`
	Age        int    `json:"age"`
}
