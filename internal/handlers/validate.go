package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"staff-ledger/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

const maxAmount = 1_000_000_000

func invalid(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Message: msg, Err: fmt.Errorf("%w: %s", ErrInvalidInput, msg)}
}

// digitsBetween reports whether n is positive with lo..hi decimal digits.
func digitsBetween(n int64, lo, hi int) bool {
	if n <= 0 {
		return false
	}
	l := len(strconv.FormatInt(n, 10))
	return l >= lo && l <= hi
}

// ValidateEmployee checks the employee fields the form requires.
func ValidateEmployee(in models.EmployeeInput) error {
	if !digitsBetween(in.NationalID, 6, 10) {
		return invalid("National ID must have between 6 and 10 digits.")
	}
	if strings.TrimSpace(in.GivenName) == "" || strings.TrimSpace(in.FamilyName) == "" {
		return invalid("Given name and family name are required.")
	}
	if strings.TrimSpace(in.Address) == "" {
		return invalid("Address is required.")
	}
	if !digitsBetween(in.Phone, 7, 15) {
		return invalid("Phone must have between 7 and 15 digits.")
	}
	if in.Age < 1 || in.Age > 100 {
		return invalid("Age must be between 1 and 100.")
	}
	return nil
}

// ValidateExpense checks amount, date and description. EmployeeID is only
// checked when set, so updates can reuse it.
func ValidateExpense(in models.ExpenseInput) error {
	if in.EmployeeID < 0 {
		return invalid("Unknown employee.")
	}
	if math.IsNaN(in.Amount) || in.Amount < 0 || in.Amount >= maxAmount {
		return invalid("Amount must be at least 0 and below 1,000,000,000.")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("Description is required.")
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return invalid("Date must use the YYYY-MM-DD format.")
	}
	return nil
}

// ValidateRegistration checks the first-run setup fields.
func ValidateRegistration(nickname, password, question, answer string) error {
	if strings.TrimSpace(nickname) == "" {
		return invalid("Nickname is required.")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return invalid("Security question and answer are required.")
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return invalid("Password is required.")
	}
	return nil
}

// TitleCase lowercases s and capitalises the first letter of each word.
func TitleCase(s string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// normalizeEmployee title-cases the free-text fields.
func normalizeEmployee(in models.EmployeeInput) models.EmployeeInput {
	in.GivenName = TitleCase(in.GivenName)
	in.FamilyName = TitleCase(in.FamilyName)
	in.Address = TitleCase(in.Address)
	return in
}
