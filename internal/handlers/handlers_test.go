package handlers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"staff-ledger/internal/auth"
	"staff-ledger/internal/maintenance"
	"staff-ledger/internal/metrics"
	"staff-ledger/internal/models"
	"staff-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type HandlersTestSuite struct {
	suite.Suite
	dir      string
	store    *storage.Store
	handlers *Handlers
	ctx      context.Context
}

func (suite *HandlersTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	store, err := storage.Open(filepath.Join(suite.dir, "ledger.db"))
	require.NoError(suite.T(), err, "failed to create test database")
	suite.store = store

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector()
	job := maintenance.NewJob(store, maintenance.Options{
		BackupDir: filepath.Join(suite.dir, "backups"),
		Logger:    logger,
		Recorder:  collector,
	})
	suite.handlers = NewHandlers(store, auth.NewCredentialStore(store.Credentials, logger), job, Options{
		Logger:          logger,
		Collector:       collector,
		MetricsTextfile: filepath.Join(suite.dir, "metrics", "staffledger.prom"),
	})
	suite.ctx = context.Background()
}

func (suite *HandlersTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func validEmployee(nationalID int64) models.EmployeeInput {
	return models.EmployeeInput{
		NationalID: nationalID,
		GivenName:  "ana maría",
		FamilyName: "PÉREZ",
		Address:    "calle 10 #20",
		Phone:      3001234567,
		Age:        34,
	}
}

func (suite *HandlersTestSuite) addEmployee(nationalID int64) *models.Employee {
	e, err := suite.handlers.AddEmployee(suite.ctx, validEmployee(nationalID))
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), e)
	return e
}

func (suite *HandlersTestSuite) TestAddEmployeeNormalizesNames() {
	e := suite.addEmployee(12345678)

	assert.Equal(suite.T(), "Ana María", e.GivenName)
	assert.Equal(suite.T(), "Pérez", e.FamilyName)
	assert.Equal(suite.T(), "Calle 10 #20", e.Address)
	assert.True(suite.T(), e.Active)
}

func (suite *HandlersTestSuite) TestAddEmployeeDuplicateNationalID() {
	suite.addEmployee(12345678)

	e, err := suite.handlers.AddEmployee(suite.ctx, validEmployee(12345678))
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), e)

	list, err := suite.handlers.ListEmployees(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)
}

func (suite *HandlersTestSuite) TestAddEmployeeValidation() {
	cases := map[string]func(*models.EmployeeInput){
		"short national id": func(in *models.EmployeeInput) { in.NationalID = 12345 },
		"long national id":  func(in *models.EmployeeInput) { in.NationalID = 12345678901 },
		"short phone":       func(in *models.EmployeeInput) { in.Phone = 123456 },
		"age zero":          func(in *models.EmployeeInput) { in.Age = 0 },
		"age too high":      func(in *models.EmployeeInput) { in.Age = 101 },
		"missing name":      func(in *models.EmployeeInput) { in.GivenName = "  " },
		"missing address":   func(in *models.EmployeeInput) { in.Address = "" },
	}
	for name, mutate := range cases {
		in := validEmployee(12345678)
		mutate(&in)
		e, err := suite.handlers.AddEmployee(suite.ctx, in)
		assert.Nil(suite.T(), e, name)
		assert.ErrorIs(suite.T(), err, ErrInvalidInput, name)

		var herr *Error
		if assert.ErrorAs(suite.T(), err, &herr, name) {
			assert.NotEmpty(suite.T(), herr.Message)
		}
	}
}

func (suite *HandlersTestSuite) TestEmployeeLifecycle() {
	e := suite.addEmployee(12345678)

	got, err := suite.handlers.GetEmployee(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)

	ok, err := suite.handlers.DeleteEmployee(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	got, err = suite.handlers.GetEmployee(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got, "inactive employees are not returned")

	inactive, err := suite.handlers.ListInactiveEmployees(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), inactive, 1)

	ok, err = suite.handlers.ReactivateEmployee(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	active, err := suite.handlers.ListEmployees(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), active, 1)
}

func (suite *HandlersTestSuite) TestUpdateEmployeeRejectsTakenNationalID() {
	a := suite.addEmployee(12345678)
	b := suite.addEmployee(87654321)

	ok, err := suite.handlers.UpdateEmployee(suite.ctx, b.ID, validEmployee(a.NationalID))
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// Keeping its own national id is fine.
	in := validEmployee(b.NationalID)
	in.Age = 40
	ok, err = suite.handlers.UpdateEmployee(suite.ctx, b.ID, in)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	taken, err := suite.handlers.CheckNationalID(suite.ctx, a.NationalID, &a.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), taken)

	taken, err = suite.handlers.CheckNationalID(suite.ctx, a.NationalID, nil)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), taken)
}

func (suite *HandlersTestSuite) TestExpenses() {
	e := suite.addEmployee(12345678)

	first, err := suite.handlers.AddExpense(suite.ctx, models.ExpenseInput{
		EmployeeID: e.ID, Amount: 100, Description: "Fuel", Date: "2024-06-01",
	})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), first)

	ok, err := suite.handlers.AddExpenseBatch(suite.ctx, []models.ExpenseInput{
		{EmployeeID: e.ID, Amount: 20, Description: "Lunch", Date: "2024-06-02"},
		{EmployeeID: e.ID, Amount: 30, Description: "Toll", Date: "2024-06-03"},
	})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	total, err := suite.handlers.TotalExpenses(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.InDelta(suite.T(), 150.0, total, 1e-9)

	ok, err = suite.handlers.UpdateExpense(suite.ctx, first.ID, 80, "Fuel", "2024-06-01", "North")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.handlers.DeleteExpense(suite.ctx, first.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	list, err := suite.handlers.ListExpenses(suite.ctx, &e.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 2)
	assert.Equal(suite.T(), "2024-06-03", list[0].Date)
}

func (suite *HandlersTestSuite) TestAddExpenseForInactiveEmployee() {
	e := suite.addEmployee(12345678)
	_, err := suite.handlers.DeleteEmployee(suite.ctx, e.ID)
	require.NoError(suite.T(), err)

	got, err := suite.handlers.AddExpense(suite.ctx, models.ExpenseInput{
		EmployeeID: e.ID, Amount: 10, Description: "Fuel", Date: "2024-06-01",
	})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func (suite *HandlersTestSuite) TestAddExpenseValidation() {
	e := suite.addEmployee(12345678)
	for name, in := range map[string]models.ExpenseInput{
		"negative amount": {EmployeeID: e.ID, Amount: -1, Description: "Fuel", Date: "2024-06-01"},
		"huge amount":     {EmployeeID: e.ID, Amount: 1e9, Description: "Fuel", Date: "2024-06-01"},
		"bad date":        {EmployeeID: e.ID, Amount: 1, Description: "Fuel", Date: "01/06/2024"},
		"no description":  {EmployeeID: e.ID, Amount: 1, Date: "2024-06-01"},
	} {
		_, err := suite.handlers.AddExpense(suite.ctx, in)
		assert.ErrorIs(suite.T(), err, ErrInvalidInput, name)
	}
}

func (suite *HandlersTestSuite) TestAddExpenseText() {
	e := suite.addEmployee(12345678)

	n, err := suite.handlers.AddExpenseText(suite.ctx, e.ID, "2024-06-01", "north route", "fuel: 12.50\nlunch: 7; toll:3")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, n)

	total, err := suite.handlers.TotalExpenses(suite.ctx, e.ID)
	require.NoError(suite.T(), err)
	assert.InDelta(suite.T(), 22.5, total, 1e-9)
}

func (suite *HandlersTestSuite) TestSummaries() {
	a := suite.addEmployee(12345678)
	b := suite.addEmployee(87654321)
	for _, in := range []models.ExpenseInput{
		{EmployeeID: a.ID, Amount: 10, Description: "Fuel", Date: "2024-05-31"},
		{EmployeeID: a.ID, Amount: 20, Description: "Fuel", Date: "2024-06-01"},
		{EmployeeID: a.ID, Amount: 30, Description: "Fuel", Date: "2024-06-07"},
		{EmployeeID: a.ID, Amount: 40, Description: "Fuel", Date: "2024-06-08"},
	} {
		_, err := suite.handlers.AddExpense(suite.ctx, in)
		require.NoError(suite.T(), err)
	}

	sums, err := suite.handlers.Summaries(suite.ctx, "2024-06-01", "2024-06-07")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sums, 2)

	byID := map[int64]models.Summary{}
	for _, s := range sums {
		byID[s.Employee.ID] = s
	}
	assert.Equal(suite.T(), 2, byID[a.ID].Count)
	assert.InDelta(suite.T(), 50.0, byID[a.ID].Total, 1e-9)
	assert.Equal(suite.T(), 0, byID[b.ID].Count)
	assert.NotNil(suite.T(), byID[b.ID].Expenses)

	all, err := suite.handlers.Summaries(suite.ctx, "", "")
	require.NoError(suite.T(), err)
	var total float64
	for _, s := range all {
		total += s.Total
	}
	assert.InDelta(suite.T(), 100.0, total, 1e-9)

	_, err = suite.handlers.Summaries(suite.ctx, "2024-06-08", "2024-06-01")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *HandlersTestSuite) register() {
	ok, err := suite.handlers.RegisterUser(suite.ctx, "admin", "password123", "pet?", "rex")
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
}

func (suite *HandlersTestSuite) TestCredentials() {
	exists, err := suite.handlers.UserExists(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), exists)

	_, err = suite.handlers.RegisterUser(suite.ctx, "admin", "", "pet?", "rex")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	suite.register()

	ok, err := suite.handlers.Login(suite.ctx, "admin", "password123")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.handlers.Login(suite.ctx, "admin", "wrong")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	q, ok, err := suite.handlers.SecurityQuestion(suite.ctx)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "pet?", q)

	ok, err = suite.handlers.VerifyRecovery(suite.ctx, " Rex")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.handlers.ResetPassword(suite.ctx, "new-pass")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.handlers.Login(suite.ctx, "admin", "new-pass")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *HandlersTestSuite) TestResetPasswordWithTwoUsers() {
	suite.register()
	_, err := suite.handlers.RegisterUser(suite.ctx, "other", "pw", "q", "a")
	require.NoError(suite.T(), err)

	ok, err := suite.handlers.ResetPassword(suite.ctx, "new-pass")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	n, err := suite.handlers.ResetUsers(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), n)
}

func (suite *HandlersTestSuite) TestRunMaintenance() {
	suite.register()

	res := suite.handlers.RunMaintenance(suite.ctx, "admin", "wrong")
	assert.False(suite.T(), res.Success)
	assert.Equal(suite.T(), InvalidCredentialsMessage, res.Message)
	assert.NoDirExists(suite.T(), filepath.Join(suite.dir, "backups"))

	res = suite.handlers.RunMaintenance(suite.ctx, "admin", "password123")
	require.True(suite.T(), res.Success, res.Message)
	assert.FileExists(suite.T(), res.BackupPath)

	data, err := os.ReadFile(filepath.Join(suite.dir, "metrics", "staffledger.prom"))
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), string(data), `staffledger_maintenance_runs_total{outcome="success"} 1`)
}

func (suite *HandlersTestSuite) TestStorageFailureIsWrapped() {
	require.NoError(suite.T(), suite.store.Close())

	_, err := suite.handlers.ListEmployees(suite.ctx)
	var herr *Error
	require.ErrorAs(suite.T(), err, &herr)
	assert.Equal(suite.T(), "Could not list employees. Please try again.", herr.Message)
	assert.NotErrorIs(suite.T(), err, ErrInvalidInput)
	suite.store = nil
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestParseBatchText(t *testing.T) {
	items, err := ParseBatchText(7, "2024-06-01", "  north ROUTE ", "FUEL: 12.50,\n\nlunch:7;garbage;  toll booth : 3.25")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Fuel", items[0].Description)
	assert.InDelta(t, 12.5, items[0].Amount, 1e-9)
	assert.Equal(t, "North Route", items[0].Route)
	assert.Equal(t, "Lunch", items[1].Description)
	assert.Equal(t, "Toll Booth", items[2].Description)
	assert.InDelta(t, 3.25, items[2].Amount, 1e-9)
	for _, it := range items {
		assert.Equal(t, int64(7), it.EmployeeID)
		assert.Equal(t, "2024-06-01", it.Date)
	}
}

func TestParseBatchTextReadsLeadingNumber(t *testing.T) {
	items, err := ParseBatchText(7, "2024-06-01", "north", "Taxi: 12.5.3; parking: .75; toll: .")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Taxi", items[0].Description)
	assert.InDelta(t, 12.5, items[0].Amount, 1e-9)
	assert.InDelta(t, 0.75, items[1].Amount, 1e-9)
}

func TestParseBatchTextRejects(t *testing.T) {
	for name, tc := range map[string]struct {
		route, text string
	}{
		"no route":   {"", "fuel: 1"},
		"no text":    {"north", "  "},
		"no entries": {"north", "just words, more words"},
	} {
		_, err := ParseBatchText(1, "2024-06-01", tc.route, tc.text)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}
