package storage

// Store bundles the handle with the repositories that share it.
type Store struct {
	*DB

	Employees   *Employees
	Expenses    *Expenses
	Credentials *Credentials
}

// Open opens the database at path and wires every repository to the one handle.
func Open(path string) (*Store, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// NewStore wires repositories over an already open handle.
func NewStore(db *DB) *Store {
	return &Store{
		DB:          db,
		Employees:   NewEmployees(db),
		Expenses:    NewExpenses(db),
		Credentials: NewCredentials(db),
	}
}
