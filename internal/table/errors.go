package table

import (
	"errors"
	"fmt"
)

var (
	ErrNoCurrentTable = errors.New("no current table has been set")
	ErrArityMismatch  = errors.New("row value count does not match table columns")
)

// PersistenceError is returned when a statement fails to execute. The
// underlying driver error is preserved and can be inspected with errors.As.
type PersistenceError struct {
	Op        string
	Statement string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError indicates that a table or database expected to exist
// could not be found.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Name)
}

func persistenceErr(op string, statement string, err error) error {
	if err == nil {
		return nil
	}

	return &PersistenceError{Op: op, Statement: statement, Err: err}
}
