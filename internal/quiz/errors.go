package quiz

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) by repositories when a record is missing.
var ErrNotFound = errors.New("not found")

// Submission guard errors. A rejected duplicate submit never produces a
// second attempt record.
var (
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
)

// ValidationError describes malformed quiz data or a grading overlay that no
// longer matches its quiz.
type ValidationError struct {
	Field   string // Dotted path of the offending field, e.g. "questions[2].options"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a failed read or write against the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
