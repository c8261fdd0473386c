package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrDelivery is returned when the mail collaborator fails to deliver a reminder.
	// The invoice is retried on the next run.
	ErrDelivery = errors.New("reminder delivery failed")

	// ErrPersistence is returned when a storage update fails.
	ErrPersistence = errors.New("reminder persistence failed")

	// ErrConfiguration is returned for rules or overrides that cannot be evaluated.
	ErrConfiguration = errors.New("invalid reminder configuration")
)

// CheckError adds the invoice and rule context to a per-item failure.
type CheckError struct {
	Op       string
	Invoice  string
	RuleType string
	Err      error
}

func (e *CheckError) Error() string {
	msg := e.Op
	if e.Invoice != "" {
		msg += " invoice=" + e.Invoice
	}
	if e.RuleType != "" {
		msg += " rule_type=" + e.RuleType
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }
