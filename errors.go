package medquote

import (
	"errors"
	"fmt"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/quote"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("medquote: not found")
	ErrAlreadyExists = errors.New("medquote: already exists")
	ErrInvalidInput  = errors.New("medquote: invalid input")

	// Lookup errors
	ErrProviderNotFound = errors.New("medquote: provider not found")
	ErrRequestNotFound  = errors.New("medquote: quote request not found")
	ErrQuoteNotFound    = errors.New("medquote: quote not found")
	ErrEntryNotFound    = errors.New("medquote: ledger entry not found")
	ErrInvoiceNotFound  = errors.New("medquote: invoice not found")

	// Lifecycle errors
	ErrQuoteExpired      = errors.New("medquote: quote request has expired")
	ErrAlreadySelected   = errors.New("medquote: a provider has already been selected")
	ErrNotSelected       = errors.New("medquote: no provider has been selected")
	ErrAlreadyBooked     = errors.New("medquote: request is already booked")
	ErrNotBooked         = errors.New("medquote: request is not booked")
	ErrRequestCancelled  = errors.New("medquote: request is cancelled")
	ErrRequestLocked     = errors.New("medquote: request is locked")
	ErrQuoteUnavailable  = errors.New("medquote: quote did not respond or is not visible")
	ErrDeletionForbidden = errors.New("medquote: request has quotes; cancel it instead")
	ErrTrainingLimit     = errors.New("medquote: training request limit reached")

	// Invoice errors
	ErrInvoiceAlreadyPaid = errors.New("medquote: invoice already paid")

	// Store errors
	ErrStateConflict  = errors.New("medquote: state changed concurrently")
	ErrRecoupConflict = errors.New("medquote: recoup balance changed concurrently")
	ErrStoreClosed    = errors.New("medquote: store is closed")
)

// TransitionError reports an operation the request's current state does
// not allow. State is left untouched.
type TransitionError struct {
	RequestID id.RequestID
	Op        string
	State     quote.State
	Err       error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("medquote: %s request %s in state %s: %v", e.Op, e.RequestID, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("medquote: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "medquote: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("medquote: %d errors occurred: %v", len(e.Errors), msgs)
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrQuoteNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// IsIllegalTransition returns true if the error rejects a state change.
func IsIllegalTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// IsValidation returns true if the error is an input validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrRecoupConflict)
}
