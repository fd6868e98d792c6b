package domain

import "fmt"

type DomainError struct {
	message string
}

func NewDomainError(format string, args ...interface{}) *DomainError {
	return &DomainError{message: fmt.Sprintf(format, args...)}
}

func (e *DomainError) Error() string {
	return e.message
}

var (
	ErrNoPrimaryCurrency    = NewDomainError("no primary currency registered")
	ErrUnknownCurrency      = NewDomainError("currency not registered")
	ErrMissingRequiredField = NewDomainError("missing required field")
	ErrCurrencyMismatch     = NewDomainError("currency mismatch")
	ErrAccountNotFound      = NewDomainError("account not found")
	ErrAccountDeleted       = NewDomainError("account was deleted")
)
