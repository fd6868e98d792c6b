package domain

import (
	"sync"

	"github.com/shopspring/decimal"

	"economy-ledger/shared"
)

// Recipient is anything a transaction outcome can be relayed to.
type Recipient interface {
	SendMessage(message string)
}

// MessageFunc produces the message bound to a result type.
type MessageFunc func() string

// Memoize wraps fn so that it is evaluated at most once.
func Memoize(fn MessageFunc) MessageFunc {
	if fn == nil {
		return nil
	}
	return sync.OnceValue(fn)
}

// Transaction is the immutable outcome of a single-account mutation.
type Transaction struct {
	Account  *Account
	Currency *Currency
	Amount   decimal.Decimal
	Type     shared.TransactionType
	Result   shared.ResultType
	// Message is the message bound to Result by the composer, if any.
	Message MessageFunc
	// Err carries observer failures and the cause of a FAILED result.
	Err error
}

func (t *Transaction) Successful() bool {
	return t.Result.Successful()
}

// Inform relays the bound message, if any, to r.
func (t *Transaction) Inform(r Recipient) {
	if t.Message != nil && r != nil {
		r.SendMessage(t.Message())
	}
}

// TransferTransaction is the immutable outcome of a two-account transfer.
type TransferTransaction struct {
	Currency *Currency
	From     *Account
	To       *Account
	Amount   decimal.Decimal
	Result   shared.ResultType
	Message  MessageFunc
	Err      error
}

func (t *TransferTransaction) Successful() bool {
	return t.Result.Successful()
}

func (t *TransferTransaction) Inform(r Recipient) {
	if t.Message != nil && r != nil {
		r.SendMessage(t.Message())
	}
}
