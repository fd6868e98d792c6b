package events

import (
	"github.com/shopspring/decimal"

	"economy-ledger/domain"
	"economy-ledger/shared"
)

// TransactionPre is fired inside the account lock before a single-account mutation.
type TransactionPre struct {
	BaseEvent
	Cancellable
	Account *domain.Account
	Amount  decimal.Decimal
	Kind    shared.TransactionType
}

func NewTransactionPre(account *domain.Account, amount decimal.Decimal, kind shared.TransactionType) *TransactionPre {
	return &TransactionPre{
		BaseEvent: NewBaseEvent(TransactionPreType),
		Account:   account,
		Amount:    amount,
		Kind:      kind,
	}
}

func (e *TransactionPre) Currency() *domain.Currency {
	return e.Account.Currency()
}

// TransactionPost summarises a completed single-account mutation.
type TransactionPost struct {
	BaseEvent
	Transaction domain.Transaction
}

func NewTransactionPost(tx domain.Transaction) TransactionPost {
	return TransactionPost{BaseEvent: NewBaseEvent(TransactionPostType), Transaction: tx}
}

func (e TransactionPost) Account() *domain.Account {
	return e.Transaction.Account
}

func (e TransactionPost) Currency() *domain.Currency {
	return e.Transaction.Currency
}

// TransferPre is fired once, with both accounts locked, before either leg of a transfer.
type TransferPre struct {
	BaseEvent
	Cancellable
	From   *domain.Account
	To     *domain.Account
	Amount decimal.Decimal
}

func NewTransferPre(from, to *domain.Account, amount decimal.Decimal) *TransferPre {
	return &TransferPre{
		BaseEvent: NewBaseEvent(TransferPreType),
		From:      from,
		To:        to,
		Amount:    amount,
	}
}

func (e *TransferPre) Currency() *domain.Currency {
	return e.From.Currency()
}

// TransferPost summarises a completed transfer.
type TransferPost struct {
	BaseEvent
	Transaction domain.TransferTransaction
}

func NewTransferPost(tx domain.TransferTransaction) TransferPost {
	return TransferPost{BaseEvent: NewBaseEvent(TransferPostType), Transaction: tx}
}

func (e TransferPost) Currency() *domain.Currency {
	return e.Transaction.Currency
}

func (e TransferPost) From() *domain.Account {
	return e.Transaction.From
}

func (e TransferPost) To() *domain.Account {
	return e.Transaction.To
}
