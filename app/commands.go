package app

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"economy-ledger/shared"
)

// --- Command Struct Definitions ---
// Commands carry a request from an outer surface (CLI, REPL) into the Ledger.
// An empty Currency means the primary currency.

type CreateAccountCommand struct {
	Currency string
	Owner    uuid.UUID
	Balance  *decimal.Decimal
	Virtual  bool
}

type TransactionCommand struct {
	Currency string
	Owner    uuid.UUID
	Type     shared.TransactionType
	// Amount is ignored for reset.
	Amount decimal.Decimal
}

type TransferCommand struct {
	Currency string
	From     uuid.UUID
	To       uuid.UUID
	Amount   decimal.Decimal
}

// --- Query Structures (Input for Read Operations) ---

type GetBalanceQuery struct {
	Currency string
	Owner    uuid.UUID
}

type GetHistoryQuery struct {
	Currency string
	Owner    uuid.UUID
	Limit    int
	Skip     int
}
