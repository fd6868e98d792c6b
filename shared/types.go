package shared

import "strings"

// ResultType is the closed set of outcomes a transaction may report.
type ResultType int

const (
	ResultSuccess ResultType = iota + 1
	ResultFailed
	ResultCancelled
	ResultNotEnoughFunds
	ResultNoRemainingSpace
	ResultInvalid
)

var resultNames = map[ResultType]string{
	ResultSuccess:          "SUCCESS",
	ResultFailed:           "FAILED",
	ResultCancelled:        "CANCELLED",
	ResultNotEnoughFunds:   "NOT_ENOUGH_FUNDS",
	ResultNoRemainingSpace: "NO_REMAINING_SPACE",
	ResultInvalid:          "INVALID",
}

// ResultTypes lists every result type in declaration order.
func ResultTypes() []ResultType {
	return []ResultType{
		ResultSuccess,
		ResultFailed,
		ResultCancelled,
		ResultNotEnoughFunds,
		ResultNoRemainingSpace,
		ResultInvalid,
	}
}

func (r ResultType) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

func (r ResultType) Successful() bool {
	return r == ResultSuccess
}

// TransactionType identifies the single-account mutation a transaction performed.
type TransactionType int

const (
	TransactionSet TransactionType = iota + 1
	TransactionWithdraw
	TransactionDeposit
	TransactionReset
)

var transactionNames = map[TransactionType]string{
	TransactionSet:      "SET",
	TransactionWithdraw: "WITHDRAW",
	TransactionDeposit:  "DEPOSIT",
	TransactionReset:    "RESET",
}

func (t TransactionType) String() string {
	if name, ok := transactionNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseTransactionType accepts the upper or lower case name of a transaction type.
func ParseTransactionType(name string) (TransactionType, bool) {
	for t, n := range transactionNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// TriState models a boolean that some backends cannot report.
type TriState int

const (
	Unknown TriState = iota
	True
	False
)

func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

func (s TriState) String() string {
	switch s {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}
