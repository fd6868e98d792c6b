package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountSnapshot is the persisted form of an account.
type AccountSnapshot struct {
	Currency  string          `json:"currency"`
	Owner     uuid.UUID       `json:"owner"`
	Virtual   bool            `json:"virtual"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s AccountSnapshot) Key() AccountKey {
	return AccountKey{Currency: s.Currency, Owner: s.Owner}
}

func CreateSnapshot(account *Account) AccountSnapshot {
	return AccountSnapshot{
		Currency:  account.Currency().Key(),
		Owner:     account.Owner(),
		Virtual:   account.Virtual(),
		Balance:   account.Balance(),
		UpdatedAt: time.Now().UTC(),
	}
}

// ApplySnapshot rebuilds an account of currency from a persisted snapshot.
func ApplySnapshot(currency *Currency, snap AccountSnapshot) (*Account, error) {
	if currency == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, snap.Currency)
	}
	if snap.Currency != currency.Key() {
		return nil, fmt.Errorf("%w: snapshot for %s applied to currency %s", ErrCurrencyMismatch, snap.Currency, currency.Key())
	}

	modifiers := []AccountModifier{WithBalance(snap.Balance)}
	if snap.Virtual {
		modifiers = append(modifiers, Virtual())
	}
	account, err := NewAccount(currency, snap.Owner, modifiers...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply snapshot for account %s: %w", snap.Key(), err)
	}
	return account, nil
}

func MarshalSnapshot(snap AccountSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot for account %s: %w", snap.Key(), err)
	}
	return data, nil
}

func UnmarshalSnapshot(data []byte) (AccountSnapshot, error) {
	var snap AccountSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return AccountSnapshot{}, fmt.Errorf("failed to unmarshal account snapshot: %w", err)
	}
	return snap, nil
}
