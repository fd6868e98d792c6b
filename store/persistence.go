package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"economy-ledger/domain"
)

var ErrNotFound = errors.New("account not found in storage")

// Persistence is the storage collaborator behind the account store. It is
// not assumed to be transactional across accounts.
type Persistence interface {
	// Load returns ErrNotFound when no account is stored for the key.
	Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error)
	Save(ctx context.Context, snapshot domain.AccountSnapshot) error
	Delete(ctx context.Context, currency string, owner uuid.UUID) error
	// List returns every stored account of currency.
	List(ctx context.Context, currency string) ([]domain.AccountSnapshot, error)
}
