package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"economy-ledger/domain"
)

type InMemoryStore struct {
	sync.RWMutex
	snapshots map[domain.AccountKey]domain.AccountSnapshot
}

var _ Persistence = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		snapshots: make(map[domain.AccountKey]domain.AccountSnapshot),
	}
}

func (s *InMemoryStore) Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	snap, found := s.snapshots[domain.AccountKey{Currency: currency, Owner: owner}]
	if !found {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, currency, owner)
	}
	return &snap, nil
}

func (s *InMemoryStore) Save(ctx context.Context, snapshot domain.AccountSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.Currency == "" || snapshot.Owner == uuid.Nil {
		return fmt.Errorf("cannot save snapshot without currency and owner")
	}
	s.Lock()
	defer s.Unlock()

	snapshot.UpdatedAt = time.Now().UTC()
	s.snapshots[snapshot.Key()] = snapshot
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, currency string, owner uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()

	delete(s.snapshots, domain.AccountKey{Currency: currency, Owner: owner})
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, currency string) ([]domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	result := make([]domain.AccountSnapshot, 0)
	for key, snap := range s.snapshots {
		if key.Currency == currency {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Owner.String() < result[j].Owner.String()
	})
	return result, nil
}
