package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/domain"
	"economy-ledger/store"
	"economy-ledger/store/sqlite"
)

func openTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s := openTestStore(t, path)
	owner := uuid.New()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := s.Load(ctx, "dollars", owner)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("SaveIsAnUpsert", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, domain.AccountSnapshot{Currency: "dollars", Owner: owner, Balance: decimal.RequireFromString("10.25")}))
		require.NoError(t, s.Save(ctx, domain.AccountSnapshot{Currency: "dollars", Owner: owner, Virtual: true, Balance: decimal.RequireFromString("0.000000000000000001")}))

		snap, err := s.Load(ctx, "dollars", owner)
		require.NoError(t, err)
		assert.Equal(t, owner, snap.Owner)
		assert.True(t, snap.Virtual)
		assert.Equal(t, "0.000000000000000001", snap.Balance.String())
		assert.False(t, snap.UpdatedAt.IsZero())
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, domain.AccountSnapshot{Currency: "dollars", Owner: uuid.New(), Balance: decimal.NewFromInt(7)}))
		require.NoError(t, s.Save(ctx, domain.AccountSnapshot{Currency: "gems", Owner: uuid.New(), Balance: decimal.NewFromInt(1)}))

		snaps, err := s.List(ctx, "dollars")
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Less(t, snaps[0].Owner.String(), snaps[1].Owner.String())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "dollars", owner))
		_, err := s.Load(ctx, "dollars", owner)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("RejectsIncompleteSnapshot", func(t *testing.T) {
		assert.Error(t, s.Save(ctx, domain.AccountSnapshot{Owner: owner}))
		assert.Error(t, s.Save(ctx, domain.AccountSnapshot{Currency: "dollars"}))
	})
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	owner := uuid.New()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, domain.AccountSnapshot{Currency: "dollars", Owner: owner, Balance: decimal.NewFromInt(3)}))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	snap, err := second.Load(ctx, "dollars", owner)
	require.NoError(t, err)
	assert.True(t, snap.Balance.Equal(decimal.NewFromInt(3)))
}
