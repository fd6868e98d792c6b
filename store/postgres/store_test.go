package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-ledger/domain"
)

func TestQueries(t *testing.T) {
	s := NewStore(Config{DBHost: "localhost", DBPort: 5432, DBName: "ledger", DBUser: "postgres", DBSchema: "economy"})
	owner := uuid.New()

	t.Run("Load", func(t *testing.T) {
		query, args, err := s.loadQuery("dollars", owner)
		require.NoError(t, err)
		assert.Equal(t, `SELECT currency, owner, is_virtual, balance::text, updated_at FROM "economy"."ledger_accounts" WHERE currency = $1 AND owner = $2`, query)
		assert.Equal(t, []any{"dollars", owner}, args)
	})

	t.Run("Save", func(t *testing.T) {
		now := time.Now().UTC()
		snap := domain.AccountSnapshot{Currency: "dollars", Owner: owner, Virtual: true, Balance: decimal.RequireFromString("1.50")}
		query, args, err := s.saveQuery(snap, now)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(query, `INSERT INTO "economy"."ledger_accounts"`))
		assert.Contains(t, query, "$5")
		assert.Contains(t, query, "ON CONFLICT (currency, owner) DO UPDATE SET")
		assert.Equal(t, []any{"dollars", owner, true, "1.5", now}, args)
	})

	t.Run("Delete", func(t *testing.T) {
		query, args, err := s.deleteQuery("dollars", owner)
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "economy"."ledger_accounts" WHERE currency = $1 AND owner = $2`, query)
		assert.Len(t, args, 2)
	})

	t.Run("List", func(t *testing.T) {
		query, args, err := s.listQuery("gems")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(query, "WHERE currency = $1 ORDER BY owner"))
		assert.Equal(t, []any{"gems"}, args)
	})
}

func TestDefaultSchema(t *testing.T) {
	s := NewStore(Config{})
	assert.Equal(t, `"public"."ledger_accounts"`, s.qualified())
}

func TestCreateConnectionString(t *testing.T) {
	assert.Equal(t, "host=db port=5432 user=u dbname=n sslmode=disable", createConnectionString("db", 5432, "n", "u", ""))
	assert.Equal(t, "host=db port=5432 user=u dbname=n sslmode=disable password=p", createConnectionString("db", 5432, "n", "u", "p"))
}

func TestNotStarted(t *testing.T) {
	s := NewStore(Config{})
	ctx := context.Background()

	_, err := s.Load(ctx, "dollars", uuid.New())
	assert.Error(t, err)
	assert.Error(t, s.Save(ctx, domain.AccountSnapshot{Currency: "dollars", Owner: uuid.New()}))
	assert.Error(t, s.Delete(ctx, "dollars", uuid.New()))
	_, err = s.List(ctx, "dollars")
	assert.Error(t, err)
	assert.NoError(t, s.Stop())
}
