// Package postgres provides PostgreSQL-backed account persistence.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"economy-ledger/domain"
	"economy-ledger/store"
)

const table = "ledger_accounts"

const schemaTemplate = `
CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s.%[2]s (
	currency VARCHAR(64) NOT NULL,
	owner UUID NOT NULL,
	is_virtual BOOLEAN NOT NULL DEFAULT FALSE,
	balance NUMERIC(38, 18) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (currency, owner)
);
`

type Config struct {
	DBHost     string // DBHost represents the database host
	DBPort     int    // DBPort is the database port
	DBName     string // DBName is the database name
	DBUser     string // DBUser is the database user used to connect
	DBPassword string // DBPassword is the database password
	DBSchema   string // DBSchema holds the accounts table; "public" when empty
}

type Store struct {
	config  Config
	pool    *pgxpool.Pool
	connStr string
	sb      sq.StatementBuilderType
}

var _ store.Persistence = (*Store)(nil)

func NewStore(config Config) *Store {
	if config.DBSchema == "" {
		config.DBSchema = "public"
	}
	return &Store{
		config:  config,
		connStr: createConnectionString(config.DBHost, config.DBPort, config.DBName, config.DBUser, config.DBPassword),
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Start establishes the connection pool and creates the schema if it does not exist.
func (x *Store) Start(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(x.connStr)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create the connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping the database connection: %w", err)
	}

	schema := fmt.Sprintf(schemaTemplate, pgx.Identifier{x.config.DBSchema}.Sanitize(), table)
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create the schema: %w", err)
	}

	x.pool = pool
	return nil
}

// Stop releases the connection pool.
func (x *Store) Stop() error {
	if x.pool == nil {
		return nil
	}
	x.pool.Close()
	return nil
}

func (x *Store) qualified() string {
	return pgx.Identifier{x.config.DBSchema, table}.Sanitize()
}

func (x *Store) loadQuery(currency string, owner uuid.UUID) (string, []any, error) {
	return x.sb.
		Select("currency", "owner", "is_virtual", "balance::text", "updated_at").
		From(x.qualified()).
		Where(sq.Eq{"currency": currency, "owner": owner}).
		ToSql()
}

func (x *Store) saveQuery(snapshot domain.AccountSnapshot, now time.Time) (string, []any, error) {
	return x.sb.
		Insert(x.qualified()).
		Columns("currency", "owner", "is_virtual", "balance", "updated_at").
		Values(snapshot.Currency, snapshot.Owner, snapshot.Virtual, snapshot.Balance.String(), now).
		Suffix("ON CONFLICT (currency, owner) DO UPDATE SET " +
			"is_virtual = EXCLUDED.is_virtual, balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at").
		ToSql()
}

func (x *Store) deleteQuery(currency string, owner uuid.UUID) (string, []any, error) {
	return x.sb.
		Delete(x.qualified()).
		Where(sq.Eq{"currency": currency, "owner": owner}).
		ToSql()
}

func (x *Store) listQuery(currency string) (string, []any, error) {
	return x.sb.
		Select("currency", "owner", "is_virtual", "balance::text", "updated_at").
		From(x.qualified()).
		Where(sq.Eq{"currency": currency}).
		OrderBy("owner").
		ToSql()
}

func (x *Store) connected() error {
	if x.pool == nil {
		return errors.New("postgres store is not started")
	}
	return nil
}

func (x *Store) Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error) {
	if err := x.connected(); err != nil {
		return nil, err
	}
	query, args, err := x.loadQuery(currency, owner)
	if err != nil {
		return nil, err
	}

	snap, err := scanSnapshot(x.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s:%s", store.ErrNotFound, currency, owner)
		}
		return nil, fmt.Errorf("failed to get account %s:%s: %w", currency, owner, err)
	}
	return &snap, nil
}

func (x *Store) Save(ctx context.Context, snapshot domain.AccountSnapshot) error {
	if err := x.connected(); err != nil {
		return err
	}
	if snapshot.Currency == "" || snapshot.Owner == uuid.Nil {
		return errors.New("cannot save snapshot without currency and owner")
	}
	query, args, err := x.saveQuery(snapshot, time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := x.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write account %s: %w", snapshot.Key(), err)
	}
	return nil
}

func (x *Store) Delete(ctx context.Context, currency string, owner uuid.UUID) error {
	if err := x.connected(); err != nil {
		return err
	}
	query, args, err := x.deleteQuery(currency, owner)
	if err != nil {
		return err
	}
	if _, err := x.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete account %s:%s: %w", currency, owner, err)
	}
	return nil
}

func (x *Store) List(ctx context.Context, currency string) ([]domain.AccountSnapshot, error) {
	if err := x.connected(); err != nil {
		return nil, err
	}
	query, args, err := x.listQuery(currency)
	if err != nil {
		return nil, err
	}

	rows, err := x.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts of %s: %w", currency, err)
	}
	defer rows.Close()

	result := make([]domain.AccountSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account of %s: %w", currency, err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts of %s: %w", currency, err)
	}
	return result, nil
}

func scanSnapshot(row pgx.Row) (domain.AccountSnapshot, error) {
	var (
		snap       domain.AccountSnapshot
		balanceRaw string
	)
	if err := row.Scan(&snap.Currency, &snap.Owner, &snap.Virtual, &balanceRaw, &snap.UpdatedAt); err != nil {
		return domain.AccountSnapshot{}, err
	}
	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("parse balance %q: %w", balanceRaw, err)
	}
	snap.Balance = balance
	return snap, nil
}

func createConnectionString(host string, port int, name, user string, password string) string {
	info := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", host, port, user, name)
	// only set the password when non-empty; an empty one confuses the driver
	if password != "" {
		info += fmt.Sprintf(" password=%s", password)
	}
	return info
}
