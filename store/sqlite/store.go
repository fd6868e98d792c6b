// Package sqlite provides SQLite-backed account persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"economy-ledger/domain"
	"economy-ledger/store"
	"economy-ledger/store/sqlite/migrations"
)

const migrationTable = "schema_migrations"

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store keeps account snapshots in a single SQLite table.
type Store struct {
	sqlDB *sql.DB
}

var _ store.Persistence = (*Store)(nil)

// Open opens a SQLite store at the provided path and applies pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{sqlDB: sqlDB}
	if err := s.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// runMigrations executes each embedded migration at most once.
func (s *Store) runMigrations() error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := s.sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := s.sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", file, err)
		}
		if _, err := tx.Exec(extractUpMigration(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUpMigration returns the SQL in the -- +migrate Up section.
func extractUpMigration(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, up)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, down)
	if downIdx == -1 {
		return content[upIdx+len(up):]
	}
	return content[upIdx+len(up) : downIdx]
}

func (s *Store) Load(ctx context.Context, currency string, owner uuid.UUID) (*domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT currency, owner, is_virtual, balance, updated_at
FROM ledger_accounts
WHERE currency = ? AND owner = ?
`, currency, owner.String())

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s:%s", store.ErrNotFound, currency, owner)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &snap, nil
}

func (s *Store) Save(ctx context.Context, snapshot domain.AccountSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(snapshot.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	if snapshot.Owner == uuid.Nil {
		return fmt.Errorf("owner is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO ledger_accounts (
	currency, owner, is_virtual, balance, updated_at
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(currency, owner) DO UPDATE SET
	is_virtual = excluded.is_virtual,
	balance = excluded.balance,
	updated_at = excluded.updated_at
`,
		snapshot.Currency,
		snapshot.Owner.String(),
		snapshot.Virtual,
		snapshot.Balance.String(),
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, currency string, owner uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM ledger_accounts WHERE currency = ? AND owner = ?`,
		currency, owner.String(),
	); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, currency string) ([]domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT currency, owner, is_virtual, balance, updated_at
FROM ledger_accounts
WHERE currency = ?
ORDER BY owner
`, currency)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	result := make([]domain.AccountSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (domain.AccountSnapshot, error) {
	var (
		snap       domain.AccountSnapshot
		ownerRaw   string
		balanceRaw string
		updatedAt  int64
	)
	if err := row.Scan(&snap.Currency, &ownerRaw, &snap.Virtual, &balanceRaw, &updatedAt); err != nil {
		return domain.AccountSnapshot{}, err
	}
	owner, err := uuid.Parse(ownerRaw)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("parse owner %q: %w", ownerRaw, err)
	}
	balance, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("parse balance %q: %w", balanceRaw, err)
	}
	snap.Owner = owner
	snap.Balance = balance
	snap.UpdatedAt = fromMillis(updatedAt)
	return snap, nil
}
