package postgres

import (
	"context"
	"errors"
	"fmt"

	"billed/internal/core"
	"billed/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the store.Repository interface at compile time.
var _ store.Repository = (*Store)(nil)

const billColumns = `id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status`

// Store provides Postgres-backed persistence for bills.
type Store struct {
	pool *pgxpool.Pool
}

// NewBillStore connects to databaseURL and applies the schema.
func NewBillStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL DEFAULT 0,
			date TEXT NOT NULL DEFAULT '',
			vat TEXT NOT NULL DEFAULT '',
			pct INTEGER NOT NULL DEFAULT 20,
			commentary TEXT NOT NULL DEFAULT '',
			file_url TEXT,
			file_name TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS bills_email_idx ON bills (email);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Insert adds a new bill row.
func (s *Store) Insert(ctx context.Context, b core.Bill) error {
	const query = `INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
	if _, err := s.pool.Exec(ctx, query, billArgs(b)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("insert bill %s: %w", b.ID, store.ErrAlreadyExists)
		}
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

// Save inserts the bill or replaces the row with the same id.
func (s *Store) Save(ctx context.Context, b core.Bill) error {
	const query = `INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			amount = EXCLUDED.amount,
			date = EXCLUDED.date,
			vat = EXCLUDED.vat,
			pct = EXCLUDED.pct,
			commentary = EXCLUDED.commentary,
			file_url = EXCLUDED.file_url,
			file_name = EXCLUDED.file_name,
			status = EXCLUDED.status,
			updated_at = NOW();`
	if _, err := s.pool.Exec(ctx, query, billArgs(b)...); err != nil {
		return fmt.Errorf("save bill: %w", err)
	}
	return nil
}

// Get fetches a bill by id.
func (s *Store) Get(ctx context.Context, id string) (core.Bill, error) {
	const query = `SELECT ` + billColumns + ` FROM bills WHERE id = $1;`
	b, err := scanBill(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return b, nil
}

// List returns bills in creation order, restricted to email unless it is empty.
func (s *Store) List(ctx context.Context, email string) ([]core.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills`
	var args []any
	if email != "" {
		query += ` WHERE email = $1`
		args = append(args, email)
	}
	query += ` ORDER BY created_at, id;`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

func scanBill(row pgx.Row) (core.Bill, error) {
	var (
		b      core.Bill
		amount int64
		pct    int32
		status string
	)
	if err := row.Scan(&b.ID, &b.Email, &b.Type, &b.Name, &amount, &b.Date, &b.VAT, &pct,
		&b.Commentary, &b.FileURL, &b.FileName, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Bill{}, store.ErrNotFound
		}
		return core.Bill{}, err
	}
	b.Amount = int(amount)
	b.Pct = int(pct)
	b.Status = core.Status(status)
	return b, nil
}

func billArgs(b core.Bill) []any {
	return []any{
		b.ID, b.Email, b.Type, b.Name, int64(b.Amount), b.Date, b.VAT, int32(b.Pct), b.Commentary,
		b.FileURL, b.FileName, string(b.Status),
	}
}
