package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"billed/internal/core"
	"billed/internal/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ store.Repository = (*SQLiteRepository)(nil)

const billColumns = `id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements store.Repository
func (r *SQLiteRepository) Insert(ctx context.Context, b core.Bill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		billArgs(b)...)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("insert bill %s: %w", b.ID, store.ErrAlreadyExists)
		}
		return fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill inserted into SQLite",
		"id", b.ID,
		"email", b.Email,
		"status", b.Status)
	return nil
}

// Save implements store.Repository
func (r *SQLiteRepository) Save(ctx context.Context, b core.Bill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			type = excluded.type,
			name = excluded.name,
			amount = excluded.amount,
			date = excluded.date,
			vat = excluded.vat,
			pct = excluded.pct,
			commentary = excluded.commentary,
			file_url = excluded.file_url,
			file_name = excluded.file_name,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		billArgs(b)...)
	if err != nil {
		return fmt.Errorf("save bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"amount", b.Amount,
		"date", b.Date,
		"status", b.Status)
	return nil
}

// Get implements store.Repository
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return b, nil
}

// List implements store.Repository
func (r *SQLiteRepository) List(ctx context.Context, email string) ([]core.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills`
	var args []any
	if email != "" {
		query += ` WHERE email = ?`
		args = append(args, email)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(s scanner) (core.Bill, error) {
	var (
		b        core.Bill
		status   string
		fileURL  sql.NullString
		fileName sql.NullString
	)
	err := s.Scan(&b.ID, &b.Email, &b.Type, &b.Name, &b.Amount, &b.Date, &b.VAT, &b.Pct,
		&b.Commentary, &fileURL, &fileName, &status)
	if err != nil {
		return core.Bill{}, err
	}
	b.Status = core.Status(status)
	if fileURL.Valid {
		b.FileURL = core.StringPtr(fileURL.String)
	}
	if fileName.Valid {
		b.FileName = core.StringPtr(fileName.String)
	}
	return b, nil
}

func billArgs(b core.Bill) []any {
	return []any{
		b.ID, b.Email, b.Type, b.Name, b.Amount, b.Date, b.VAT, b.Pct, b.Commentary,
		nullString(b.FileURL), nullString(b.FileName), string(b.Status),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
