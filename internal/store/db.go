package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate creates the time-clock schema if missing. time_records is
// append-only; corrections are separate adjustment inputs to file
// generation, never updates here.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY,
			cnpj TEXT NOT NULL,
			legal_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL REFERENCES companies(id),
			full_name TEXT NOT NULL,
			pis TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS time_records (
			id UUID PRIMARY KEY,
			employee_id UUID NOT NULL REFERENCES employees(id),
			company_id UUID NOT NULL REFERENCES companies(id),
			action TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL DEFAULT 'web',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			photo_url TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS time_records_employee_day
			ON time_records (employee_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS time_records_company_range
			ON time_records (company_id, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			employee_id UUID NOT NULL REFERENCES employees(id),
			day DATE NOT NULL,
			worked_minutes INT NOT NULL DEFAULT 0,
			break_minutes INT NOT NULL DEFAULT 0,
			overtime_minutes INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (employee_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			client_id TEXT NOT NULL,
			token TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
