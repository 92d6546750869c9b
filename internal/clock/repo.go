package clock

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repository methods run
// unchanged inside the day-lock transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository persists time-clock data in Postgres.
type PostgresRepository struct {
	q    querier
	root *sql.DB
}

// NewPostgresRepository creates a repo over an open connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{q: db, root: db}
}

const eventColumns = `id, employee_id, company_id, action, occurred_at, source, latitude, longitude, photo_url, note, created_by, created_at`

// WithDayLock runs fn inside a transaction holding a Postgres advisory lock
// keyed on (employee, day). Concurrent submits for the same key queue behind
// the lock and re-validate against the committed last record; disjoint keys
// proceed in parallel. The lock releases on commit or rollback.
func (r *PostgresRepository) WithDayLock(ctx context.Context, employeeID, day string, fn func(Repository) error) error {
	tx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, employeeID+"/"+day); err != nil {
		return err
	}
	if err := fn(&PostgresRepository{q: tx, root: r.root}); err != nil {
		return err
	}
	return tx.Commit()
}

// LastEventBetween returns the employee's most recent event in [from, to),
// or nil when the day has none.
func (r *PostgresRepository) LastEventBetween(ctx context.Context, employeeID string, from, to time.Time) (*TimeRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM time_records
		WHERE employee_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC
		LIMIT 1
	`, employeeID, from, to)
	rec, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertEvent writes a new immutable event row.
func (r *PostgresRepository) InsertEvent(ctx context.Context, rec TimeRecord) (TimeRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO time_records (id, employee_id, company_id, action, occurred_at, source, latitude, longitude, photo_url, note, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, rec.ID, rec.EmployeeID, rec.CompanyID, rec.Action, rec.OccurredAt, rec.Source, rec.Latitude, rec.Longitude, rec.PhotoURL, rec.Note, rec.CreatedBy)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return TimeRecord{}, err
	}
	return rec, nil
}

// EventsBetween lists one employee's events in [from, to) ordered by event time.
func (r *PostgresRepository) EventsBetween(ctx context.Context, employeeID string, from, to time.Time) ([]TimeRecord, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM time_records
		WHERE employee_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC
	`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// CompanyEventsBetween lists a company's events in [from, to) ordered by
// employee then event time, matching the regulatory file ordering.
func (r *PostgresRepository) CompanyEventsBetween(ctx context.Context, companyID string, from, to time.Time) ([]TimeRecord, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM time_records
		WHERE company_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY employee_id ASC, occurred_at ASC
	`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// EmployeesByCompany returns the full roster; eligibility filtering for file
// generation happens in the builder.
func (r *PostgresRepository) EmployeesByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, company_id, full_name, pis, status, created_at
		FROM employees
		WHERE company_id = $1
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.FullName, &e.PIS, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetCompany returns a company or nil when absent.
func (r *PostgresRepository) GetCompany(ctx context.Context, id string) (*Company, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, cnpj, legal_name, created_at FROM companies WHERE id = $1
	`, id)
	var c Company
	if err := row.Scan(&c.ID, &c.CNPJ, &c.LegalName, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// UpsertDailySummary stores recomputed day totals. The (employee, day) key
// makes recomputation idempotent.
func (r *PostgresRepository) UpsertDailySummary(ctx context.Context, employeeID string, day time.Time, workedMinutes, breakMinutes, overtimeMinutes int) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO daily_summaries (employee_id, day, worked_minutes, break_minutes, overtime_minutes)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (employee_id, day) DO UPDATE SET
			worked_minutes = EXCLUDED.worked_minutes,
			break_minutes = EXCLUDED.break_minutes,
			overtime_minutes = EXCLUDED.overtime_minutes,
			updated_at = NOW()
	`, employeeID, day, workedMinutes, breakMinutes, overtimeMinutes)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *PostgresRepository) SaveRefreshToken(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (client_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, clientID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (TimeRecord, error) {
	var rec TimeRecord
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.CompanyID, &rec.Action, &rec.OccurredAt,
		&rec.Source, &rec.Latitude, &rec.Longitude, &rec.PhotoURL, &rec.Note, &rec.CreatedBy, &rec.CreatedAt)
	return rec, err
}

func collectEvents(rows *sql.Rows) ([]TimeRecord, error) {
	defer rows.Close()
	var out []TimeRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
