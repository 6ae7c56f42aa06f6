package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Repository persists OTP sessions. RecordFailure and MarkVerified are
// conditional: they apply in a single statement or report ErrStale.
type Repository interface {
	Create(ctx context.Context, session Session) error
	Latest(ctx context.Context, phone string) (Session, error)
	FindByID(ctx context.Context, id string) (Session, error)
	// RecordFailure increments attempts while the session is unverified and
	// below maxAttempts, returning the new count.
	RecordFailure(ctx context.Context, id string, maxAttempts int) (int, error)
	// MarkVerified flips verified once, only if code matches, attempts are
	// below maxAttempts and the session has not expired at now.
	MarkVerified(ctx context.Context, id, code string, maxAttempts int, now time.Time) error
	// PurgeExpired deletes up to limit sessions that expired before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// PostgresRepository stores sessions in the otp_sessions table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, phone, code, created_at, expires_at, attempts, verified, ip`

// Create inserts a session.
func (r *PostgresRepository) Create(ctx context.Context, s Session) error {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO otp_sessions (`+sessionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, s.Phone, s.Code, s.CreatedAt.UTC(), s.ExpiresAt.UTC(), s.Attempts, s.Verified, s.IP)
	return err
}

// Latest returns the most recent session for phone.
func (r *PostgresRepository) Latest(ctx context.Context, phone string) (Session, error) {
	return r.one(ctx, `SELECT `+sessionColumns+` FROM otp_sessions
        WHERE phone = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, phone)
}

// FindByID returns a session by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Session, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return Session{}, ErrNoSession
	}
	return r.one(ctx, `SELECT `+sessionColumns+` FROM otp_sessions WHERE id = $1`, sessionID)
}

// RecordFailure increments the attempt counter in place.
func (r *PostgresRepository) RecordFailure(ctx context.Context, id string, maxAttempts int) (int, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNoSession
	}
	var attempts int
	err = r.db.QueryRow(ctx, `UPDATE otp_sessions SET attempts = attempts + 1
        WHERE id = $1 AND attempts < $2 AND verified = FALSE
        RETURNING attempts`, sessionID, maxAttempts).Scan(&attempts)
	if infra.IsNoRows(err) {
		return 0, ErrStale
	}
	return attempts, err
}

// MarkVerified sets verified in place.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id, code string, maxAttempts int, now time.Time) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return ErrNoSession
	}
	cmd, err := r.db.Exec(ctx, `UPDATE otp_sessions SET verified = TRUE
        WHERE id = $1 AND code = $2 AND verified = FALSE AND attempts < $3 AND expires_at >= $4`,
		sessionID, code, maxAttempts, now.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// PurgeExpired deletes one batch of sessions that expired before cutoff.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM otp_sessions WHERE id IN (
        SELECT id FROM otp_sessions WHERE expires_at < $1 LIMIT $2)`, cutoff.UTC(), limit)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, query, args...))
	if infra.IsNoRows(err) {
		return Session{}, ErrNoSession
	}
	return s, err
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		id uuid.UUID
		s  Session
	)
	if err := row.Scan(&id, &s.Phone, &s.Code, &s.CreatedAt, &s.ExpiresAt, &s.Attempts, &s.Verified, &s.IP); err != nil {
		return Session{}, err
	}
	s.ID = id.String()
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return s, nil
}
