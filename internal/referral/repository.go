package referral

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Repository persists referral rows.
type Repository interface {
	Create(ctx context.Context, referral Referral) error
	FindByID(ctx context.Context, id string) (Referral, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]Referral, error)
	CountByReferrer(ctx context.Context, referrerID string) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// PostgresRepository stores referrals in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a referral. The unique constraint on referred_user_id
// enforces a single referrer per user.
func (r *PostgresRepository) Create(ctx context.Context, referral Referral) error {
	id, err := uuid.Parse(referral.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO referrals (id, referrer_id, referred_user_id, status, link, created_at)
        VALUES ($1, $2::uuid, $3::uuid, $4, $5, $6)`,
		id, referral.ReferrerID, referral.ReferredUserID, string(referral.Status), referral.Link, referral.CreatedAt.UTC())
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByID fetches a referral.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Referral, error) {
	refID, err := uuid.Parse(id)
	if err != nil {
		return Referral{}, ErrNotFound
	}
	ref, err := scanReferral(r.db.QueryRow(ctx, `SELECT id, referrer_id, referred_user_id, status, link, created_at
        FROM referrals WHERE id = $1`, refID))
	if infra.IsNoRows(err) {
		return Referral{}, ErrNotFound
	}
	return ref, err
}

// ListByReferrer returns the referrals of referrerID, newest first.
func (r *PostgresRepository) ListByReferrer(ctx context.Context, referrerID string) ([]Referral, error) {
	if _, err := uuid.Parse(referrerID); err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, referrer_id, referred_user_id, status, link, created_at
        FROM referrals WHERE referrer_id = $1::uuid ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// CountByReferrer returns how many users referrerID brought in.
func (r *PostgresRepository) CountByReferrer(ctx context.Context, referrerID string) (int, error) {
	if _, err := uuid.Parse(referrerID); err != nil {
		return 0, nil
	}
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1::uuid`, referrerID).Scan(&n)
	return n, err
}

// UpdateStatus moves a referral from one status to another. The update only
// applies while the row is still in from.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	refID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE referrals SET status = $1 WHERE id = $2 AND status = $3`, string(to), refID, string(from))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// Delete removes a referral.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	refID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM referrals WHERE id = $1`, refID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of referrals.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM referrals`).Scan(&n)
	return n, err
}

func scanReferral(row pgx.Row) (Referral, error) {
	var (
		id, referrerID, referredID uuid.UUID
		status                     string
		ref                        Referral
	)
	if err := row.Scan(&id, &referrerID, &referredID, &status, &ref.Link, &ref.CreatedAt); err != nil {
		return Referral{}, err
	}
	ref.ID = id.String()
	ref.ReferrerID = referrerID.String()
	ref.ReferredUserID = referredID.String()
	ref.Status = Status(status)
	ref.CreatedAt = ref.CreatedAt.UTC()
	return ref, nil
}
