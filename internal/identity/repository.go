package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Repository persists user profiles.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByReferralCode(ctx context.Context, code string) (User, error)
	ListByIDs(ctx context.Context, ids []string) ([]User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	Recent(ctx context.Context, limit int) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, phone, role, referrer_id, referral_code, created_at, updated_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	var referrerID *uuid.UUID
	if user.ReferrerID != "" {
		parsed, err := uuid.Parse(user.ReferrerID)
		if err != nil {
			return err
		}
		referrerID = &parsed
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID, user.Name, user.Email, user.Phone, string(user.Role), referrerID, user.ReferralCode,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

// FindByReferralCode fetches the owner of a referral code.
func (r *PostgresRepository) FindByReferralCode(ctx context.Context, code string) (User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
}

// ListByIDs fetches every user whose id is in ids. Unknown ids are skipped.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]User, error) {
	parsed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		parsed = append(parsed, id)
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return r.many(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, parsed)
}

// ExistsByEmailOrPhone reports whether the email or the phone is already registered.
func (r *PostgresRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR phone = $2)`, email, phone).Scan(&exists)
	return exists, err
}

// ReferralCodeExists reports whether code is already assigned.
func (r *PostgresRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	return exists, err
}

// Update stores the mutable profile fields.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET name = $1, phone = $2, role = $3, updated_at = $4 WHERE id = $5`,
		user.Name, user.Phone, string(user.Role), user.UpdatedAt.UTC(), userID)
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if infra.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of users.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountSince returns the number of users created strictly after since.
func (r *PostgresRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE created_at > $1`, since.UTC()).Scan(&n)
	return n, err
}

// Recent returns the latest registered users, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]User, error) {
	return r.many(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if infra.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (r *PostgresRepository) many(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id         uuid.UUID
		referrerID *uuid.UUID
		role       string
		user       User
	)
	if err := row.Scan(&id, &user.Name, &user.Email, &user.Phone, &role, &referrerID,
		&user.ReferralCode, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	if referrerID != nil {
		user.ReferrerID = referrerID.String()
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}
