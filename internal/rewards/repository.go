package rewards

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Repository persists rewards.
type Repository interface {
	Create(ctx context.Context, reward Reward) error
	FindByID(ctx context.Context, id string) (Reward, error)
	ListByUser(ctx context.Context, userID string) ([]Reward, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
}

// PostgresRepository stores rewards in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const rewardColumns = `id, user_id, type, tier, value, status, created_at`

func (r *PostgresRepository) Create(ctx context.Context, reward Reward) error {
	rewardID, err := uuid.Parse(reward.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(reward.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO rewards (`+rewardColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rewardID, userID, string(reward.Type), reward.Tier, reward.Value, string(reward.Status), reward.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Reward, error) {
	rewardID, err := uuid.Parse(id)
	if err != nil {
		return Reward{}, ErrNotFound
	}
	reward, err := scanReward(r.db.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, rewardID))
	if infra.IsNoRows(err) {
		return Reward{}, ErrNotFound
	}
	return reward, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Reward, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE user_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, reward)
	}
	return list, rows.Err()
}

// UpdateStatus applies from -> to in one conditional statement.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	rewardID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE rewards SET status = $1 WHERE id = $2 AND status = $3`, string(to), rewardID, string(from))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rewards WHERE id = $1)`, rewardID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	rewardID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, rewardID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReward(row pgx.Row) (Reward, error) {
	var (
		id, userID  uuid.UUID
		kind, state string
		reward      Reward
	)
	if err := row.Scan(&id, &userID, &kind, &reward.Tier, &reward.Value, &state, &reward.CreatedAt); err != nil {
		return Reward{}, err
	}
	reward.ID = id.String()
	reward.UserID = userID.String()
	reward.Type = Type(kind)
	reward.Status = Status(state)
	reward.CreatedAt = reward.CreatedAt.UTC()
	return reward, nil
}
