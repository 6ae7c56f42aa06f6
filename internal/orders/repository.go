package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, order Order) error
	FindByID(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Revenue(ctx context.Context) (int64, error)
	TotalByUser(ctx context.Context, userID string) (int64, error)
	Recent(ctx context.Context, limit int) ([]Order, error)
}

// PostgresRepository stores orders in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, user_id, amount, status, created_at`

// Create inserts an order record.
func (r *PostgresRepository) Create(ctx context.Context, order Order) error {
	orderID, err := uuid.Parse(order.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(order.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
        VALUES ($1, $2, $3, $4, $5)`, orderID, userID, order.Amount, string(order.Status), order.CreatedAt.UTC())
	return err
}

// FindByID fetches an order by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if infra.IsNoRows(err) {
		return Order{}, ErrNotFound
	}
	return order, err
}

// ListByUser returns the orders of userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	return r.many(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, id)
}

// UpdateStatus moves an order from one status to another, atomically.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
	if infra.IsNoRows(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, string(to), orderID, string(from))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Delete removes an order.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of orders.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

// Revenue returns the sum of every order amount.
func (r *PostgresRepository) Revenue(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM orders`).Scan(&sum)
	return sum, err
}

// TotalByUser returns the sum of the order amounts of userID.
func (r *PostgresRepository) TotalByUser(ctx context.Context, userID string) (int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return 0, nil
	}
	var sum int64
	err = r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM orders WHERE user_id = $1`, id).Scan(&sum)
	return sum, err
}

// Recent returns the latest orders, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Order, error) {
	return r.many(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepository) many(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		id, userID uuid.UUID
		status     string
		order      Order
	)
	if err := row.Scan(&id, &userID, &order.Amount, &status, &order.CreatedAt); err != nil {
		return Order{}, err
	}
	order.ID = id.String()
	order.UserID = userID.String()
	order.Status = Status(status)
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}
