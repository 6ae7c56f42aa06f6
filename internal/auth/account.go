package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumarche/aumarche/internal/infra"
)

// Account holds the credentials of a locally managed user. Its id is shared
// with the user profile.
type Account struct {
	ID           string
	Email        string
	Phone        string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

var errAccountNotFound = errors.New("account not found")

// AccountStore persists local accounts.
type AccountStore interface {
	Create(ctx context.Context, account Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByPhone(ctx context.Context, phone string) (Account, error)
	BumpTokenVersion(ctx context.Context, id string) error
}

// PostgresAccountStore implements AccountStore on the auth_accounts table.
type PostgresAccountStore struct {
	db *pgxpool.Pool
}

// NewPostgresAccountStore builds a Postgres-backed account store.
func NewPostgresAccountStore(db *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

const accountColumns = `id, COALESCE(email, ''), COALESCE(phone, ''), password_hash, token_version, created_at`

func (s *PostgresAccountStore) Create(ctx context.Context, account Account) error {
	id, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO auth_accounts (id, email, phone, password_hash, token_version, created_at)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`,
		id, account.Email, account.Phone, account.PasswordHash, account.TokenVersion, account.CreatedAt.UTC())
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, errAccountNotFound
	}
	return s.one(ctx, `SELECT `+accountColumns+` FROM auth_accounts WHERE id = $1`, accountID)
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.one(ctx, `SELECT `+accountColumns+` FROM auth_accounts WHERE email = $1`, email)
}

func (s *PostgresAccountStore) FindByPhone(ctx context.Context, phone string) (Account, error) {
	return s.one(ctx, `SELECT `+accountColumns+` FROM auth_accounts WHERE phone = $1`, phone)
}

func (s *PostgresAccountStore) BumpTokenVersion(ctx context.Context, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return errAccountNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE auth_accounts SET token_version = token_version + 1 WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errAccountNotFound
	}
	return nil
}

func (s *PostgresAccountStore) one(ctx context.Context, query string, args ...any) (Account, error) {
	var (
		id      uuid.UUID
		account Account
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(&id, &account.Email, &account.Phone,
		&account.PasswordHash, &account.TokenVersion, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, errAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	account.ID = id.String()
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

type memoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryAccountStore builds an in-memory account store for tests and local development.
func NewMemoryAccountStore() AccountStore {
	return &memoryAccountStore{accounts: make(map[string]Account)}
}

func (s *memoryAccountStore) Create(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.ID == account.ID ||
			(account.Email != "" && existing.Email == account.Email) ||
			(account.Phone != "" && existing.Phone == account.Phone) {
			return ErrDuplicate
		}
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *memoryAccountStore) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, errAccountNotFound
	}
	return account, nil
}

func (s *memoryAccountStore) FindByEmail(_ context.Context, email string) (Account, error) {
	return s.find(func(a Account) bool { return a.Email == email })
}

func (s *memoryAccountStore) FindByPhone(_ context.Context, phone string) (Account, error) {
	return s.find(func(a Account) bool { return a.Phone == phone })
}

func (s *memoryAccountStore) BumpTokenVersion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	account.TokenVersion++
	s.accounts[id] = account
	return nil
}

func (s *memoryAccountStore) find(match func(Account) bool) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if match(account) {
			return account, nil
		}
	}
	return Account{}, errAccountNotFound
}
