package postgres

import (
	"context"
	"errors"
	"fmt"

	"stokvel-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserDirectory over the platform's users table.
// The ledger only reads from it.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, account_number, created_at FROM users WHERE id = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.AccountNumber, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByAccountNumber fetches a user by their 10-digit account number.
func (r *UserRepo) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.User, error) {
	query := `SELECT id, account_number, created_at FROM users WHERE account_number = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, accountNumber).Scan(&u.ID, &u.AccountNumber, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by account number: %w", err)
	}
	return u, nil
}
