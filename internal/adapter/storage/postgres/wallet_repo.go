package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stokvel-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, balance_cents, currency, created_at, updated_at`

// GetOrCreate returns the user's wallet, inserting a zero-balance one on
// first access. ON CONFLICT DO NOTHING makes concurrent first access safe:
// both callers end up reading the single surviving row.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error) {
	now := time.Now().UTC()
	insert := `INSERT INTO wallets (id, user_id, balance_cents, currency, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, insert, uuid.New(), userID, currency, now); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	w, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("wallet missing after insert for user %s", userID)
	}
	return w, nil
}

// GetByUserID fetches a wallet by user ID (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.BalanceCents, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by user id: %w", err)
	}
	return w, nil
}

// GetForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, walletID).Scan(
		&w.ID, &w.UserID, &w.BalanceCents, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateBalance sets a wallet's balance within a database transaction. The
// caller holds the row lock; the CHECK constraint on balance_cents is the
// final guard against overdraft.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balanceCents int64) error {
	query := `UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balanceCents, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}
