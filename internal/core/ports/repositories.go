package ports

import (
	"context"
	"errors"
	"time"

	"stokvel-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateReference is returned by TransactionRepository.Create when the
// reference column's unique constraint rejects the row. The ledger retries
// the whole operation with a fresh reference.
var ErrDuplicateReference = errors.New("duplicate transaction reference")

// ErrClaimDecided is returned by ClaimRepository.UpdateDecision when the
// status guard matches no row: the claim is gone or already terminal.
var ErrClaimDecided = errors.New("claim already decided")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking.
type WalletRepository interface {
	// GetOrCreate returns the user's wallet, creating a zero-balance one on
	// first access. Safe under concurrent first access for the same user.
	GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balanceCents int64) error
}

// TransactionRepository defines persistence operations for the immutable
// transaction ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// SumCompletedInWindow returns the signed sum of completed transactions
	// of one type for a user inside [from, to). Called with the row locks
	// already held so the read and the subsequent write share one atomic
	// unit.
	SumCompletedInWindow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, txType domain.TransactionType, from, to time.Time) (int64, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for statement queries.
type TransactionListParams struct {
	UserID   uuid.UUID
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	Page     int
	PageSize int
}

// UserDirectory is the ledger's read-only view of the identity service's
// user store: transfer addressing and beneficiary account age.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.User, error)
}

// GroupRepository resolves stokvel groups and memberships for contribution
// checks.
type GroupRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error)
}

// ContributionRepository persists group-side contribution records.
type ContributionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, c *domain.Contribution) error
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]domain.Contribution, error)
}

// ClaimRepository defines persistence for claims and the counts the fraud
// rules need.
type ClaimRepository interface {
	Create(ctx context.Context, c *domain.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, status domain.ClaimStatus, reason *string, decidedAt time.Time) error
	List(ctx context.Context, params ClaimListParams) ([]domain.Claim, int64, error)
}

// ClaimListParams holds filter + pagination for the review queue.
type ClaimListParams struct {
	UserID   *uuid.UUID
	Status   *domain.ClaimStatus
	Page     int
	PageSize int
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup
// behind the Redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
