package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, wallet_id, type, amount_cents, fee_cents, net_amount_cents,
		currency, status, reference, description, transfer_id, counterparty_user_id, created_at, completed_at`

// Create inserts a new transaction within a database transaction. A unique
// violation on the reference column surfaces as ports.ErrDuplicateReference.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, user_id, wallet_id, type, amount_cents, fee_cents, net_amount_cents,
		currency, status, reference, description, transfer_id, counterparty_user_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.UserID, t.WalletID, t.Type,
		t.AmountCents, t.FeeCents, t.NetAmountCents,
		t.Currency, t.Status, t.Reference, t.Description,
		t.TransferID, t.CounterpartyUserID,
		t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "reference") {
			return ports.ErrDuplicateReference
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its unique reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// SumCompletedInWindow returns the signed sum of a user's completed
// transactions of one type inside [from, to). Runs on the supplied
// transaction so the read shares the caller's isolation and locks.
func (r *TransactionRepo) SumCompletedInWindow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, txType domain.TransactionType, from, to time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = $1 AND type = $2 AND status = 'completed'
		AND created_at >= $3 AND created_at < $4`

	var sum int64
	err := tx.QueryRow(ctx, query, userID, txType, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions in window: %w", err)
	}
	return sum, nil
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, params.UserID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+transactionColumns+` FROM transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.UserID, &t.WalletID, &t.Type,
			&t.AmountCents, &t.FeeCents, &t.NetAmountCents,
			&t.Currency, &t.Status, &t.Reference, &t.Description,
			&t.TransferID, &t.CounterpartyUserID,
			&t.CreatedAt, &t.CompletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.WalletID, &t.Type,
		&t.AmountCents, &t.FeeCents, &t.NetAmountCents,
		&t.Currency, &t.Status, &t.Reference, &t.Description,
		&t.TransferID, &t.CounterpartyUserID,
		&t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
