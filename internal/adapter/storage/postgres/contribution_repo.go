package postgres

import (
	"context"
	"fmt"

	"stokvel-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ContributionRepo implements ports.ContributionRepository.
type ContributionRepo struct {
	pool Pool
}

// NewContributionRepo creates a new ContributionRepo.
func NewContributionRepo(pool Pool) *ContributionRepo {
	return &ContributionRepo{pool: pool}
}

// Create inserts a contribution record within a database transaction, so it
// commits together with the statement transaction it mirrors.
func (r *ContributionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Contribution) error {
	query := `INSERT INTO contributions (id, member_id, group_id, user_id, amount_cents, currency, method, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.MemberID, c.GroupID, c.UserID,
		c.AmountCents, c.Currency, c.Method, c.TransactionID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}
	return nil
}

// ListByMember fetches a member's contribution history, newest first.
func (r *ContributionRepo) ListByMember(ctx context.Context, memberID uuid.UUID) ([]domain.Contribution, error) {
	query := `SELECT id, member_id, group_id, user_id, amount_cents, currency, method, transaction_id, created_at
		FROM contributions WHERE member_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []domain.Contribution
	for rows.Next() {
		c := domain.Contribution{}
		err := rows.Scan(
			&c.ID, &c.MemberID, &c.GroupID, &c.UserID,
			&c.AmountCents, &c.Currency, &c.Method, &c.TransactionID, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contribution row: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contribution rows: %w", err)
	}
	return contributions, nil
}
