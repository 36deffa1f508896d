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
)

// ClaimRepo implements ports.ClaimRepository.
type ClaimRepo struct {
	pool Pool
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(pool Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

const claimColumns = `id, user_id, beneficiary_id, amount_cents, currency, reason, status,
		fraud_score, fraud_indicators, rejection_reason, created_at, decided_at`

// Create inserts a scored claim.
func (r *ClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	query := `INSERT INTO claims (id, user_id, beneficiary_id, amount_cents, currency, reason, status,
		fraud_score, fraud_indicators, rejection_reason, created_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.BeneficiaryID, c.AmountCents, c.Currency, c.Reason, c.Status,
		c.FraudScore, c.FraudIndicators, c.RejectionReason, c.CreatedAt, c.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByID fetches a claim by UUID.
func (r *ClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	return scanClaim(r.pool.QueryRow(ctx, query, id))
}

// CountByUser returns the user's lifetime claim count.
func (r *ClaimRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM claims WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return count, nil
}

// CountByUserSince returns the user's claim count from since onward.
func (r *ClaimRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM claims WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims since: %w", err)
	}
	return count, nil
}

// UpdateDecision moves a claim to a terminal status. The guard on the
// current status makes the transition race-safe: a second decision matches
// zero rows.
func (r *ClaimRepo) UpdateDecision(ctx context.Context, id uuid.UUID, status domain.ClaimStatus, reason *string, decidedAt time.Time) error {
	query := `UPDATE claims SET status = $1, rejection_reason = $2, decided_at = $3
		WHERE id = $4 AND status IN ('pending', 'review')`

	tag, err := r.pool.Exec(ctx, query, status, reason, decidedAt, id)
	if err != nil {
		return fmt.Errorf("update claim decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim %s: %w", id, ports.ErrClaimDecided)
	}
	return nil
}

// List fetches claims with filtering and pagination.
func (r *ClaimRepo) List(ctx context.Context, params ports.ClaimListParams) ([]domain.Claim, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *params.UserID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM claims %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+claimColumns+` FROM claims %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		c := domain.Claim{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.BeneficiaryID, &c.AmountCents, &c.Currency, &c.Reason, &c.Status,
			&c.FraudScore, &c.FraudIndicators, &c.RejectionReason, &c.CreatedAt, &c.DecidedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan claim row: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate claim rows: %w", err)
	}
	return claims, total, nil
}

// scanClaim is a helper to scan a single row into a Claim.
func scanClaim(row pgx.Row) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.BeneficiaryID, &c.AmountCents, &c.Currency, &c.Reason, &c.Status,
		&c.FraudScore, &c.FraudIndicators, &c.RejectionReason, &c.CreatedAt, &c.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	return c, nil
}
