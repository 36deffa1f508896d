package postgres

import (
	"context"
	"errors"
	"fmt"

	"stokvel-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GroupRepo implements ports.GroupRepository.
type GroupRepo struct {
	pool Pool
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(pool Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// GetByID fetches a group by UUID.
func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, name, contribution_cents, currency, created_at FROM groups WHERE id = $1`

	g := &domain.Group{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.ContributionCents, &g.Currency, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	return g, nil
}

// GetMember fetches a user's membership record in a group.
func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `SELECT id, group_id, user_id, active, joined_at FROM group_members
		WHERE group_id = $1 AND user_id = $2`

	m := &domain.GroupMember{}
	err := r.pool.QueryRow(ctx, query, groupID, userID).Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.Active, &m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group member: %w", err)
	}
	return m, nil
}
