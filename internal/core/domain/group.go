package domain

import (
	"time"

	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
)

// Group is a stokvel savings group. The ledger only needs its identity and
// minimum contribution; membership administration lives elsewhere.
type Group struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	ContributionCents int64     `json:"-"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

// ContributionAmount returns the group's minimum contribution as Money.
func (g *Group) ContributionAmount() money.Money {
	return money.FromCents(g.ContributionCents, g.Currency)
}

// GroupMember links a user to a group. Only active members may contribute.
type GroupMember struct {
	ID       uuid.UUID `json:"id"`
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"user_id"`
	Active   bool      `json:"active"`
	JoinedAt time.Time `json:"joined_at"`
}
