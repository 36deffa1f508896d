package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContributionMethod is how a group contribution was funded.
type ContributionMethod string

const (
	ContributionMethodWallet ContributionMethod = "wallet"
	ContributionMethodBank   ContributionMethod = "bank"
)

// Contribution is the group-side record of a member's payment, mirrored by a
// contribution Transaction on the member's statement.
type Contribution struct {
	ID            uuid.UUID          `json:"id"`
	MemberID      uuid.UUID          `json:"member_id"`
	GroupID       uuid.UUID          `json:"group_id"`
	UserID        uuid.UUID          `json:"user_id"`
	AmountCents   int64              `json:"amount_cents"`
	Currency      string             `json:"currency"`
	Method        ContributionMethod `json:"method"`
	TransactionID uuid.UUID          `json:"transaction_id"`
	CreatedAt     time.Time          `json:"created_at"`
}
