package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after a ledger or claim commit succeeds. Dispatching
// notifications off these events is a subscriber's job; nothing here runs
// inside the financial transaction boundary.
const (
	EventTransactionCompleted = "transaction.completed"
	EventClaimScored          = "claim.scored"
	EventClaimDecided         = "claim.decided"
)

// Stream names.
const (
	LedgerEventsStream = "ledger.events"
	ClaimEventsStream  = "claim.events"
)

// Event is the envelope written to the event stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionCompletedEvent is emitted once per completed transaction row,
// so a transfer emits two (one per party).
type TransactionCompletedEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          TransactionType `json:"type"`
	AmountCents   int64           `json:"amount_cents"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
}

// ClaimScoredEvent is emitted when a submitted claim has been scored.
type ClaimScoredEvent struct {
	ClaimID    uuid.UUID   `json:"claim_id"`
	UserID     uuid.UUID   `json:"user_id"`
	FraudScore float64     `json:"fraud_score"`
	Status     ClaimStatus `json:"status"`
	Indicators []string    `json:"indicators"`
}

// ClaimDecidedEvent is emitted when a claim reaches a terminal decision.
type ClaimDecidedEvent struct {
	ClaimID uuid.UUID   `json:"claim_id"`
	UserID  uuid.UUID   `json:"user_id"`
	Status  ClaimStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}
