package domain

import (
	"time"

	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
)

// ClaimStatus represents the review lifecycle of a claim.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusReview   ClaimStatus = "review"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Claim is a beneficiary payout request subject to fraud review. The
// submitting user never mutates it after submission; only the review
// workflow transitions it, and approved/rejected are terminal.
type Claim struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	BeneficiaryID   *uuid.UUID  `json:"beneficiary_id,omitempty"`
	AmountCents     int64       `json:"amount_cents"`
	Currency        string      `json:"currency"`
	Reason          string      `json:"reason"`
	Status          ClaimStatus `json:"status"`
	FraudScore      float64     `json:"fraud_score"`
	FraudIndicators []string    `json:"fraud_indicators"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	DecidedAt       *time.Time  `json:"decided_at,omitempty"`
}

// Amount returns the claimed amount as Money.
func (c *Claim) Amount() money.Money {
	return money.FromCents(c.AmountCents, c.Currency)
}

// IsDecided reports whether the claim reached a terminal state.
func (c *Claim) IsDecided() bool {
	return c.Status == ClaimStatusApproved || c.Status == ClaimStatusRejected
}

// DocumentKind classifies an uploaded claim document for fraud analysis.
type DocumentKind string

const (
	DocumentKindText  DocumentKind = "text"
	DocumentKindImage DocumentKind = "image"
)

// ClaimDocument is the in-memory view of an uploaded supporting document.
// Storage of the file itself is an external concern; the scorer only sees
// the bytes.
type ClaimDocument struct {
	Name string
	Kind DocumentKind
	Data []byte
}
