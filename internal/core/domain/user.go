package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the ledger's read-only view of a platform user: identity, the
// 10-digit account number used to address transfers, and the account age
// the fraud scorer inspects. Everything else about users is owned by the
// identity service.
type User struct {
	ID            uuid.UUID `json:"id"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}
