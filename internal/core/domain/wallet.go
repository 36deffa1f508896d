package domain

import (
	"time"

	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
)

// Wallet is a user's internal cash balance. One wallet per user, created
// lazily on first financial operation. Balance never goes below zero on a
// committed operation.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"-"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Balance returns the balance as Money.
func (w *Wallet) Balance() money.Money {
	return money.FromCents(w.BalanceCents, w.Currency)
}
