package domain

import (
	"time"

	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeTransferOut  TransactionType = "transfer_out"
	TransactionTypeTransferIn   TransactionType = "transfer_in"
	TransactionTypeContribution TransactionType = "contribution"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry. Amounts are signed minor units:
// negative for outflows (transfer_out net, withdrawal net), positive for
// inflows. Once Status is completed no field mutates.
type Transaction struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"user_id"`
	WalletID           uuid.UUID         `json:"wallet_id"`
	Type               TransactionType   `json:"type"`
	AmountCents        int64             `json:"amount_cents"`
	FeeCents           int64             `json:"fee_cents"`
	NetAmountCents     int64             `json:"net_amount_cents"`
	Currency           string            `json:"currency"`
	Status             TransactionStatus `json:"status"`
	Reference          string            `json:"reference"`
	Description        string            `json:"description,omitempty"`
	TransferID         *uuid.UUID        `json:"transfer_id,omitempty"`
	CounterpartyUserID *uuid.UUID        `json:"counterparty_user_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

// Amount returns the signed gross amount as Money.
func (t *Transaction) Amount() money.Money {
	return money.FromCents(t.AmountCents, t.Currency)
}

// Fee returns the fee as Money.
func (t *Transaction) Fee() money.Money {
	return money.FromCents(t.FeeCents, t.Currency)
}

// NetAmount returns the signed net effect on the wallet as Money.
func (t *Transaction) NetAmount() money.Money {
	return money.FromCents(t.NetAmountCents, t.Currency)
}

// IsCompleted reports whether the transaction reached its terminal success
// state.
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}
