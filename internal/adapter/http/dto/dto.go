package dto

import (
	"encoding/base64"

	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/pkg/money"
)

// Amounts cross the wire as decimal strings ("250.00") and are parsed into
// exact minor units at the boundary. Floats never touch money.

// DepositRequest is the request body for a wallet deposit.
type DepositRequest struct {
	Amount      string `json:"amount" binding:"required"`
	CardRef     string `json:"card_ref" binding:"required,max=64"`
	Description string `json:"description,omitempty" binding:"max=255"`
}

// WithdrawRequest is the request body for a wallet withdrawal.
type WithdrawRequest struct {
	Amount            string `json:"amount" binding:"required"`
	BankAccountNumber string `json:"bank_account_number" binding:"required,min=4,max=32"`
	Description       string `json:"description,omitempty" binding:"max=255"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	RecipientAccountNumber string `json:"recipient_account_number" binding:"required,len=10"`
	Amount                 string `json:"amount" binding:"required"`
	Description            string `json:"description,omitempty" binding:"max=255"`
}

// ContributeRequest is the request body for a group contribution.
type ContributeRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Method  string `json:"method" binding:"required,oneof=wallet bank"`
	CardRef string `json:"card_ref,omitempty" binding:"max=64"`
}

// SubmitClaimRequest is the request body for claim submission. Document
// content is base64 in transit.
type SubmitClaimRequest struct {
	Amount        string         `json:"amount" binding:"required"`
	Reason        string         `json:"reason" binding:"required,max=500"`
	BeneficiaryID *string        `json:"beneficiary_id,omitempty"`
	Documents     []ClaimDocument `json:"documents,omitempty" binding:"max=10,dive"`
}

// ClaimDocument is one uploaded supporting document.
type ClaimDocument struct {
	Name string `json:"name" binding:"required,max=128"`
	Kind string `json:"kind" binding:"required,oneof=text image"`
	Data string `json:"data" binding:"required"` // base64
}

// Decode converts the wire document into its domain form.
func (d ClaimDocument) Decode() (domain.ClaimDocument, error) {
	raw, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return domain.ClaimDocument{}, err
	}
	return domain.ClaimDocument{
		Name: d.Name,
		Kind: domain.DocumentKind(d.Kind),
		Data: raw,
	}, nil
}

// DecideClaimRequest is the request body for a claim decision.
type DecideClaimRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Reason   string `json:"reason,omitempty" binding:"max=500"`
}

// TransactionResponse is the wire form of a ledger transaction.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Fee         string  `json:"fee"`
	NetAmount   string  `json:"net_amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	Reference   string  `json:"reference"`
	Description string  `json:"description,omitempty"`
	TransferID  *string `json:"transfer_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// NewTransactionResponse maps a domain transaction to its wire form.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount().String(),
		Fee:         t.Fee().String(),
		NetAmount:   t.NetAmount().String(),
		Currency:    t.Currency,
		Status:      string(t.Status),
		Reference:   t.Reference,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.TransferID != nil {
		id := t.TransferID.String()
		resp.TransferID = &id
	}
	if t.CompletedAt != nil {
		ts := t.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.CompletedAt = &ts
	}
	return resp
}

// TransferResponse carries both legs of a completed transfer.
type TransferResponse struct {
	TransferID string              `json:"transfer_id"`
	Outgoing   TransactionResponse `json:"outgoing"`
	Incoming   TransactionResponse `json:"incoming"`
}

// ContributionResponse is the wire form of a recorded contribution.
type ContributionResponse struct {
	ID          string              `json:"id"`
	GroupID     string              `json:"group_id"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	Method      string              `json:"method"`
	Transaction TransactionResponse `json:"transaction"`
	CreatedAt   string              `json:"created_at"`
}

// ContributionRecord is one entry in a member's contribution history.
type ContributionRecord struct {
	ID            string `json:"id"`
	GroupID       string `json:"group_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	CreatedAt     string `json:"created_at"`
}

// NewContributionRecord maps a domain contribution to its wire form.
func NewContributionRecord(c *domain.Contribution) ContributionRecord {
	return ContributionRecord{
		ID:            c.ID.String(),
		GroupID:       c.GroupID.String(),
		Amount:        money.FromCents(c.AmountCents, c.Currency).String(),
		Currency:      c.Currency,
		Method:        string(c.Method),
		TransactionID: c.TransactionID.String(),
		CreatedAt:     c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ContributionListResponse wraps a member's contribution history.
type ContributionListResponse struct {
	Contributions []ContributionRecord `json:"contributions"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// NewBalanceResponse maps a balance to its wire form.
func NewBalanceResponse(m money.Money) BalanceResponse {
	return BalanceResponse{Balance: m.String(), Currency: m.Currency}
}

// ClaimResponse is the wire form of a claim.
type ClaimResponse struct {
	ID              string   `json:"id"`
	Amount          string   `json:"amount"`
	Currency        string   `json:"currency"`
	Reason          string   `json:"reason"`
	Status          string   `json:"status"`
	FraudScore      float64  `json:"fraud_score"`
	FraudIndicators []string `json:"fraud_indicators"`
	RejectionReason *string  `json:"rejection_reason,omitempty"`
	CreatedAt       string   `json:"created_at"`
	DecidedAt       *string  `json:"decided_at,omitempty"`
}

// NewClaimResponse maps a domain claim to its wire form.
func NewClaimResponse(c *domain.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:              c.ID.String(),
		Amount:          c.Amount().String(),
		Currency:        c.Currency,
		Reason:          c.Reason,
		Status:          string(c.Status),
		FraudScore:      c.FraudScore,
		FraudIndicators: c.FraudIndicators,
		RejectionReason: c.RejectionReason,
		CreatedAt:       c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if resp.FraudIndicators == nil {
		resp.FraudIndicators = []string{}
	}
	if c.DecidedAt != nil {
		ts := c.DecidedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.DecidedAt = &ts
	}
	return resp
}

// ListMeta carries pagination metadata.
type ListMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// TransactionListResponse wraps a paginated statement page.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Meta         ListMeta              `json:"meta"`
}

// ClaimListResponse wraps a paginated claim page.
type ClaimListResponse struct {
	Claims []ClaimResponse `json:"claims"`
	Meta   ListMeta        `json:"meta"`
}
