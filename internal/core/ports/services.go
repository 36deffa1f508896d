package ports

import (
	"context"
	"time"

	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
)

// LedgerService is the transaction engine: each operation is atomic and
// idempotent under a client-supplied key.
type LedgerService interface {
	Deposit(ctx context.Context, req DepositRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Contribute(ctx context.Context, req ContributeRequest) (*ContributionResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (money.Money, error)
	GetTransaction(ctx context.Context, userID uuid.UUID, reference string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListContributions(ctx context.Context, groupID, userID uuid.UUID) ([]domain.Contribution, error)
}

// DepositRequest holds validated input for a wallet deposit.
type DepositRequest struct {
	UserID         uuid.UUID
	Amount         money.Money
	CardRef        string
	Description    string
	IdempotencyKey string // optional client retry token
}

// WithdrawRequest holds validated input for a wallet withdrawal.
type WithdrawRequest struct {
	UserID            uuid.UUID
	Amount            money.Money
	BankAccountNumber string
	Description       string
	IdempotencyKey    string
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
type TransferRequest struct {
	SenderID               uuid.UUID
	RecipientAccountNumber string
	Amount                 money.Money
	Description            string
	IdempotencyKey         string
}

// TransferResult carries both sides of a completed transfer.
type TransferResult struct {
	TransferID uuid.UUID
	Outgoing   *domain.Transaction
	Incoming   *domain.Transaction
}

// ContributeRequest holds validated input for a group contribution.
type ContributeRequest struct {
	UserID         uuid.UUID
	GroupID        uuid.UUID
	Amount         money.Money
	Method         domain.ContributionMethod
	CardRef        string // required for the bank method
	IdempotencyKey string
}

// ContributionResult carries the contribution record and its mirrored
// statement transaction.
type ContributionResult struct {
	Contribution *domain.Contribution
	Transaction  *domain.Transaction
}

// ClaimService runs the claim submission and review workflow.
type ClaimService interface {
	Submit(ctx context.Context, req SubmitClaimRequest) (*domain.Claim, error)
	Decide(ctx context.Context, req DecideClaimRequest) (*domain.Claim, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	List(ctx context.Context, params ClaimListParams) ([]domain.Claim, int64, error)
}

// SubmitClaimRequest holds validated input for claim submission.
type SubmitClaimRequest struct {
	UserID        uuid.UUID
	Amount        money.Money
	Reason        string
	BeneficiaryID *uuid.UUID
	Documents     []domain.ClaimDocument
}

// ClaimDecision is the review outcome requested by a privileged caller.
type ClaimDecision string

const (
	ClaimDecisionApprove ClaimDecision = "approve"
	ClaimDecisionReject  ClaimDecision = "reject"
)

// DecideClaimRequest holds validated input for a claim decision.
type DecideClaimRequest struct {
	ClaimID  uuid.UUID
	Decision ClaimDecision
	Reason   string // required for reject
}

// FraudScorer produces a risk score in [0,1] and an ordered list of
// human-readable indicators. It is pure over its input: identical input
// yields identical output.
type FraudScorer interface {
	Score(ctx context.Context, in ScoreInput) (float64, []string)
}

// ScoreInput is everything the scorer looks at, prefetched by the caller so
// scoring stays deterministic.
type ScoreInput struct {
	Amount               money.Money
	RecentClaimCount     int        // claims by this user in the trailing window
	PriorClaimCount      int        // lifetime claims, model feature
	BeneficiaryCreatedAt *time.Time // nil when no beneficiary named
	Documents            []domain.ClaimDocument
	Now                  time.Time
}

// FundingSource authorizes external card/bank funding. The ledger treats it
// as an opaque yes/no.
type FundingSource interface {
	Authorize(ctx context.Context, userID uuid.UUID, cardRef string, amount money.Money) error
}

// EventPublisher emits domain events after a commit succeeds. Best-effort:
// publish failures are logged, never rolled into the financial outcome.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
