package service

import (
	"context"
	"testing"
	"time"

	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimFixture struct {
	svc    *ClaimServiceImpl
	claims *fakeClaimRepo
	users  *fakeUserDirectory
	events *fakeEventPublisher
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	f := &claimFixture{
		claims: newFakeClaimRepo(),
		users:  newFakeUserDirectory(),
		events: newFakeEventPublisher(),
	}
	f.svc = NewClaimService(
		f.claims, f.users, newTestScorer(), f.events,
		testFraudConfig(), "ZAR", zerolog.Nop(),
	)
	return f
}

func TestSubmitClaim_CleanClaimIsPending(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusPending, claim.Status)
	assert.Empty(t, claim.FraudIndicators)
	assert.Less(t, claim.FraudScore, 0.7)
	assert.False(t, claim.IsDecided())

	events := f.events.byType(domain.EventClaimScored)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ClaimEventsStream, events[0].Stream)
}

func TestSubmitClaim_HighAmountGoesToReview(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "150000.00"),
		Reason: "Property damage",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusReview, claim.Status)
	assert.Contains(t, claim.FraudIndicators, indicatorHighAmount)
}

func TestSubmitClaim_RepeatClaimantsGoToReview(t *testing.T) {
	f := newClaimFixture(t)
	userID := uuid.New()

	// Four claims inside the trailing window trip the frequency rule on the
	// fifth.
	for i := 0; i < 4; i++ {
		_, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
			UserID: userID,
			Amount: mustMoney(t, "1000.00"),
			Reason: "Medical costs",
		})
		require.NoError(t, err)
	}

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: userID,
		Amount: mustMoney(t, "1000.00"),
		Reason: "Medical costs",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusReview, claim.Status)
	assert.Contains(t, claim.FraudIndicators, indicatorFrequentClaims)
}

func TestSubmitClaim_NewBeneficiaryGoesToReview(t *testing.T) {
	f := newClaimFixture(t)

	beneficiary := &domain.User{
		ID:            uuid.New(),
		AccountNumber: "1000000009",
		CreatedAt:     time.Now().UTC().AddDate(0, 0, -2),
	}
	f.users.add(beneficiary)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID:        uuid.New(),
		Amount:        mustMoney(t, "5000.00"),
		Reason:        "Funeral costs",
		BeneficiaryID: &beneficiary.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusReview, claim.Status)
	assert.Contains(t, claim.FraudIndicators, indicatorNewBeneficiary)
}

func TestSubmitClaim_UnknownBeneficiaryRejected(t *testing.T) {
	f := newClaimFixture(t)
	missing := uuid.New()

	_, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID:        uuid.New(),
		Amount:        mustMoney(t, "5000.00"),
		Reason:        "Funeral costs",
		BeneficiaryID: &missing,
	})
	assert.Equal(t, "VAL_002", appCode(t, err))
}

func TestSubmitClaim_Validation(t *testing.T) {
	f := newClaimFixture(t)

	_, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
	})
	assert.Equal(t, "VAL_002", appCode(t, err))

	_, err = f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: zar(-100),
		Reason: "Funeral costs",
	})
	assert.Equal(t, "VAL_001", appCode(t, err))
}

func TestDecideClaim_Approve(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID:  claim.ID,
		Decision: ports.ClaimDecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusApproved, decided.Status)
	assert.NotNil(t, decided.DecidedAt)
	assert.Nil(t, decided.RejectionReason)

	stored, err := f.svc.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusApproved, stored.Status)

	events := f.events.byType(domain.EventClaimDecided)
	require.Len(t, events, 1)
}

func TestDecideClaim_RejectRequiresReason(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID:  claim.ID,
		Decision: ports.ClaimDecisionReject,
	})
	assert.Equal(t, "CLM_004", appCode(t, err))

	decided, err := f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID:  claim.ID,
		Decision: ports.ClaimDecisionReject,
		Reason:   "Documents do not match the claim",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusRejected, decided.Status)
	require.NotNil(t, decided.RejectionReason)
	assert.Equal(t, "Documents do not match the claim", *decided.RejectionReason)
}

func TestDecideClaim_TerminalStatesAreImmutable(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: claim.ID, Decision: ports.ClaimDecisionApprove,
	})
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: claim.ID, Decision: ports.ClaimDecisionReject, Reason: "changed my mind",
	})
	assert.Equal(t, "CLM_002", appCode(t, err))
}

// staleClaimRepo serves reads from a fixed snapshot, modeling a competing
// decision landing between the service's read and its guarded update.
type staleClaimRepo struct {
	*fakeClaimRepo
	snapshot domain.Claim
}

func (r *staleClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	cp := r.snapshot
	return &cp, nil
}

func TestDecideClaim_RacedSecondDecisionIsConflict(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: uuid.New(),
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)

	// Both reviewers read the claim while it was still pending.
	f.svc.claimRepo = &staleClaimRepo{fakeClaimRepo: f.claims, snapshot: *claim}

	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: claim.ID, Decision: ports.ClaimDecisionApprove,
	})
	require.NoError(t, err)

	// The loser of the race gets a conflict, not an internal error.
	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: claim.ID, Decision: ports.ClaimDecisionReject, Reason: "duplicate claim",
	})
	assert.Equal(t, "CLM_002", appCode(t, err))
}

func TestDecideClaim_InvalidInput(t *testing.T) {
	f := newClaimFixture(t)

	_, err := f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: uuid.New(), Decision: "escalate",
	})
	assert.Equal(t, "CLM_003", appCode(t, err))

	_, err = f.svc.Decide(context.Background(), ports.DecideClaimRequest{
		ClaimID: uuid.New(), Decision: ports.ClaimDecisionApprove,
	})
	assert.Equal(t, "CLM_001", appCode(t, err))
}

func TestListClaims_FilterByStatus(t *testing.T) {
	f := newClaimFixture(t)
	userID := uuid.New()

	clean, err := f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: userID,
		Amount: mustMoney(t, "5000.00"),
		Reason: "Funeral costs",
	})
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), ports.SubmitClaimRequest{
		UserID: userID,
		Amount: mustMoney(t, "150000.00"),
		Reason: "Property damage",
	})
	require.NoError(t, err)

	review := domain.ClaimStatusReview
	claims, total, err := f.svc.List(context.Background(), ports.ClaimListParams{Status: &review})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, claims, 1)
	assert.NotEqual(t, clean.ID, claims[0].ID)
}
