package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stokvel-ledger/config"
	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClaimServiceImpl implements ports.ClaimService: claims are scored at
// submission and only transition through the review workflow afterwards.
type ClaimServiceImpl struct {
	claimRepo ports.ClaimRepository
	userDir   ports.UserDirectory
	scorer    ports.FraudScorer
	publisher ports.EventPublisher
	cfg       config.FraudConfig
	currency  string
	log       zerolog.Logger

	now func() time.Time
}

// NewClaimService creates a new ClaimServiceImpl.
func NewClaimService(
	claimRepo ports.ClaimRepository,
	userDir ports.UserDirectory,
	scorer ports.FraudScorer,
	publisher ports.EventPublisher,
	cfg config.FraudConfig,
	currency string,
	log zerolog.Logger,
) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		claimRepo: claimRepo,
		userDir:   userDir,
		scorer:    scorer,
		publisher: publisher,
		cfg:       cfg,
		currency:  currency,
		log:       log,
		now:       time.Now,
	}
}

// Submit scores and persists a new claim. Claims the scorer flags land in
// review instead of pending.
func (s *ClaimServiceImpl) Submit(ctx context.Context, req ports.SubmitClaimRequest) (*domain.Claim, error) {
	if req.Amount.Currency != s.currency {
		return nil, apperror.ErrInvalidAmount("unsupported currency " + req.Amount.Currency)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount("amount must be positive")
	}
	if req.Reason == "" {
		return nil, apperror.Validation("Claim reason is required")
	}

	now := s.now().UTC()

	recentSince := now.AddDate(0, 0, -s.cfg.RecentClaimDays)
	recentCount, err := s.claimRepo.CountByUserSince(ctx, req.UserID, recentSince)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("count recent claims: %w", err))
	}
	priorCount, err := s.claimRepo.CountByUser(ctx, req.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("count claims: %w", err))
	}

	var beneficiaryCreatedAt *time.Time
	if req.BeneficiaryID != nil {
		beneficiary, err := s.userDir.GetByID(ctx, *req.BeneficiaryID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get beneficiary: %w", err))
		}
		if beneficiary == nil {
			return nil, apperror.Validation("Beneficiary not found")
		}
		createdAt := beneficiary.CreatedAt
		beneficiaryCreatedAt = &createdAt
	}

	score, indicators := s.scorer.Score(ctx, ports.ScoreInput{
		Amount:               req.Amount,
		RecentClaimCount:     recentCount,
		PriorClaimCount:      priorCount,
		BeneficiaryCreatedAt: beneficiaryCreatedAt,
		Documents:            req.Documents,
		Now:                  now,
	})

	status := domain.ClaimStatusPending
	if score > s.cfg.ReviewScore || len(indicators) > 0 {
		status = domain.ClaimStatusReview
	}

	claim := &domain.Claim{
		ID:              uuid.New(),
		UserID:          req.UserID,
		BeneficiaryID:   req.BeneficiaryID,
		AmountCents:     req.Amount.Cents,
		Currency:        req.Amount.Currency,
		Reason:          req.Reason,
		Status:          status,
		FraudScore:      score,
		FraudIndicators: indicators,
		CreatedAt:       now,
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create claim: %w", err))
	}

	s.publishClaimEvent(ctx, domain.EventClaimScored, domain.ClaimScoredEvent{
		ClaimID:    claim.ID,
		UserID:     claim.UserID,
		FraudScore: claim.FraudScore,
		Status:     claim.Status,
		Indicators: claim.FraudIndicators,
	})

	s.log.Info().
		Str("claim_id", claim.ID.String()).
		Str("user_id", claim.UserID.String()).
		Float64("fraud_score", score).
		Int("indicators", len(indicators)).
		Str("status", string(status)).
		Msg("claim submitted")

	return claim, nil
}

// Decide transitions a claim to approved or rejected. Decided claims are
// immutable.
func (s *ClaimServiceImpl) Decide(ctx context.Context, req ports.DecideClaimRequest) (*domain.Claim, error) {
	switch req.Decision {
	case ports.ClaimDecisionApprove, ports.ClaimDecisionReject:
	default:
		return nil, apperror.ErrInvalidDecision()
	}
	if req.Decision == ports.ClaimDecisionReject && req.Reason == "" {
		return nil, apperror.ErrRejectionReasonRequired()
	}

	claim, err := s.claimRepo.GetByID(ctx, req.ClaimID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get claim: %w", err))
	}
	if claim == nil {
		return nil, apperror.ErrClaimNotFound()
	}
	if claim.IsDecided() {
		return nil, apperror.ErrClaimAlreadyDecided()
	}

	status := domain.ClaimStatusApproved
	var reason *string
	if req.Decision == ports.ClaimDecisionReject {
		status = domain.ClaimStatusRejected
		reason = &req.Reason
	}

	decidedAt := s.now().UTC()
	if err := s.claimRepo.UpdateDecision(ctx, claim.ID, status, reason, decidedAt); err != nil {
		// A racing decision can land between the read above and this update;
		// the status guard in the repository catches it.
		if errors.Is(err, ports.ErrClaimDecided) {
			return nil, apperror.ErrClaimAlreadyDecided()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update claim: %w", err))
	}

	claim.Status = status
	claim.RejectionReason = reason
	claim.DecidedAt = &decidedAt

	event := domain.ClaimDecidedEvent{
		ClaimID: claim.ID,
		UserID:  claim.UserID,
		Status:  claim.Status,
	}
	if reason != nil {
		event.Reason = *reason
	}
	s.publishClaimEvent(ctx, domain.EventClaimDecided, event)

	s.log.Info().
		Str("claim_id", claim.ID.String()).
		Str("status", string(status)).
		Msg("claim decided")

	return claim, nil
}

// Get returns a claim by ID.
func (s *ClaimServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get claim: %w", err))
	}
	if claim == nil {
		return nil, apperror.ErrClaimNotFound()
	}
	return claim, nil
}

// List returns a page of claims for the review queue.
func (s *ClaimServiceImpl) List(ctx context.Context, params ports.ClaimListParams) ([]domain.Claim, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	claims, total, err := s.claimRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list claims: %w", err))
	}
	return claims, total, nil
}

func (s *ClaimServiceImpl) publishClaimEvent(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, domain.ClaimEventsStream, eventType, data); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to publish claim event")
	}
}
