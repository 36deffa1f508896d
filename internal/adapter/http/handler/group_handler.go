package handler

import (
	"stokvel-ledger/internal/adapter/http/dto"
	"stokvel-ledger/internal/adapter/http/middleware"
	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/pkg/apperror"
	"stokvel-ledger/pkg/money"
	"stokvel-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GroupHandler handles group contribution endpoints.
type GroupHandler struct {
	ledgerSvc ports.LedgerService
	currency  string
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(ledgerSvc ports.LedgerService, currency string) *GroupHandler {
	return &GroupHandler{ledgerSvc: ledgerSvc, currency: currency}
}

// Contribute handles POST /api/v1/groups/:id/contributions.
func (h *GroupHandler) Contribute(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid group id"))
		return
	}

	var req dto.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, h.currency)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Contribute(c.Request.Context(), ports.ContributeRequest{
		UserID:         userID,
		GroupID:        groupID,
		Amount:         amount,
		Method:         domain.ContributionMethod(req.Method),
		CardRef:        req.CardRef,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	contrib := result.Contribution
	response.Created(c, dto.ContributionResponse{
		ID:          contrib.ID.String(),
		GroupID:     contrib.GroupID.String(),
		Amount:      money.FromCents(contrib.AmountCents, contrib.Currency).String(),
		Currency:    contrib.Currency,
		Method:      string(contrib.Method),
		Transaction: dto.NewTransactionResponse(result.Transaction),
		CreatedAt:   contrib.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ListContributions handles GET /api/v1/groups/:id/contributions.
func (h *GroupHandler) ListContributions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid group id"))
		return
	}

	contributions, err := h.ledgerSvc.ListContributions(c.Request.Context(), groupID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ContributionRecord, 0, len(contributions))
	for i := range contributions {
		items = append(items, dto.NewContributionRecord(&contributions[i]))
	}
	response.OK(c, dto.ContributionListResponse{Contributions: items})
}
