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

// ClaimHandler handles insurance claim endpoints.
type ClaimHandler struct {
	claimSvc ports.ClaimService
	currency string
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimSvc ports.ClaimService, currency string) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc, currency: currency}
}

// Submit handles POST /api/v1/claims.
func (h *ClaimHandler) Submit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, h.currency)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount(err.Error()))
		return
	}

	svcReq := ports.SubmitClaimRequest{
		UserID: userID,
		Amount: amount,
		Reason: req.Reason,
	}
	if req.BeneficiaryID != nil {
		id, err := uuid.Parse(*req.BeneficiaryID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid beneficiary id"))
			return
		}
		svcReq.BeneficiaryID = &id
	}
	for _, d := range req.Documents {
		doc, err := d.Decode()
		if err != nil {
			response.Error(c, apperror.Validation("document data is not valid base64"))
			return
		}
		svcReq.Documents = append(svcReq.Documents, doc)
	}

	claim, err := h.claimSvc.Submit(c.Request.Context(), svcReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewClaimResponse(claim))
}

// Get handles GET /api/v1/claims/:id. Non-admin callers may only read their
// own claims.
func (h *ClaimHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid claim id"))
		return
	}

	claim, err := h.claimSvc.Get(c.Request.Context(), claimID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claim.UserID != userID && !middleware.IsAdmin(c) {
		response.Error(c, apperror.ErrClaimNotFound())
		return
	}

	response.OK(c, dto.NewClaimResponse(claim))
}

// List handles GET /api/v1/claims. Admins see the whole queue and may filter
// by user; everyone else sees only their own claims.
func (h *ClaimHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	params := ports.ClaimListParams{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}
	if middleware.IsAdmin(c) {
		if v := c.Query("user_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				response.Error(c, apperror.Validation("invalid user_id filter"))
				return
			}
			params.UserID = &id
		}
	} else {
		params.UserID = &userID
	}
	if v := c.Query("status"); v != "" {
		s := domain.ClaimStatus(v)
		params.Status = &s
	}

	claims, total, err := h.claimSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ClaimResponse, 0, len(claims))
	for i := range claims {
		items = append(items, dto.NewClaimResponse(&claims[i]))
	}
	response.OK(c, dto.ClaimListResponse{
		Claims: items,
		Meta: dto.ListMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

// Decide handles POST /api/v1/claims/:id/decision. Admin only; the router
// guards the route with RequireAdmin.
func (h *ClaimHandler) Decide(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid claim id"))
		return
	}

	var req dto.DecideClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	claim, err := h.claimSvc.Decide(c.Request.Context(), ports.DecideClaimRequest{
		ClaimID:  claimID,
		Decision: ports.ClaimDecision(req.Decision),
		Reason:   req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewClaimResponse(claim))
}
