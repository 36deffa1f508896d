package handler

import (
	"strconv"

	"stokvel-ledger/internal/adapter/http/dto"
	"stokvel-ledger/internal/adapter/http/middleware"
	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"
	"stokvel-ledger/pkg/apperror"
	"stokvel-ledger/pkg/money"
	"stokvel-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client retry token. Optional; when absent
// the request is processed exactly once with no replay protection.
const HeaderIdempotencyKey = "Idempotency-Key"

// WalletHandler handles wallet and statement endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
	currency  string
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, currency string) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc, currency: currency}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	balance, err := h.ledgerSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponse(balance))
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, h.currency)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount(err.Error()))
		return
	}

	txn, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		UserID:         userID,
		Amount:         amount,
		CardRef:        req.CardRef,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(txn))
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, h.currency)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount(err.Error()))
		return
	}

	txn, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		UserID:            userID,
		Amount:            amount,
		BankAccountNumber: req.BankAccountNumber,
		Description:       req.Description,
		IdempotencyKey:    c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(txn))
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, h.currency)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderID:               userID,
		RecipientAccountNumber: req.RecipientAccountNumber,
		Amount:                 amount,
		Description:            req.Description,
		IdempotencyKey:         c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		TransferID: result.TransferID.String(),
		Outgoing:   dto.NewTransactionResponse(result.Outgoing),
		Incoming:   dto.NewTransactionResponse(result.Incoming),
	})
}

// GetTransaction handles GET /api/v1/wallet/transactions/:reference.
func (h *WalletHandler) GetTransaction(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	txn, err := h.ledgerSvc.GetTransaction(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionResponse(txn))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	params := ports.TransactionListParams{
		UserID:   userID,
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}
	if v := c.Query("type"); v != "" {
		t := domain.TransactionType(v)
		params.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := domain.TransactionStatus(v)
		params.Status = &s
	}

	txns, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.NewTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{
		Transactions: items,
		Meta: dto.ListMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
