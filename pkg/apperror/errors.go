package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func ErrInvalidAmount(detail string) *AppError {
	msg := "Invalid amount"
	if detail != "" {
		msg = fmt.Sprintf("Invalid amount: %s", detail)
	}
	return New("VAL_001", msg, http.StatusBadRequest)
}

// Validation returns a generic bad-input error.
func Validation(message string) *AppError {
	return New("VAL_002", message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

// ErrUnauthenticated signals a missing or malformed gateway identity header.
func ErrUnauthenticated() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "You do not have access to this resource", http.StatusForbidden)
}

// ---- Ledger Business Rules (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrLimitExceeded(reason string) *AppError {
	return New("LED_002", reason, http.StatusUnprocessableEntity)
}

func ErrAmountOutOfRange(reason string) *AppError {
	return New("LED_003", reason, http.StatusUnprocessableEntity)
}

func ErrRecipientNotFound() *AppError {
	return New("LED_004", "Recipient not found", http.StatusNotFound)
}

func ErrSelfTransferNotAllowed() *AppError {
	return New("LED_005", "Cannot transfer to yourself", http.StatusUnprocessableEntity)
}

func ErrFundingSourceInvalid() *AppError {
	return New("LED_006", "Funding source was declined", http.StatusBadRequest)
}

func ErrNotGroupMember() *AppError {
	return New("LED_007", "You are not a member of this group", http.StatusForbidden)
}

func ErrBelowMinimumContribution(minimum string) *AppError {
	return New("LED_008", fmt.Sprintf("Minimum contribution is R%s", minimum), http.StatusUnprocessableEntity)
}

func ErrWalletNotFound() *AppError {
	return New("LED_009", "Wallet not found", http.StatusNotFound)
}

func ErrTransactionNotFound() *AppError {
	return New("LED_011", "Transaction not found", http.StatusNotFound)
}

// ErrReferenceCollision signals that a unique transaction reference could not
// be produced within the retry budget. Surfaced as a transient conflict.
func ErrReferenceCollision(err error) *AppError {
	return Wrap("LED_010", "Could not allocate a unique transaction reference, please retry", http.StatusConflict, err)
}

// ---- Claims (CLM) ----

func ErrClaimNotFound() *AppError {
	return New("CLM_001", "Claim not found", http.StatusNotFound)
}

func ErrClaimAlreadyDecided() *AppError {
	return New("CLM_002", "Claim has already been decided", http.StatusConflict)
}

func ErrInvalidDecision() *AppError {
	return New("CLM_003", "Decision must be approve or reject", http.StatusBadRequest)
}

func ErrRejectionReasonRequired() *AppError {
	return New("CLM_004", "A reason is required when rejecting a claim", http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrStoreTimeout(err error) *AppError {
	return Wrap("SYS_002", "Storage operation timed out", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
