package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog caches an operation result so a retried request with the
// same client-supplied key returns the original outcome instead of moving
// money twice.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "user_id:operation:client_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format for a ledger
// operation retried under a client-supplied idempotency token.
func BuildIdempotencyKey(userID uuid.UUID, operation string, clientKey string) string {
	return userID.String() + ":" + operation + ":" + clientKey
}
