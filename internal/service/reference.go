package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// NewReference generates a transaction reference: "TXN" + UTC timestamp +
// random suffix. The 4-byte suffix keeps the collision probability
// negligible even for thousands of references within one second; the ledger
// still verifies uniqueness inside its critical section and retries with a
// fresh reference on collision.
//
// References are generated before any wallet lock is taken.
func NewReference() string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return "TXN" + time.Now().UTC().Format("20060102150405") + strings.ToUpper(hex.EncodeToString(suffix[:]))
}
