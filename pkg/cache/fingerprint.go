package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the cache/dedup key for a query and its serialized
// conversation context. SHA-256 with a fixed separator: deterministic across
// process restarts, and collisions are not a practical concern at this size.
func Fingerprint(query, contextWindow string) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0x1f}) // unit separator keeps (a,bc) and (ab,c) distinct
	h.Write([]byte(contextWindow))
	return hex.EncodeToString(h.Sum(nil))
}
