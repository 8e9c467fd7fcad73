package entity

import "time"

// CacheEntry maps a fingerprint to a previously produced response.
// An entry past ExpiresAt is logically absent and must never be served.
type CacheEntry struct {
	Fingerprint string
	Query       string
	Response    string
	Metadata    map[string]interface{}
	HitCount    int64
	LastHitAt   time.Time
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
