package contract

import (
	"context"
	"time"

	"ai-gateway-be/internal/entity"
)

// CacheStore is the durable tier of the tiered cache. Implementations:
// Postgres (GORM) and Redis, selected by config. Errors from any method
// degrade the cache to fast-tier-only behavior; they never fail a request.
type CacheStore interface {
	// Get returns (nil, nil) when the fingerprint is absent or expired.
	Get(ctx context.Context, fingerprint string) (*entity.CacheEntry, error)
	Upsert(ctx context.Context, entry *entity.CacheEntry) error
	Delete(ctx context.Context, fingerprint string) error
	// RecordHit bumps the hit counter and last-hit time.
	RecordHit(ctx context.Context, fingerprint string, at time.Time) error
	// DeleteExpired purges entries whose expiry has passed; returns rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
}
