package cache

import (
	"context"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/contract"
)

const asyncOpTimeout = 5 * time.Second

// TieredCache composes the in-process fast tier with a durable store.
// Durable-tier failures degrade to fast-tier-only behavior and are logged;
// they never fail the request in flight.
type TieredCache struct {
	fast       *FastCache
	durable    contract.CacheStore
	log        logger.ILogger
	fastTTL    time.Duration
	durableTTL time.Duration
}

func NewTieredCache(
	fast *FastCache,
	durable contract.CacheStore,
	log logger.ILogger,
	fastTTL time.Duration,
	durableTTL time.Duration,
) *TieredCache {
	return &TieredCache{
		fast:       fast,
		durable:    durable,
		log:        log,
		fastTTL:    fastTTL,
		durableTTL: durableTTL,
	}
}

// Get checks the fast tier, then the durable tier with fast-tier backfill.
// Hit accounting runs asynchronously so it never blocks the caller.
// Returns nil on miss.
func (t *TieredCache) Get(ctx context.Context, fingerprint string) *entity.CacheEntry {
	now := time.Now()

	if entry, found := t.fast.Get(fingerprint); found {
		if entry.Expired(now) {
			// Durable expiry passed while the fast copy was still live.
			t.fast.Delete(fingerprint)
			return nil
		}
		t.recordHitAsync(fingerprint, now)
		return entry
	}

	if t.durable == nil {
		return nil
	}

	entry, err := t.durable.Get(ctx, fingerprint)
	if err != nil {
		t.log.Warn("cache", "durable tier get failed, degrading to fast tier", map[string]interface{}{
			"fingerprint": fingerprint,
			"error":       err.Error(),
		})
		return nil
	}
	if entry == nil {
		return nil
	}

	t.fast.Set(fingerprint, entry, t.fastTTL)
	t.recordHitAsync(fingerprint, now)
	return entry
}

// Put writes the fast tier synchronously and the durable tier in the
// background. Durability is best effort.
func (t *TieredCache) Put(ctx context.Context, fingerprint, query, response string, metadata map[string]interface{}) {
	now := time.Now()
	entry := &entity.CacheEntry{
		Fingerprint: fingerprint,
		Query:       query,
		Response:    response,
		Metadata:    metadata,
		LastHitAt:   now,
		ExpiresAt:   now.Add(t.durableTTL),
		CreatedAt:   now,
	}

	t.fast.Set(fingerprint, entry, t.fastTTL)

	if t.durable == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), asyncOpTimeout)
		defer cancel()
		if err := t.durable.Upsert(bgCtx, entry); err != nil {
			t.log.Warn("cache", "durable tier write failed", map[string]interface{}{
				"fingerprint": fingerprint,
				"error":       err.Error(),
			})
		}
	}()
}

// Invalidate removes the fingerprint from both tiers.
func (t *TieredCache) Invalidate(ctx context.Context, fingerprint string) {
	t.fast.Delete(fingerprint)
	if t.durable == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), asyncOpTimeout)
		defer cancel()
		if err := t.durable.Delete(bgCtx, fingerprint); err != nil {
			t.log.Warn("cache", "durable tier delete failed", map[string]interface{}{
				"fingerprint": fingerprint,
				"error":       err.Error(),
			})
		}
	}()
}

// Clear empties both tiers.
func (t *TieredCache) Clear(ctx context.Context) {
	t.fast.Flush()
	if t.durable == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), asyncOpTimeout)
		defer cancel()
		if err := t.durable.Clear(bgCtx); err != nil {
			t.log.Warn("cache", "durable tier clear failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// SweepExpired purges expired durable entries. Invoked by the maintenance
// scheduler, not by the cache itself.
func (t *TieredCache) SweepExpired(ctx context.Context) (int64, error) {
	if t.durable == nil {
		return 0, nil
	}
	return t.durable.DeleteExpired(ctx, time.Now())
}

// CountActive reports live durable entries.
func (t *TieredCache) CountActive(ctx context.Context) (int64, error) {
	if t.durable == nil {
		return int64(t.fast.Len()), nil
	}
	return t.durable.CountActive(ctx, time.Now())
}

func (t *TieredCache) recordHitAsync(fingerprint string, at time.Time) {
	if t.durable == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), asyncOpTimeout)
		defer cancel()
		if err := t.durable.RecordHit(bgCtx, fingerprint, at); err != nil {
			t.log.Debug("cache", "hit accounting failed", map[string]interface{}{
				"fingerprint": fingerprint,
				"error":       err.Error(),
			})
		}
	}()
}
