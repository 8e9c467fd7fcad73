package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gateway:cache:"

// CacheStoreImpl is the Redis durable cache tier. Redis expires keys itself,
// so DeleteExpired has nothing to do and CountActive counts live keys.
type CacheStoreImpl struct {
	rdb *redis.Client
}

func NewCacheStore(rdb *redis.Client) contract.CacheStore {
	return &CacheStoreImpl{rdb: rdb}
}

func key(fingerprint string) string {
	return keyPrefix + fingerprint
}

func (s *CacheStoreImpl) Get(ctx context.Context, fingerprint string) (*entity.CacheEntry, error) {
	raw, err := s.rdb.Get(ctx, key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", fingerprint, err)
	}
	if entry.Expired(time.Now()) {
		return nil, nil
	}
	return &entry, nil
}

func (s *CacheStoreImpl) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", entry.Fingerprint, err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to store
	}
	return s.rdb.Set(ctx, key(entry.Fingerprint), raw, ttl).Err()
}

func (s *CacheStoreImpl) Delete(ctx context.Context, fingerprint string) error {
	return s.rdb.Del(ctx, key(fingerprint)).Err()
}

func (s *CacheStoreImpl) RecordHit(ctx context.Context, fingerprint string, at time.Time) error {
	raw, err := s.rdb.Get(ctx, key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return err
	}
	entry.HitCount++
	entry.LastHitAt = at

	updated, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	// KEEPTTL preserves the original expiry
	return s.rdb.Set(ctx, key(fingerprint), updated, redis.KeepTTL).Err()
}

func (s *CacheStoreImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	// Redis handles key expiry natively.
	return 0, nil
}

func (s *CacheStoreImpl) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 512).Result()
		if err != nil {
			return 0, err
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

func (s *CacheStoreImpl) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 512).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
