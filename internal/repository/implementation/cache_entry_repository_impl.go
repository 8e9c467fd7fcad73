package implementation

import (
	"context"
	"errors"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/mapper"
	"ai-gateway-be/internal/model"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntryRepositoryImpl is the Postgres durable cache tier.
type CacheEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CacheEntryMapper
}

func NewCacheEntryRepository(db *gorm.DB) contract.CacheStore {
	return &CacheEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewCacheEntryMapper(),
	}
}

func (r *CacheEntryRepositoryImpl) Get(ctx context.Context, fingerprint string) (*entity.CacheEntry, error) {
	var m model.CacheEntry
	if err := r.db.WithContext(ctx).First(&m, "fingerprint = ?", fingerprint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	e := r.mapper.ToEntity(&m)
	// Check-on-read: an expired row the sweep has not reached yet is absent.
	if e.Expired(time.Now()) {
		return nil, nil
	}
	return e, nil
}

func (r *CacheEntryRepositoryImpl) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	m := r.mapper.ToModel(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *CacheEntryRepositoryImpl) Delete(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).Delete(&model.CacheEntry{}, "fingerprint = ?", fingerprint).Error
}

func (r *CacheEntryRepositoryImpl) RecordHit(ctx context.Context, fingerprint string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.CacheEntry{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]interface{}{
			"hit_count":   gorm.Expr("hit_count + 1"),
			"last_hit_at": at,
		}).Error
}

func (r *CacheEntryRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := specification.ExpiredBefore{At: now}.Apply(r.db.WithContext(ctx))
	result := query.Delete(&model.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (r *CacheEntryRepositoryImpl) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CacheEntry{}).
		Where("expires_at >= ?", now).
		Count(&count).Error
	return count, err
}

func (r *CacheEntryRepositoryImpl) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.CacheEntry{}).Error
}
