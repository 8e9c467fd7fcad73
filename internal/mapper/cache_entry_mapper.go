package mapper

import (
	"encoding/json"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/model"

	"gorm.io/datatypes"
)

type CacheEntryMapper struct{}

func NewCacheEntryMapper() *CacheEntryMapper {
	return &CacheEntryMapper{}
}

func (m *CacheEntryMapper) ToEntity(c *model.CacheEntry) *entity.CacheEntry {
	var meta map[string]interface{}
	if len(c.Metadata) > 0 {
		// Best effort; a corrupt metadata blob should not lose the entry
		_ = json.Unmarshal(c.Metadata, &meta)
	}
	return &entity.CacheEntry{
		Fingerprint: c.Fingerprint,
		Query:       c.Query,
		Response:    c.Response,
		Metadata:    meta,
		HitCount:    c.HitCount,
		LastHitAt:   c.LastHitAt,
		ExpiresAt:   c.ExpiresAt,
		CreatedAt:   c.CreatedAt,
	}
}

func (m *CacheEntryMapper) ToModel(e *entity.CacheEntry) *model.CacheEntry {
	var meta datatypes.JSON
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			meta = raw
		}
	}
	return &model.CacheEntry{
		Fingerprint: e.Fingerprint,
		Query:       e.Query,
		Response:    e.Response,
		Metadata:    meta,
		HitCount:    e.HitCount,
		LastHitAt:   e.LastHitAt,
		ExpiresAt:   e.ExpiresAt,
		CreatedAt:   e.CreatedAt,
	}
}
