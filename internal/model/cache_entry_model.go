package model

import (
	"time"

	"gorm.io/datatypes"
)

type CacheEntry struct {
	Fingerprint string `gorm:"type:varchar(64);primaryKey"` // hex SHA-256
	Query       string `gorm:"type:text"`
	Response    string `gorm:"type:text"`
	Metadata    datatypes.JSON
	HitCount    int64     `gorm:"default:0"`
	LastHitAt   time.Time `gorm:"index"`
	ExpiresAt   time.Time `gorm:"index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
