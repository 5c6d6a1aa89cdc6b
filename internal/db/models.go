package db

import "time"

// CacheEntry maps cache_entries, the persistent translation cache.
// Uniqueness is (owner_id, content_hash); owner_id alone carries a
// secondary index for owner-scoped bulk lookups and purges.
type CacheEntry struct {
	CacheEntryID   int64     `gorm:"column:cache_entry_id;primaryKey;autoIncrement"`
	OwnerID        string    `gorm:"column:owner_id;type:text;not null;uniqueIndex:ux_cache_entries_owner_hash,priority:1;index:ix_cache_entries_owner"`
	ContentHash    string    `gorm:"column:content_hash;type:text;not null;uniqueIndex:ux_cache_entries_owner_hash,priority:2"`
	OriginalText   string    `gorm:"column:original_text;type:text;not null"`
	TranslatedText string    `gorm:"column:translated_text;type:text;not null"`
	SourceLang     *string   `gorm:"column:source_lang;type:text"`
	TargetLang     *string   `gorm:"column:target_lang;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CacheEntry) TableName() string { return "cache_entries" }

func autoMigrateModels() []any {
	return []any{
		&CacheEntry{},
	}
}
