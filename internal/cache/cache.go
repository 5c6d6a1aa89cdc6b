// Package cache is the content-addressed translation cache. Entries are
// keyed by (owner, hash-of-original-text) and shared across job runs, so a
// book re-translated for the same owner only pays for units it has never
// seen. Read failures degrade to cache misses and write failures are logged
// and swallowed: a lost entry only costs a future re-translation.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aelous/read-bridge/internal/db"
	"github.com/aelous/read-bridge/internal/langdetect"
)

// Store is the persistence boundary, implemented by *db.Pool.
type Store interface {
	GetCacheEntry(ctx context.Context, ownerID, contentHash string) (*db.CacheEntryRow, error)
	ListCacheEntriesByHashes(ctx context.Context, ownerID string, hashes []string) ([]db.CacheEntryRow, error)
	UpsertCacheEntry(ctx context.Context, row db.UpsertCacheEntryParams) (int64, error)
	DeleteCacheEntriesByOwner(ctx context.Context, ownerID string) (int64, error)
	ClearCacheEntries(ctx context.Context) (int64, error)
	CacheStats(ctx context.Context) (db.CacheStatsRow, error)
}

// Entry is a cached translation enriched for API output.
type Entry struct {
	OwnerID        string    `json:"owner_id"`
	ContentHash    string    `json:"content_hash"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	SourceLang     string    `json:"source_lang,omitempty"`
	TargetLang     string    `json:"target_lang,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Stats reports aggregate cache counts.
type Stats struct {
	EntryCount int64 `json:"entry_count"`
	OwnerCount int64 `json:"owner_count"`
}

type Cache struct {
	store  Store
	logger zerolog.Logger
}

func New(store Store, logger zerolog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Get looks up one entry by (owner, hash(text)). Storage failures are
// reported as misses.
func (c *Cache) Get(ctx context.Context, ownerID, text string) *Entry {
	if c == nil || c.store == nil {
		return nil
	}

	row, err := c.store.GetCacheEntry(ctx, ownerID, ContentHash(text))
	if err != nil {
		c.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("cache read failed, treating as miss")
		return nil
	}
	if row == nil {
		return nil
	}
	entry := entryFromRow(*row)
	return &entry
}

// BatchGet returns original text mapped to cached translation for every text
// already translated for this owner. Absent keys need translation.
func (c *Cache) BatchGet(ctx context.Context, ownerID string, texts []string) map[string]string {
	if c == nil || c.store == nil || len(texts) == 0 {
		return map[string]string{}
	}

	hashByText := make(map[string]string, len(texts))
	hashes := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		hash := ContentHash(text)
		hashByText[text] = hash
		if _, exists := seen[hash]; exists {
			continue
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}

	rows, err := c.store.ListCacheEntriesByHashes(ctx, ownerID, hashes)
	if err != nil {
		c.logger.Warn().Err(err).Str("owner_id", ownerID).Int("texts", len(texts)).Msg("cache batch read failed, treating all as misses")
		return map[string]string{}
	}

	translatedByHash := make(map[string]string, len(rows))
	for _, row := range rows {
		translatedByHash[row.ContentHash] = row.TranslatedText
	}

	hits := make(map[string]string, len(rows))
	for text, hash := range hashByText {
		if translated, ok := translatedByHash[hash]; ok {
			hits[text] = translated
		}
	}
	return hits
}

// Put upserts a translation by (owner, hash(original)). When sourceLang is
// empty the language is detected from the original text. Returns the entry
// id, or 0 when the write failed (failures are swallowed).
func (c *Cache) Put(ctx context.Context, ownerID, originalText, translatedText, sourceLang, targetLang string) int64 {
	if c == nil || c.store == nil {
		return 0
	}

	if strings.TrimSpace(sourceLang) == "" {
		sourceLang = langdetect.DetectISO6391(originalText)
	}

	id, err := c.store.UpsertCacheEntry(ctx, db.UpsertCacheEntryParams{
		OwnerID:        ownerID,
		ContentHash:    ContentHash(originalText),
		OriginalText:   originalText,
		TranslatedText: translatedText,
		SourceLang:     optionalString(sourceLang),
		TargetLang:     optionalString(targetLang),
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("cache write failed, translation not persisted")
		return 0
	}
	return id
}

func (c *Cache) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	return c.store.DeleteCacheEntriesByOwner(ctx, ownerID)
}

func (c *Cache) ClearAll(ctx context.Context) (int64, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	return c.store.ClearCacheEntries(ctx)
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	if c == nil || c.store == nil {
		return Stats{}, nil
	}
	row, err := c.store.CacheStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{EntryCount: row.EntryCount, OwnerCount: row.OwnerCount}, nil
}

func entryFromRow(row db.CacheEntryRow) Entry {
	return Entry{
		OwnerID:        row.OwnerID,
		ContentHash:    row.ContentHash,
		OriginalText:   row.OriginalText,
		TranslatedText: row.TranslatedText,
		SourceLang:     derefOrEmpty(row.SourceLang),
		TargetLang:     derefOrEmpty(row.TargetLang),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
