package db

import (
	"context"
	"fmt"
	"time"
)

// CacheEntryRow is one persisted translation keyed by (owner_id, content_hash).
type CacheEntryRow struct {
	CacheEntryID   int64
	OwnerID        string
	ContentHash    string
	OriginalText   string
	TranslatedText string
	SourceLang     *string
	TargetLang     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpsertCacheEntryParams controls cache entry upserts.
type UpsertCacheEntryParams struct {
	OwnerID        string
	ContentHash    string
	OriginalText   string
	TranslatedText string
	SourceLang     *string
	TargetLang     *string
}

// CacheStatsRow reports aggregate cache counts.
type CacheStatsRow struct {
	EntryCount int64
	OwnerCount int64
}

func (p *Pool) GetCacheEntry(ctx context.Context, ownerID, contentHash string) (*CacheEntryRow, error) {
	const q = `
SELECT
	cache_entry_id,
	owner_id,
	content_hash,
	original_text,
	translated_text,
	source_lang,
	target_lang,
	created_at,
	updated_at
FROM cache_entries
WHERE owner_id = ?
  AND content_hash = ?
LIMIT 1
`

	var row CacheEntryRow
	err := p.QueryRow(ctx, q, ownerID, contentHash).Scan(
		&row.CacheEntryID,
		&row.OwnerID,
		&row.ContentHash,
		&row.OriginalText,
		&row.TranslatedText,
		&row.SourceLang,
		&row.TargetLang,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	return &row, nil
}

func (p *Pool) ListCacheEntriesByHashes(ctx context.Context, ownerID string, hashes []string) ([]CacheEntryRow, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	const q = `
SELECT
	cache_entry_id,
	owner_id,
	content_hash,
	original_text,
	translated_text,
	source_lang,
	target_lang,
	created_at,
	updated_at
FROM cache_entries
WHERE owner_id = ?
  AND content_hash IN ?
`

	rows, err := p.Query(ctx, q, ownerID, hashes)
	if err != nil {
		return nil, fmt.Errorf("query cache entries by hashes: %w", err)
	}
	defer rows.Close()

	items := make([]CacheEntryRow, 0, len(hashes))
	for rows.Next() {
		var row CacheEntryRow
		if err := rows.Scan(
			&row.CacheEntryID,
			&row.OwnerID,
			&row.ContentHash,
			&row.OriginalText,
			&row.TranslatedText,
			&row.SourceLang,
			&row.TargetLang,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cache entry row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entry rows: %w", err)
	}

	return items, nil
}

func (p *Pool) UpsertCacheEntry(ctx context.Context, row UpsertCacheEntryParams) (int64, error) {
	const q = `
INSERT INTO cache_entries (
	owner_id,
	content_hash,
	original_text,
	translated_text,
	source_lang,
	target_lang
)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, content_hash)
DO UPDATE SET
	translated_text = EXCLUDED.translated_text,
	source_lang = EXCLUDED.source_lang,
	target_lang = EXCLUDED.target_lang,
	updated_at = now()
RETURNING cache_entry_id
`

	var cacheEntryID int64
	if err := p.QueryRow(
		ctx,
		q,
		row.OwnerID,
		row.ContentHash,
		row.OriginalText,
		row.TranslatedText,
		row.SourceLang,
		row.TargetLang,
	).Scan(&cacheEntryID); err != nil {
		return 0, fmt.Errorf("upsert cache entry: %w", err)
	}
	return cacheEntryID, nil
}

func (p *Pool) DeleteCacheEntriesByOwner(ctx context.Context, ownerID string) (int64, error) {
	const q = `DELETE FROM cache_entries WHERE owner_id = ?`

	tag, err := p.Exec(ctx, q, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries by owner: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) ClearCacheEntries(ctx context.Context) (int64, error) {
	const q = `DELETE FROM cache_entries`

	tag, err := p.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("clear cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) CacheStats(ctx context.Context) (CacheStatsRow, error) {
	const q = `
SELECT
	COUNT(*)::BIGINT AS entry_count,
	COUNT(DISTINCT owner_id)::BIGINT AS owner_count
FROM cache_entries
`

	var stats CacheStatsRow
	if err := p.QueryRow(ctx, q).Scan(&stats.EntryCount, &stats.OwnerCount); err != nil {
		return CacheStatsRow{}, fmt.Errorf("query cache stats: %w", err)
	}
	return stats, nil
}
