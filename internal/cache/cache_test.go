package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aelous/read-bridge/internal/db"
)

type fakeCacheStore struct {
	entries map[string]db.CacheEntryRow // keyed by ownerID|contentHash

	getErr    error
	listErr   error
	upsertErr error

	upsertCalls []db.UpsertCacheEntryParams
	deleteCalls []string
	clearCalls  int
	statsRow    db.CacheStatsRow
	statsErr    error
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string]db.CacheEntryRow{}}
}

func (s *fakeCacheStore) seed(ownerID, text, translated string) {
	hash := ContentHash(text)
	s.entries[ownerID+"|"+hash] = db.CacheEntryRow{
		CacheEntryID:   int64(len(s.entries) + 1),
		OwnerID:        ownerID,
		ContentHash:    hash,
		OriginalText:   text,
		TranslatedText: translated,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func (s *fakeCacheStore) GetCacheEntry(_ context.Context, ownerID, contentHash string) (*db.CacheEntryRow, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	row, ok := s.entries[ownerID+"|"+contentHash]
	if !ok {
		return nil, nil
	}
	copyRow := row
	return &copyRow, nil
}

func (s *fakeCacheStore) ListCacheEntriesByHashes(_ context.Context, ownerID string, hashes []string) ([]db.CacheEntryRow, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var rows []db.CacheEntryRow
	for _, hash := range hashes {
		if row, ok := s.entries[ownerID+"|"+hash]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *fakeCacheStore) UpsertCacheEntry(_ context.Context, params db.UpsertCacheEntryParams) (int64, error) {
	s.upsertCalls = append(s.upsertCalls, params)
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	return int64(len(s.upsertCalls)), nil
}

func (s *fakeCacheStore) DeleteCacheEntriesByOwner(_ context.Context, ownerID string) (int64, error) {
	s.deleteCalls = append(s.deleteCalls, ownerID)
	var deleted int64
	for key := range s.entries {
		if len(key) > len(ownerID) && key[:len(ownerID)+1] == ownerID+"|" {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeCacheStore) ClearCacheEntries(_ context.Context) (int64, error) {
	s.clearCalls++
	deleted := int64(len(s.entries))
	s.entries = map[string]db.CacheEntryRow{}
	return deleted, nil
}

func (s *fakeCacheStore) CacheStats(_ context.Context) (db.CacheStatsRow, error) {
	return s.statsRow, s.statsErr
}

func TestGetHitAndMiss(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.seed("owner-1", "Hello.", "你好。")
	c := New(store, zerolog.Nop())

	entry := c.Get(context.Background(), "owner-1", "Hello.")
	if entry == nil || entry.TranslatedText != "你好。" {
		t.Fatalf("expected cache hit, got %+v", entry)
	}
	if entry.ContentHash != ContentHash("Hello.") {
		t.Fatalf("entry hash mismatch: %q", entry.ContentHash)
	}

	if c.Get(context.Background(), "owner-1", "Goodbye.") != nil {
		t.Fatal("expected miss for unseen text")
	}
	if c.Get(context.Background(), "owner-2", "Hello.") != nil {
		t.Fatal("entries must not leak across owners")
	}
}

func TestGetStorageErrorIsMiss(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.getErr = errors.New("connection refused")
	c := New(store, zerolog.Nop())

	if c.Get(context.Background(), "owner-1", "Hello.") != nil {
		t.Fatal("storage failure must read as a miss")
	}
}

func TestBatchGetMapsTextsAndDedupsHashes(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.seed("owner-1", "A.", "甲")
	store.seed("owner-1", "C.", "丙")
	c := New(store, zerolog.Nop())

	// "A." appears twice; both occurrences resolve through one lookup.
	hits := c.BatchGet(context.Background(), "owner-1", []string{"A.", "B.", "A.", "C."})
	if len(hits) != 2 {
		t.Fatalf("expected 2 hit keys, got %v", hits)
	}
	if hits["A."] != "甲" || hits["C."] != "丙" {
		t.Fatalf("unexpected hits: %v", hits)
	}
	if _, ok := hits["B."]; ok {
		t.Fatal("miss must be absent from the result map")
	}
}

func TestBatchGetErrorReturnsEmpty(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.seed("owner-1", "A.", "甲")
	store.listErr = errors.New("connection refused")
	c := New(store, zerolog.Nop())

	hits := c.BatchGet(context.Background(), "owner-1", []string{"A."})
	if len(hits) != 0 {
		t.Fatalf("storage failure must read as all misses, got %v", hits)
	}
}

func TestPutDetectsSourceLanguage(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	c := New(store, zerolog.Nop())

	id := c.Put(context.Background(), "owner-1", "The quick brown fox jumps over the lazy dog.", "敏捷的棕色狐狸跳过懒狗。", "", "zh")
	if id == 0 {
		t.Fatal("expected successful write")
	}
	if len(store.upsertCalls) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upsertCalls))
	}

	params := store.upsertCalls[0]
	if params.ContentHash != ContentHash("The quick brown fox jumps over the lazy dog.") {
		t.Fatalf("unexpected content hash: %q", params.ContentHash)
	}
	if params.SourceLang == nil || *params.SourceLang != "en" {
		t.Fatalf("expected detected source lang en, got %v", params.SourceLang)
	}
	if params.TargetLang == nil || *params.TargetLang != "zh" {
		t.Fatalf("expected target lang zh, got %v", params.TargetLang)
	}
}

func TestPutSwallowsStorageErrors(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.upsertErr = errors.New("deadlock detected")
	c := New(store, zerolog.Nop())

	if id := c.Put(context.Background(), "owner-1", "A.", "甲", "en", "zh"); id != 0 {
		t.Fatalf("failed write must return 0, got %d", id)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.statsRow = db.CacheStatsRow{EntryCount: 42, OwnerCount: 3}
	c := New(store, zerolog.Nop())

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.EntryCount != 42 || stats.OwnerCount != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	store.statsErr = errors.New("connection refused")
	if _, err := c.Stats(context.Background()); err == nil {
		t.Fatal("stats errors must surface")
	}
}

func TestDeleteByOwner(t *testing.T) {
	t.Parallel()

	store := newFakeCacheStore()
	store.seed("owner-1", "A.", "甲")
	store.seed("owner-1", "B.", "乙")
	store.seed("owner-2", "A.", "甲")
	c := New(store, zerolog.Nop())

	deleted, err := c.DeleteByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("DeleteByOwner returned error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}
	if c.Get(context.Background(), "owner-2", "A.") == nil {
		t.Fatal("other owners must be untouched")
	}
}
