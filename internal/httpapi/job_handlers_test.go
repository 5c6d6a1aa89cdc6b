package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aelous/read-bridge/internal/cache"
	"github.com/aelous/read-bridge/internal/db"
	"github.com/aelous/read-bridge/internal/job"
	"github.com/aelous/read-bridge/internal/translation"
)

// memoryStore keeps cache entries in a map and satisfies cache.Store, which
// lets the handlers run against a real cache and a real controller.
type memoryStore struct {
	entries map[string]db.CacheEntryRow
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]db.CacheEntryRow{}}
}

func (s *memoryStore) GetCacheEntry(_ context.Context, ownerID, contentHash string) (*db.CacheEntryRow, error) {
	row, ok := s.entries[ownerID+"|"+contentHash]
	if !ok {
		return nil, nil
	}
	copyRow := row
	return &copyRow, nil
}

func (s *memoryStore) ListCacheEntriesByHashes(_ context.Context, ownerID string, hashes []string) ([]db.CacheEntryRow, error) {
	var rows []db.CacheEntryRow
	for _, hash := range hashes {
		if row, ok := s.entries[ownerID+"|"+hash]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *memoryStore) UpsertCacheEntry(_ context.Context, params db.UpsertCacheEntryParams) (int64, error) {
	key := params.OwnerID + "|" + params.ContentHash
	if existing, ok := s.entries[key]; ok {
		existing.TranslatedText = params.TranslatedText
		existing.UpdatedAt = time.Now()
		s.entries[key] = existing
		return existing.CacheEntryID, nil
	}
	s.nextID++
	s.entries[key] = db.CacheEntryRow{
		CacheEntryID:   s.nextID,
		OwnerID:        params.OwnerID,
		ContentHash:    params.ContentHash,
		OriginalText:   params.OriginalText,
		TranslatedText: params.TranslatedText,
		SourceLang:     params.SourceLang,
		TargetLang:     params.TargetLang,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	return s.nextID, nil
}

func (s *memoryStore) DeleteCacheEntriesByOwner(_ context.Context, ownerID string) (int64, error) {
	var deleted int64
	for key := range s.entries {
		if strings.HasPrefix(key, ownerID+"|") {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryStore) ClearCacheEntries(_ context.Context) (int64, error) {
	deleted := int64(len(s.entries))
	s.entries = map[string]db.CacheEntryRow{}
	return deleted, nil
}

func (s *memoryStore) CacheStats(_ context.Context) (db.CacheStatsRow, error) {
	owners := map[string]struct{}{}
	for _, row := range s.entries {
		owners[row.OwnerID] = struct{}{}
	}
	return db.CacheStatsRow{EntryCount: int64(len(s.entries)), OwnerCount: int64(len(owners))}, nil
}

type prefixProvider struct{}

func (p *prefixProvider) Name() string                 { return "local" }
func (p *prefixProvider) SupportedLanguages() []string { return []string{"en", "zh"} }

func (p *prefixProvider) Translate(_ context.Context, req translation.Request) (*translation.Response, error) {
	return &translation.Response{Text: "T:" + req.Text, ProviderName: "local"}, nil
}

func (p *prefixProvider) TranslateBatch(_ context.Context, req translation.BatchRequest) (string, error) {
	var b strings.Builder
	for i, text := range req.Texts {
		fmt.Fprintf(&b, "[%d] T:%s\n", i+1, text)
	}
	return b.String(), nil
}

type testServer struct {
	server     *Server
	store      *memoryStore
	controller *job.Controller
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := newMemoryStore()
	translationCache := cache.New(store, zerolog.Nop())

	registry := translation.NewRegistry("local")
	if err := registry.Register(&prefixProvider{}); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	controller := job.NewController(translationCache, registry, zerolog.Nop(), job.Options{
		Provider:   "local",
		SourceLang: "en",
		TargetLang: "zh",
	})

	server := NewServer(controller, translationCache, registry, zerolog.Nop(), Options{})
	return &testServer{server: server, store: store, controller: controller}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.server.buildEcho().ServeHTTP(rec, req)
	return rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func waitForStatus(t *testing.T, controller *job.Controller, want job.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := controller.Current()
		if snap != nil && snap.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for job status %q", want)
}

func TestHandleStartJob(t *testing.T) {
	ts := newTestServer(t)

	payload := `{
		"owner_id":"reader-1",
		"title":"Dune",
		"batch_size":2,
		"units":[
			{"text":"A.","chapter_index":0,"sentence_index":0},
			{"text":"B.","chapter_index":0,"sentence_index":1}
		]
	}`

	rec := ts.do(http.MethodPost, "/api/v1/jobs", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	body := decodeJSend(t, rec)
	if body["status"] != "success" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	data := body["data"].(map[string]any)
	if data["already_complete"] != false {
		t.Fatalf("unexpected data: %v", data)
	}
	jobData := data["job"].(map[string]any)
	if jobData["owner_id"] != "reader-1" || jobData["total_units"] != float64(2) {
		t.Fatalf("unexpected job: %v", jobData)
	}

	waitForStatus(t, ts.controller, job.StatusCompleted)
	if len(ts.store.entries) != 2 {
		t.Fatalf("expected 2 cache writes, got %d", len(ts.store.entries))
	}
}

func TestHandleStartJobHonorsLanguages(t *testing.T) {
	ts := newTestServer(t)

	payload := `{
		"owner_id":"reader-1",
		"title":"Dune",
		"source_lang":"en",
		"target_lang":"fr",
		"units":[{"text":"A.","chapter_index":0,"sentence_index":0}]
	}`

	rec := ts.do(http.MethodPost, "/api/v1/jobs", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d (body %s)", rec.Code, rec.Body.String())
	}

	jobData := decodeJSend(t, rec)["data"].(map[string]any)["job"].(map[string]any)
	if jobData["target_lang"] != "fr" {
		t.Fatalf("submitted target language not on the job: %v", jobData)
	}

	waitForStatus(t, ts.controller, job.StatusCompleted)
	for _, row := range ts.store.entries {
		if row.SourceLang == nil || *row.SourceLang != "en" || row.TargetLang == nil || *row.TargetLang != "fr" {
			t.Fatalf("submitted languages not persisted: %+v", row)
		}
	}
	if len(ts.store.entries) != 1 {
		t.Fatalf("expected 1 cache write, got %d", len(ts.store.entries))
	}
}

func TestHandleStartJobAllCached(t *testing.T) {
	ts := newTestServer(t)
	translationCache := cache.New(ts.store, zerolog.Nop())
	translationCache.Put(context.Background(), "reader-1", "A.", "甲", "en", "zh")

	payload := `{"owner_id":"reader-1","title":"Dune","units":[{"text":"A.","chapter_index":0,"sentence_index":0}]}`
	rec := ts.do(http.MethodPost, "/api/v1/jobs", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d (body %s)", rec.Code, rec.Body.String())
	}

	data := decodeJSend(t, rec)["data"].(map[string]any)
	if data["already_complete"] != true {
		t.Fatalf("expected already_complete, got %v", data)
	}
	if ts.controller.Current() != nil {
		t.Fatal("no job should exist")
	}
}

func TestHandleStartJobInvalidPayload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/jobs", `{"title":"Dune","units":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d (body %s)", rec.Code, rec.Body.String())
	}
	if decodeJSend(t, rec)["status"] != "fail" {
		t.Fatalf("expected jsend fail, got %s", rec.Body.String())
	}
}

func TestHandleCurrentJobIdle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/jobs/current", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
}

func TestJobControlWithoutJob(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/jobs/pause", "/api/v1/jobs/resume", "/api/v1/jobs/stop"} {
		rec := ts.do(http.MethodPost, path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: unexpected status %d", path, rec.Code)
		}
	}

	rec := ts.do(http.MethodPost, "/api/v1/jobs/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear should be a no-op success, got %d", rec.Code)
	}
	if data := decodeJSend(t, rec)["data"].(map[string]any); data["cleared"] != false {
		t.Fatalf("expected cleared=false, got %v", data)
	}
}

func TestCacheEndpoints(t *testing.T) {
	ts := newTestServer(t)
	translationCache := cache.New(ts.store, zerolog.Nop())
	translationCache.Put(context.Background(), "reader-1", "A.", "甲", "en", "zh")
	translationCache.Put(context.Background(), "reader-2", "B.", "乙", "en", "zh")

	rec := ts.do(http.MethodGet, "/api/v1/cache/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: unexpected status %d", rec.Code)
	}
	data := decodeJSend(t, rec)["data"].(map[string]any)
	if data["entry_count"] != float64(2) || data["owner_count"] != float64(2) {
		t.Fatalf("unexpected stats: %v", data)
	}

	rec = ts.do(http.MethodGet, "/api/v1/cache/lookup?owner_id=reader-1&text=A.", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: unexpected status %d (body %s)", rec.Code, rec.Body.String())
	}
	entry := decodeJSend(t, rec)["data"].(map[string]any)["entry"].(map[string]any)
	if entry["translated_text"] != "甲" {
		t.Fatalf("unexpected entry: %v", entry)
	}

	rec = ts.do(http.MethodGet, "/api/v1/cache/lookup?owner_id=reader-1&text=Z.", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("lookup miss: unexpected status %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/api/v1/cache/lookup", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("lookup without params: unexpected status %d", rec.Code)
	}

	rec = ts.do(http.MethodDelete, "/api/v1/cache/owners/reader-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete owner: unexpected status %d", rec.Code)
	}
	if data := decodeJSend(t, rec)["data"].(map[string]any); data["deleted"] != float64(1) {
		t.Fatalf("unexpected delete count: %v", data)
	}

	rec = ts.do(http.MethodDelete, "/api/v1/cache", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("clear without confirm: unexpected status %d", rec.Code)
	}

	rec = ts.do(http.MethodDelete, "/api/v1/cache?confirm=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: unexpected status %d", rec.Code)
	}
	if len(ts.store.entries) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(ts.store.entries))
	}
}

func TestHandleProviders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/translation/providers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := decodeJSend(t, rec)["data"].(map[string]any)
	providers := data["providers"].([]any)
	if len(providers) != 1 || providers[0] != "local" {
		t.Fatalf("unexpected providers: %v", providers)
	}
	if data["default"] != "local" {
		t.Fatalf("unexpected default: %v", data["default"])
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := decodeJSend(t, rec)["data"].(map[string]any)
	if data["service"] != "read-bridge" {
		t.Fatalf("unexpected health payload: %v", data)
	}
}
