package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aelous/read-bridge/internal/globaltime"
	"github.com/aelous/read-bridge/internal/translation"
)

const DefaultBatchSize = 10

var (
	// ErrNoProvider means no translation provider could be resolved; no job
	// is created and no state changes.
	ErrNoProvider = errors.New("no translation provider is configured")
	// ErrAlreadyComplete means every requested unit was found in the cache.
	ErrAlreadyComplete = errors.New("all units are already translated")
	ErrNoActiveJob     = errors.New("no active job")
	ErrJobNotRunning   = errors.New("job is not running")
	ErrJobNotPaused    = errors.New("job is not paused")
)

// Store is the translation cache surface the controller needs. Implemented
// by *cache.Cache; Put swallows storage failures per the cache contract.
type Store interface {
	BatchGet(ctx context.Context, ownerID string, texts []string) map[string]string
	Put(ctx context.Context, ownerID, originalText, translatedText, sourceLang, targetLang string) int64
}

// Options holds the controller-level defaults a job submission falls back
// to when it leaves the matching StartRequest field empty.
type Options struct {
	// Provider selects a registry provider by name; empty uses the default.
	Provider   string
	SourceLang string
	TargetLang string
	// BatchSize is the window size for submissions that do not set one.
	BatchSize int
	// WindowDelay is the pause between windows, a courtesy to provider rate
	// limits.
	WindowDelay time.Duration
}

// StartRequest describes one job submission. SourceLang and TargetLang
// apply to this job only; empty fields fall back to the controller Options.
type StartRequest struct {
	OwnerID    string
	Title      string
	Units      []WorkUnit
	BatchSize  int
	SourceLang string
	TargetLang string
}

// Controller is the single scheduling domain for batch translation: it owns
// at most one job, runs its execution loop in the background, and serializes
// control operations against the loop with one mutex. Cancellation is
// cooperative — it is polled at window boundaries and between fallback
// units, never preempting an in-flight provider call.
type Controller struct {
	mu       sync.Mutex
	store    Store
	registry *translation.Registry
	notifier *Notifier
	logger   zerolog.Logger
	opts     Options

	current *jobState
	cancel  context.CancelFunc
}

func NewController(store Store, registry *translation.Registry, logger zerolog.Logger, opts Options) *Controller {
	if opts.WindowDelay < 0 {
		opts.WindowDelay = 0
	}
	return &Controller{
		store:    store,
		registry: registry,
		notifier: NewNotifier(),
		logger:   logger,
		opts:     opts,
	}
}

// Subscribe registers a snapshot callback; the callback immediately receives
// the current snapshot (or nil) and then every subsequent state change.
func (c *Controller) Subscribe(fn SnapshotFunc) func() {
	return c.notifier.Subscribe(fn)
}

// Current returns a snapshot of the active job, or nil when idle.
func (c *Controller) Current() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.snapshot()
}

// Start creates and launches a new job. A running job is stopped and
// discarded first; observers see a nil notification before the new job's
// initial snapshot. Units already cached for this owner are stripped up
// front and counted as completed. When nothing is left to translate no job
// is created and ErrAlreadyComplete is returned. The execution loop runs in
// the background; the caller is not awaited.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*Snapshot, error) {
	if c == nil || c.store == nil {
		return nil, fmt.Errorf("job controller is not initialized")
	}

	provider, err := c.resolveProvider()
	if err != nil {
		return nil, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = c.opts.BatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	sourceLang := strings.TrimSpace(req.SourceLang)
	if sourceLang == "" {
		sourceLang = c.opts.SourceLang
	}
	targetLang := strings.TrimSpace(req.TargetLang)
	if targetLang == "" {
		targetLang = c.opts.TargetLang
	}

	c.mu.Lock()
	hadJob := c.current != nil
	if hadJob {
		c.discardLocked()
	}
	c.mu.Unlock()
	if hadJob {
		c.notifier.Broadcast(nil)
	}

	texts := make([]string, len(req.Units))
	for i, unit := range req.Units {
		texts[i] = unit.Text
	}
	hits := c.store.BatchGet(ctx, req.OwnerID, texts)

	pending := make([]WorkUnit, 0, len(req.Units))
	for _, unit := range req.Units {
		if _, cached := hits[unit.Text]; cached {
			continue
		}
		pending = append(pending, unit)
	}
	cacheHits := len(req.Units) - len(pending)

	if len(pending) == 0 {
		c.logger.Info().
			Str("owner_id", req.OwnerID).
			Int("units", len(req.Units)).
			Msg("translation job skipped, every unit already cached")
		return nil, ErrAlreadyComplete
	}

	j := &jobState{
		ownerID:          req.OwnerID,
		title:            req.Title,
		batchSize:        batchSize,
		sourceLang:       sourceLang,
		targetLang:       targetLang,
		totalUnits:       len(req.Units),
		completedUnits:   cacheHits,
		progressPercent:  ProgressPercent(cacheHits, len(req.Units)),
		status:           StatusRunning,
		startedAt:        globaltime.UTC(),
		pending:          pending,
		originalPending:  pending,
		initialCacheHits: cacheHits,
		provider:         provider,
	}

	c.mu.Lock()
	c.current = j
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	snap := j.snapshot()
	c.mu.Unlock()

	c.logger.Info().
		Str("owner_id", req.OwnerID).
		Str("title", req.Title).
		Int("units", len(req.Units)).
		Int("cache_hits", cacheHits).
		Int("batch_size", batchSize).
		Str("target_lang", targetLang).
		Str("provider", provider.Name()).
		Msg("translation job started")

	c.notifier.Broadcast(snap)
	go c.runLoop(runCtx, j, j.run, pending)

	return snap, nil
}

// Pause suspends a running job at its next cancellation check. The end time
// is stamped even though the job is unfinished; it marks suspension.
func (c *Controller) Pause() error {
	c.mu.Lock()
	j := c.current
	if j == nil {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	if j.status != StatusRunning {
		c.mu.Unlock()
		return ErrJobNotRunning
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	j.status = StatusPaused
	endedAt := globaltime.UTC()
	j.endedAt = &endedAt
	snap := j.snapshot()
	c.mu.Unlock()

	c.logger.Info().Str("owner_id", j.ownerID).Int("completed", snap.CompletedUnits).Msg("translation job paused")
	c.notifier.Broadcast(snap)
	return nil
}

// Resume relaunches a paused job on the unprocessed suffix of the original
// pending list, computed from how many units were attempted since start.
func (c *Controller) Resume() error {
	c.mu.Lock()
	j := c.current
	if j == nil {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	if j.status != StatusPaused {
		c.mu.Unlock()
		return ErrJobNotPaused
	}

	translatedSinceStart := j.completedUnits - j.initialCacheHits
	if translatedSinceStart < 0 {
		translatedSinceStart = 0
	}
	if translatedSinceStart > len(j.originalPending) {
		translatedSinceStart = len(j.originalPending)
	}
	remaining := j.originalPending[translatedSinceStart:]

	j.pending = remaining
	j.status = StatusRunning
	j.run++
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	snap := j.snapshot()
	run := j.run
	c.mu.Unlock()

	c.logger.Info().Str("owner_id", j.ownerID).Int("remaining", len(remaining)).Msg("translation job resumed")
	c.notifier.Broadcast(snap)
	go c.runLoop(runCtx, j, run, remaining)
	return nil
}

// Stop cancels the loop and discards the job entirely. There is no terminal
// stopped record and no way to resume afterwards.
func (c *Controller) Stop() error {
	c.mu.Lock()
	j := c.current
	if j == nil {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	c.discardLocked()
	c.mu.Unlock()

	c.logger.Info().Str("owner_id", j.ownerID).Msg("translation job stopped and discarded")
	c.notifier.Broadcast(nil)
	return nil
}

// ClearCompleted discards a completed job, returning the controller to idle.
// It reports whether a job was discarded; any other state is a no-op.
func (c *Controller) ClearCompleted() bool {
	c.mu.Lock()
	j := c.current
	if j == nil || j.status != StatusCompleted {
		c.mu.Unlock()
		return false
	}
	c.discardLocked()
	c.mu.Unlock()

	c.notifier.Broadcast(nil)
	return true
}

// discardLocked cancels any loop and drops the current job. Caller holds mu
// and broadcasts nil after unlocking.
func (c *Controller) discardLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.current = nil
}

func (c *Controller) resolveProvider() (translation.Provider, error) {
	if c.registry == nil {
		return nil, ErrNoProvider
	}
	provider, err := c.registry.Provider(c.opts.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	return provider, nil
}

// runLoop processes units in fixed-size windows until exhaustion,
// cancellation, or an escaping panic. Progress advances by window size
// regardless of how many units actually obtained a translation.
func (c *Controller) runLoop(ctx context.Context, j *jobState, run int, units []WorkUnit) {
	defer func() {
		if r := recover(); r != nil {
			c.failJob(j, run, fmt.Sprintf("%v", r))
		}
	}()

	for start := 0; start < len(units); start += j.batchSize {
		if ctx.Err() != nil || !c.isRunning(j, run) {
			return
		}

		end := start + j.batchSize
		if end > len(units) {
			end = len(units)
		}
		window := units[start:end]

		if err := c.translateWindow(ctx, j, window); err != nil {
			c.logger.Warn().
				Err(err).
				Str("owner_id", j.ownerID).
				Int("window_size", len(window)).
				Msg("batch translation failed, falling back to per-unit calls")
			c.fallbackWindow(ctx, j, window)
		}

		c.advance(j, run, len(window))

		if end < len(units) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.WindowDelay):
			}
		}
	}

	c.completeJob(j, run)
}

// translateWindow sends the whole window as one tagged request and persists
// every parsed translation that is non-empty and differs from its original.
func (c *Controller) translateWindow(ctx context.Context, j *jobState, window []WorkUnit) error {
	texts := make([]string, len(window))
	for i, unit := range window {
		texts[i] = unit.Text
	}

	reply, err := j.provider.TranslateBatch(ctx, translation.BatchRequest{
		Texts:      texts,
		SourceLang: j.sourceLang,
		TargetLang: j.targetLang,
	})
	if err != nil {
		return err
	}

	for idx, translated := range translation.ParseBatchReply(reply, len(window)) {
		unit := window[idx]
		if translated == unit.Text {
			// The provider echoed the original; not worth persisting.
			continue
		}
		c.store.Put(ctx, j.ownerID, unit.Text, translated, j.sourceLang, j.targetLang)
	}
	return nil
}

// fallbackWindow translates the window one unit at a time, in order. A
// failed unit is logged and skipped with no retry this run; cancellation is
// checked before each unit but never interrupts a dispatched call.
func (c *Controller) fallbackWindow(ctx context.Context, j *jobState, window []WorkUnit) {
	for _, unit := range window {
		if ctx.Err() != nil {
			return
		}

		resp, err := j.provider.Translate(ctx, translation.Request{
			Text:       unit.Text,
			SourceLang: j.sourceLang,
			TargetLang: j.targetLang,
		})
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("owner_id", j.ownerID).
				Int("chapter", unit.ChapterIndex).
				Int("sentence", unit.SentenceIndex).
				Msg("unit translation failed, skipping")
			continue
		}

		translated := strings.TrimSpace(resp.Text)
		if translated == "" || translated == unit.Text {
			continue
		}
		c.store.Put(ctx, j.ownerID, unit.Text, translated, j.sourceLang, j.targetLang)
	}
}

func (c *Controller) isRunning(j *jobState, run int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == j && j.run == run && j.status == StatusRunning
}

// advance counts a whole window as attempted. The job may already be paused
// when an in-flight window finishes; its progress still lands. A window from
// a superseded run is dropped.
func (c *Controller) advance(j *jobState, run, n int) {
	c.mu.Lock()
	if c.current != j || j.run != run {
		c.mu.Unlock()
		return
	}
	j.completedUnits += n
	if j.completedUnits > j.totalUnits {
		j.completedUnits = j.totalUnits
	}
	j.progressPercent = ProgressPercent(j.completedUnits, j.totalUnits)
	snap := j.snapshot()
	c.mu.Unlock()

	c.notifier.Broadcast(snap)
}

func (c *Controller) completeJob(j *jobState, run int) {
	c.mu.Lock()
	if c.current != j || j.run != run || j.status != StatusRunning {
		c.mu.Unlock()
		return
	}
	j.status = StatusCompleted
	j.completedUnits = j.totalUnits
	j.progressPercent = 100
	endedAt := globaltime.UTC()
	j.endedAt = &endedAt
	j.pending = nil
	// The run is over; release its context.
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	snap := j.snapshot()
	c.mu.Unlock()

	c.logger.Info().Str("owner_id", j.ownerID).Int("units", snap.TotalUnits).Msg("translation job completed")
	c.notifier.Broadcast(snap)
}

func (c *Controller) failJob(j *jobState, run int, message string) {
	c.mu.Lock()
	if c.current != j || j.run != run {
		c.mu.Unlock()
		return
	}
	j.status = StatusFailed
	j.errorMessage = message
	endedAt := globaltime.UTC()
	j.endedAt = &endedAt
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	snap := j.snapshot()
	c.mu.Unlock()

	c.logger.Error().Str("owner_id", j.ownerID).Str("error", message).Msg("translation job failed")
	c.notifier.Broadcast(snap)
}
