// Package job is the resumable batch translation engine. A single
// controller owns at most one job at a time: it strips already-cached units,
// drives provider calls in fixed-size windows with a per-unit fallback path,
// and broadcasts every state change to subscribers.
package job

import (
	"time"

	"github.com/aelous/read-bridge/internal/translation"
)

// Status is the lifecycle state of the active job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further work will happen for this job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// WorkUnit is one translatable sentence with its position in the book.
// Identity is positional; the same text may appear more than once.
type WorkUnit struct {
	Text          string `json:"text"`
	ChapterIndex  int    `json:"chapter_index"`
	SentenceIndex int    `json:"sentence_index"`
}

// Snapshot is an immutable view of the active job handed to subscribers and
// API callers. Progress counts units attempted per window, not units that
// actually obtained a translation; skipped units stay cache misses and are
// picked up by a future run.
type Snapshot struct {
	OwnerID         string     `json:"owner_id"`
	Title           string     `json:"title"`
	Status          Status     `json:"status"`
	BatchSize       int        `json:"batch_size"`
	SourceLang      string     `json:"source_lang,omitempty"`
	TargetLang      string     `json:"target_lang"`
	TotalUnits      int        `json:"total_units"`
	CompletedUnits  int        `json:"completed_units"`
	ProgressPercent int        `json:"progress_percent"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// jobState is the single mutable aggregate owned by the controller. It is
// only touched while holding the controller mutex.
type jobState struct {
	ownerID         string
	title           string
	batchSize       int
	sourceLang      string
	targetLang      string
	totalUnits      int
	completedUnits  int
	progressPercent int
	status          Status
	startedAt       time.Time
	endedAt         *time.Time
	errorMessage    string

	// pending holds exactly the units not yet attempted in the current run;
	// originalPending is the start-time pending list used to re-slice the
	// unprocessed suffix on resume.
	pending          []WorkUnit
	originalPending  []WorkUnit
	initialCacheHits int

	// run increments on every resume so a loop from a superseded run cannot
	// advance progress after the job has been relaunched.
	run int

	provider translation.Provider
}

func (j *jobState) snapshot() *Snapshot {
	snap := &Snapshot{
		OwnerID:         j.ownerID,
		Title:           j.title,
		Status:          j.status,
		BatchSize:       j.batchSize,
		SourceLang:      j.sourceLang,
		TargetLang:      j.targetLang,
		TotalUnits:      j.totalUnits,
		CompletedUnits:  j.completedUnits,
		ProgressPercent: j.progressPercent,
		StartedAt:       j.startedAt,
		ErrorMessage:    j.errorMessage,
	}
	if j.endedAt != nil {
		endedAt := *j.endedAt
		snap.EndedAt = &endedAt
	}
	return snap
}
