package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aelous/read-bridge/internal/job"
	"github.com/aelous/read-bridge/internal/workset"
)

const maxWorkSetBytes = 32 << 20

// handleStartJob validates the submitted work set and launches a job.
// Submitting while a job exists replaces it; a work set whose every unit is
// already cached creates nothing.
func (s *Server) handleStartJob(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWorkSetBytes+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}
	if len(payload) > maxWorkSetBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Work set payload too large", nil)
	}

	ws, err := workset.Parse(payload)
	if err != nil {
		return failValidation(c, map[string]string{"work_set": err.Error()})
	}

	snap, err := s.controller.Start(c.Request().Context(), job.StartRequest{
		OwnerID:    ws.OwnerID,
		Title:      ws.Title,
		Units:      ws.WorkUnits(),
		BatchSize:  ws.BatchSize,
		SourceLang: ws.SourceLang,
		TargetLang: ws.TargetLang,
	})
	if err != nil {
		switch {
		case errors.Is(err, job.ErrAlreadyComplete):
			return success(c, map[string]any{
				"already_complete": true,
				"job":              nil,
			})
		case errors.Is(err, job.ErrNoProvider):
			return fail(c, http.StatusServiceUnavailable, "No translation provider is configured", nil)
		default:
			s.logger.Error().Err(err).Str("owner_id", ws.OwnerID).Msg("start job failed")
			return internalError(c, "Failed to start job")
		}
	}

	return successWithStatus(c, http.StatusCreated, map[string]any{
		"already_complete": false,
		"job":              snap,
	})
}

func (s *Server) handleCurrentJob(c echo.Context) error {
	snap := s.controller.Current()
	if snap == nil {
		return failNotFound(c, "No active job")
	}
	return success(c, map[string]any{"job": snap})
}

func (s *Server) handlePauseJob(c echo.Context) error {
	if err := s.controller.Pause(); err != nil {
		return jobControlError(c, err)
	}
	return success(c, map[string]any{"job": s.controller.Current()})
}

func (s *Server) handleResumeJob(c echo.Context) error {
	if err := s.controller.Resume(); err != nil {
		return jobControlError(c, err)
	}
	return success(c, map[string]any{"job": s.controller.Current()})
}

func (s *Server) handleStopJob(c echo.Context) error {
	if err := s.controller.Stop(); err != nil {
		return jobControlError(c, err)
	}
	return success(c, map[string]any{"stopped": true})
}

func (s *Server) handleClearJob(c echo.Context) error {
	return success(c, map[string]any{"cleared": s.controller.ClearCompleted()})
}

func jobControlError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, job.ErrNoActiveJob):
		return failNotFound(c, "No active job")
	case errors.Is(err, job.ErrJobNotRunning):
		return failConflict(c, "Job is not running")
	case errors.Is(err, job.ErrJobNotPaused):
		return failConflict(c, "Job is not paused")
	default:
		return internalError(c, "Job control failed")
	}
}

// handleJobEvents streams job snapshots as server-sent events. The replayed
// current snapshot arrives first; a nil snapshot is sent as the literal
// "null" so clients can render the idle state.
func (s *Server) handleJobEvents(c echo.Context) error {
	response := c.Response()
	response.Header().Set(echo.HeaderContentType, "text/event-stream")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)

	flusher, ok := response.Writer.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	events := make(chan *job.Snapshot, 16)
	unsubscribe := s.controller.Subscribe(func(snap *job.Snapshot) {
		select {
		case events <- snap:
		default:
			// A stalled client drops events; the next one carries the
			// full snapshot anyway.
		}
	})
	defer unsubscribe()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-events:
			payload, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error().Err(err).Msg("marshal job snapshot failed")
				continue
			}
			if _, err := fmt.Fprintf(response, "data: %s\n\n", payload); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleCacheStats(c echo.Context) error {
	stats, err := s.cache.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query cache stats failed")
		return internalError(c, "Failed to load cache stats")
	}
	return success(c, stats)
}

// handleCacheLookup resolves one text for one owner, mirroring what a job
// run would see. Useful for debugging stale entries.
func (s *Server) handleCacheLookup(c echo.Context) error {
	ownerID := strings.TrimSpace(c.QueryParam("owner_id"))
	text := c.QueryParam("text")
	fieldErrors := map[string]string{}
	if ownerID == "" {
		fieldErrors["owner_id"] = "owner_id is required"
	}
	if strings.TrimSpace(text) == "" {
		fieldErrors["text"] = "text is required"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	entry := s.cache.Get(c.Request().Context(), ownerID, text)
	if entry == nil {
		return failNotFound(c, "No cached translation")
	}
	return success(c, map[string]any{"entry": entry})
}

func (s *Server) handleCacheDeleteOwner(c echo.Context) error {
	ownerID := strings.TrimSpace(c.Param("owner_id"))
	if ownerID == "" {
		return failValidation(c, map[string]string{"owner_id": "owner_id is required"})
	}

	deleted, err := s.cache.DeleteByOwner(c.Request().Context(), ownerID)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", ownerID).Msg("delete cache entries failed")
		return internalError(c, "Failed to delete cache entries")
	}
	return success(c, map[string]any{"deleted": deleted})
}

func (s *Server) handleCacheClear(c echo.Context) error {
	if c.QueryParam("confirm") != "true" {
		return failValidation(c, map[string]string{"confirm": "pass confirm=true to clear the whole cache"})
	}

	deleted, err := s.cache.ClearAll(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("clear cache failed")
		return internalError(c, "Failed to clear cache")
	}
	return success(c, map[string]any{"deleted": deleted})
}
