package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrissnell/swimstroke/internal/export"
	"github.com/chrissnell/swimstroke/internal/recording"
	"github.com/chrissnell/swimstroke/internal/storage"
	"github.com/chrissnell/swimstroke/internal/stroke"
	"github.com/chrissnell/swimstroke/pkg/responseformat"
)

// maxRecordingBytes caps an uploaded recording. An hour at 50 Hz is
// roughly 12 MB of CSV.
const maxRecordingBytes = 64 << 20

const healthTimeout = 2 * time.Second

// Handlers contains the HTTP handlers for the session API
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new Handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

type createResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Strokes     int                `json:"strokes"`
	Failures    []storage.Failure  `json:"failures"`
	Diagnostics stroke.Diagnostics `json:"diagnostics"`
}

type sessionResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	CreatedAt   time.Time          `json:"created_at"`
	SampleCount int                `json:"sample_count"`
	Params      stroke.Params      `json:"params"`
	Diagnostics stroke.Diagnostics `json:"diagnostics"`
	Failures    []storage.Failure  `json:"failures"`
	Rows        []export.Record    `json:"rows"`
}

// sendError sends an error response in JSON format
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorResponse := map[string]any{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	}
	if err != nil {
		errorResponse["details"] = err.Error()
	}

	w.Header().Set("Content-Type", responseformat.ContentTypeJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error writing response: %v", err)
	}
}

// Health reports whether the server and its session store are usable.
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	if err := h.controller.store.Ping(ctx); err != nil {
		h.controller.logger.Warnf("session store health check failed: %v", err)
		h.respond(w, req, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"storage": err.Error(),
		})
		return
	}
	h.respond(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession reads a CSV recording from the request body, segments it,
// and stores the result. Optional query parameters: name, and start/end in
// seconds to analyse only part of the recording.
func (h *Handlers) CreateSession(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	start, end, err := parseInterval(query.Get("start"), query.Get("end"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid interval", err)
		return
	}

	body := http.MaxBytesReader(w, req.Body, maxRecordingBytes)
	samples, err := recording.Read(body, h.controller.input)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, http.StatusRequestEntityTooLarge, "Recording too large", err)
			return
		}
		h.sendError(w, http.StatusBadRequest, "Could not read recording", err)
		return
	}
	samples = stroke.SelectInterval(samples, start, end)

	res, err := h.controller.analyzer.Analyze(req.Context(), samples)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.sendError(w, http.StatusUnprocessableEntity, "Analysis failed", err)
		return
	}

	name := query.Get("name")
	if name == "" {
		name = fmt.Sprintf("recording %s", time.Now().UTC().Format(time.RFC3339))
	}

	sess := storage.NewSession(name, h.controller.analyzer.Params(), res)
	if err := h.controller.store.SaveSession(req.Context(), sess); err != nil {
		h.controller.logger.Errorf("error saving session %s: %v", sess.ID, err)
		h.sendError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	h.controller.logger.Infow("session created",
		"id", sess.ID, "name", sess.Name, "samples", sess.SampleCount, "strokes", len(sess.Rows))

	h.respond(w, req, http.StatusCreated, createResponse{
		ID:          sess.ID,
		Name:        sess.Name,
		Strokes:     len(sess.Rows),
		Failures:    sess.Failures,
		Diagnostics: sess.Diagnostics,
	})
}

// ListSessions returns every stored session summary, newest first.
func (h *Handlers) ListSessions(w http.ResponseWriter, req *http.Request) {
	sessions, err := h.controller.store.ListSessions(req.Context())
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []storage.SessionSummary{}
	}
	h.respond(w, req, http.StatusOK, sessions)
}

// GetSession returns one session with its indicator table. format=csv
// returns the table alone as CSV; format=msgpack switches the encoding.
func (h *Handlers) GetSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := h.lookupSession(w, req)
	if !ok {
		return
	}

	format := req.URL.Query().Get("format")
	if format != "" {
		f, err := export.FormatFromString(format)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "Invalid format", err)
			return
		}
		if f == export.FormatCSV {
			w.Header().Set("Content-Type", f.ContentType())
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", sess.ID.String()+f.Extension()))
			if err := export.Write(w, f, sess.Rows); err != nil {
				h.controller.logger.Errorf("error writing CSV for session %s: %v", sess.ID, err)
			}
			return
		}
	}

	failures := sess.Failures
	if failures == nil {
		failures = []storage.Failure{}
	}
	h.respond(w, req, http.StatusOK, sessionResponse{
		ID:          sess.ID,
		Name:        sess.Name,
		CreatedAt:   sess.CreatedAt,
		SampleCount: sess.SampleCount,
		Params:      sess.Params,
		Diagnostics: sess.Diagnostics,
		Failures:    failures,
		Rows:        export.Records(sess.Rows),
	})
}

// DeleteSession removes a session and its rows.
func (h *Handlers) DeleteSession(w http.ResponseWriter, req *http.Request) {
	id, ok := h.sessionID(w, req)
	if !ok {
		return
	}

	if err := h.controller.store.DeleteSession(req.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.sendError(w, http.StatusNotFound, "Session not found", nil)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "Failed to delete session", err)
		return
	}

	h.controller.logger.Infow("session deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) sessionID(w http.ResponseWriter, req *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid session ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) lookupSession(w http.ResponseWriter, req *http.Request) (*storage.Session, bool) {
	id, ok := h.sessionID(w, req)
	if !ok {
		return nil, false
	}

	sess, err := h.controller.store.GetSession(req.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.sendError(w, http.StatusNotFound, "Session not found", nil)
			return nil, false
		}
		h.sendError(w, http.StatusInternalServerError, "Failed to load session", err)
		return nil, false
	}
	return sess, true
}

// parseInterval reads optional start and end times in seconds. A missing
// bound leaves that side of the recording open.
func parseInterval(startParam, endParam string) (float64, float64, error) {
	start, end := math.Inf(-1), math.Inf(1)

	if startParam != "" {
		v, err := strconv.ParseFloat(startParam, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid start %q", startParam)
		}
		start = v
	}
	if endParam != "" {
		v, err := strconv.ParseFloat(endParam, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid end %q", endParam)
		}
		end = v
	}
	if start > end {
		return 0, 0, fmt.Errorf("start %g is after end %g", start, end)
	}
	return start, end, nil
}
