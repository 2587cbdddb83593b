// Package storage persists analysed swim sessions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/swimstroke/internal/stroke"
)

// ErrNotFound is returned when a session ID does not exist in the store.
var ErrNotFound = errors.New("session not found")

// Store is implemented by every session storage backend.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)

	// ListSessions returns summaries, newest first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)

	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Failure is the stored form of a stroke the analysis had to skip.
type Failure struct {
	Stroke    int     `json:"stroke" msgpack:"stroke"`
	StartTime float64 `json:"start_time" msgpack:"start_time"`
	Reason    string  `json:"reason" msgpack:"reason"`
}

// Session is one analysed recording.
type Session struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	CreatedAt   time.Time             `json:"created_at"`
	SampleCount int                   `json:"sample_count"`
	Params      stroke.Params         `json:"params"`
	Diagnostics stroke.Diagnostics    `json:"diagnostics"`
	Rows        []stroke.IndicatorRow `json:"-"`
	Failures    []Failure             `json:"failures"`
}

// SessionSummary is the listing form of a session.
type SessionSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	SampleCount int       `json:"sample_count"`
	Strokes     int       `json:"strokes"`
	Failures    int       `json:"failures"`
}

// NewSession builds a session from an analysis result, with a fresh ID.
func NewSession(name string, params stroke.Params, res *stroke.Result) *Session {
	s := &Session{
		ID:          uuid.New(),
		Name:        name,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		SampleCount: res.Diagnostics.Samples,
		Params:      params,
		Diagnostics: res.Diagnostics,
		Rows:        res.Rows,
	}
	for _, f := range res.Failures {
		s.Failures = append(s.Failures, Failure{Stroke: f.Stroke, StartTime: f.StartTime, Reason: f.Reason})
	}
	return s
}

// Summary returns the listing form of s.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:          s.ID,
		Name:        s.Name,
		CreatedAt:   s.CreatedAt,
		SampleCount: s.SampleCount,
		Strokes:     len(s.Rows),
		Failures:    len(s.Failures),
	}
}
