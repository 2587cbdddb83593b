package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/swimstroke/internal/export"
	"github.com/chrissnell/swimstroke/internal/storage"
)

// SessionModel is the sessions table
type SessionModel struct {
	ID           string           `gorm:"primaryKey;column:id;type:uuid"`
	Name         string           `gorm:"column:name;not null"`
	CreatedAt    time.Time        `gorm:"column:created_at;not null;index"`
	SampleCount  int              `gorm:"column:sample_count;not null"`
	Params       string           `gorm:"column:params;type:jsonb;not null"`
	Diagnostics  string           `gorm:"column:diagnostics;type:jsonb;not null"`
	Failures     string           `gorm:"column:failures;type:jsonb"`
	FailureCount int              `gorm:"column:failure_count;not null;default:0"`
	Rows         []StrokeRowModel `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for SessionModel
func (SessionModel) TableName() string {
	return "sessions"
}

// StrokeRowModel is one indicator row. Indicators holds the row as a JSON
// object keyed by column name; NaN and infinite values are stored as null.
type StrokeRowModel struct {
	SessionID  string  `gorm:"primaryKey;column:session_id;type:uuid"`
	Stroke     int     `gorm:"primaryKey;column:stroke;autoIncrement:false"`
	StartTime  float64 `gorm:"column:start_time;not null"`
	Indicators string  `gorm:"column:indicators;type:jsonb;not null"`
}

// TableName specifies the table name for StrokeRowModel
func (StrokeRowModel) TableName() string {
	return "stroke_rows"
}

func toModel(s *storage.Session) (*SessionModel, error) {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	diag, err := json.Marshal(s.Diagnostics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	failures, err := json.Marshal(s.Failures)
	if err != nil {
		return nil, fmt.Errorf("failed to encode failures: %w", err)
	}

	m := &SessionModel{
		ID:           s.ID.String(),
		Name:         s.Name,
		CreatedAt:    s.CreatedAt,
		SampleCount:  s.SampleCount,
		Params:       string(params),
		Diagnostics:  string(diag),
		Failures:     string(failures),
		FailureCount: len(s.Failures),
	}

	for _, rec := range export.Records(s.Rows) {
		ind, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode stroke %d: %w", rec.Stroke, err)
		}
		m.Rows = append(m.Rows, StrokeRowModel{
			SessionID:  m.ID,
			Stroke:     rec.Stroke,
			StartTime:  rec.StartTime,
			Indicators: string(ind),
		})
	}
	return m, nil
}

func fromModel(m *SessionModel) (*storage.Session, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", m.ID, err)
	}

	s := &storage.Session{
		ID:          id,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt.UTC(),
		SampleCount: m.SampleCount,
	}
	if err := json.Unmarshal([]byte(m.Params), &s.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	if err := json.Unmarshal([]byte(m.Diagnostics), &s.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
	}
	if m.Failures != "" {
		if err := json.Unmarshal([]byte(m.Failures), &s.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures: %w", err)
		}
	}

	for _, r := range m.Rows {
		var rec export.Record
		if err := json.Unmarshal([]byte(r.Indicators), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode stroke %d: %w", r.Stroke, err)
		}
		row := rec.Row()
		row.Stroke = r.Stroke
		row.StartTime = r.StartTime
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}
