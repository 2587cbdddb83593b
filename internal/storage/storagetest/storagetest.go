// Package storagetest holds fixtures shared by the storage backend tests.
package storagetest

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/swimstroke/internal/storage"
	"github.com/chrissnell/swimstroke/internal/stroke"
)

// Session returns a session with n indicator rows and one failure. The last
// row carries an empty air phase (NaN statistics).
func Session(name string, n int, createdAt time.Time) *storage.Session {
	cols := stroke.Columns()
	rows := make([]stroke.IndicatorRow, n)
	for r := range rows {
		m := make(map[string]float64, len(cols))
		for i, c := range cols {
			m[c] = float64(r) + float64(i)/100
		}
		rows[r] = stroke.RowFromMap(r, 2+float64(r)*3, m)
	}
	if n > 0 {
		air := &rows[n-1].Phases[stroke.PhaseAir]
		air.MeanPitch = math.NaN()
		air.UsefulForce = math.NaN()
	}

	return &storage.Session{
		ID:          uuid.New(),
		Name:        name,
		CreatedAt:   createdAt.UTC().Truncate(time.Millisecond),
		SampleCount: 500,
		Params:      stroke.DefaultParams(),
		Diagnostics: stroke.Diagnostics{Samples: 500, Peaks: n + 1, Cycles: n, NoInflectionFound: 1},
		Rows:        rows,
		Failures:    []storage.Failure{{Stroke: n, StartTime: 9.5, Reason: "no sign change"}},
	}
}

// SameValues reports whether two rows hold bit-identical values.
func SameValues(a, b stroke.IndicatorRow) bool {
	av, bv := a.Values(), b.Values()
	if a.Stroke != b.Stroke || a.StartTime != b.StartTime || len(av) != len(bv) {
		return false
	}
	for i := range av {
		if math.Float64bits(av[i]) != math.Float64bits(bv[i]) {
			return false
		}
	}
	return true
}
