package stroke

import (
	"fmt"
	"sort"
)

// DefaultAirFallbackOffset is how many samples past the exit point the air
// point is placed when no inflection is found. It is a sample count rather
// than a duration, so it shrinks in time as the sampling rate goes up.
const DefaultAirFallbackOffset = 5

// Location is the exit and air point of one stroke. Event indices are
// relative to the stroke's own samples.
type Location struct {
	Stroke      int
	Exit        Event
	Air         Event
	AirFallback bool
	Err         error
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// argmaxAX returns the index of the first sample with the largest AX.
func argmaxAX(samples []Sample) int {
	best := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].AX > samples[best].AX {
			best = i
		}
	}
	return best
}

// LocateExitAndAir finds the exit point (last AX sign change after the
// stroke maximum) and the air point (first negative local minimum at or after
// the exit) of a single stroke.
//
// A stroke with no sign change after its maximum yields ErrNoSignChange.
// Missing inflections are not an error: the air point falls back to
// airOffset samples after the exit, clamped to the stroke, and AirFallback
// is set.
func LocateExitAndAir(s Stroke, airOffset int) (Location, error) {
	loc := Location{Stroke: s.Index}
	samples := s.Samples
	if len(samples) == 0 {
		return loc, fmt.Errorf("stroke %d: %w", s.Index, ErrEmptyStroke)
	}

	tMax := samples[argmaxAX(samples)].Time
	tailStart := len(samples) - len(after(samples, tMax))

	exitIdx := -1
	for i := tailStart + 1; i < len(samples); i++ {
		if sign(samples[i].AX) != sign(samples[i-1].AX) {
			exitIdx = i
		}
	}
	if exitIdx < 0 {
		return loc, fmt.Errorf("stroke %d (t=%.3fs): %w", s.Index, s.StartTime(), ErrNoSignChange)
	}
	loc.Exit = Event{Index: exitIdx, Sample: samples[exitIdx]}

	subStart := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= loc.Exit.Time() })
	sub := samples[subStart:]

	var airIdx int
	if minima := localMinima(sub); len(minima) > 0 {
		airIdx = subStart + minima[0]
	} else {
		offset := airOffset
		if offset > len(sub)-1 {
			offset = len(sub) - 1
		}
		if offset < 0 {
			offset = 0
		}
		airIdx = subStart + offset
		loc.AirFallback = true
	}
	loc.Air = Event{Index: airIdx, Sample: samples[airIdx]}

	return loc, nil
}

// LocateAll runs LocateExitAndAir on every stroke. The result is index
// aligned with strokes; failed strokes carry their error in Location.Err.
func LocateAll(strokes []Stroke, airOffset int) []Location {
	locs := make([]Location, len(strokes))
	for i, s := range strokes {
		loc, err := LocateExitAndAir(s, airOffset)
		loc.Err = err
		locs[i] = loc
	}
	return locs
}
