package stroke

import (
	"math"
	"sort"
)

// Sample is a single accelerometer/orientation reading.
// Time is elapsed seconds since the start of the recording.
type Sample struct {
	Time  float64 `json:"time" msgpack:"time"`
	AX    float64 `json:"ax" msgpack:"ax"`
	AY    float64 `json:"ay" msgpack:"ay"`
	AZ    float64 `json:"az" msgpack:"az"`
	Pitch float64 `json:"pitch" msgpack:"pitch"`
	Roll  float64 `json:"roll" msgpack:"roll"`
}

// Event marks a detected transition (peak, entry, exit or air point).
// Index refers to the slice the event was detected in: the full signal for
// peaks and entries, the owning stroke for exits and air points.
type Event struct {
	Index  int    `json:"index"`
	Sample Sample `json:"sample"`
}

// Time returns the elapsed time of the event.
func (e Event) Time() float64 {
	return e.Sample.Time
}

// Stroke is one stroke window. It owns a copy of its samples.
type Stroke struct {
	Index   int
	Samples []Sample
}

// StartTime returns the time of the first sample, or NaN for an empty stroke.
func (s Stroke) StartTime() float64 {
	if len(s.Samples) == 0 {
		return math.NaN()
	}
	return s.Samples[0].Time
}

// EndTime returns the time of the last sample, or NaN for an empty stroke.
func (s Stroke) EndTime() float64 {
	if len(s.Samples) == 0 {
		return math.NaN()
	}
	return s.Samples[len(s.Samples)-1].Time
}

// Duration is EndTime - StartTime.
func (s Stroke) Duration() float64 {
	return s.EndTime() - s.StartTime()
}

// StrokeCycle ties a stroke to its own entry, peak, exit and air events.
// Produced once by Align; everything downstream consumes cycles, never
// parallel event lists.
type StrokeCycle struct {
	Stroke Stroke
	Entry  Event
	Peak   Event
	Exit   Event
	Air    Event

	// AirFallback is set when Air was placed by offset rather than found.
	AirFallback bool
}

// EntryFallback reports whether the entry is the peak itself because no
// minimum preceded it.
func (c StrokeCycle) EntryFallback() bool {
	return c.Entry.Index == c.Peak.Index && c.Entry.Time() == c.Peak.Time()
}

// Phase is a named sub-window of a stroke.
type Phase int

const (
	PhaseEntry Phase = iota
	PhasePull
	PhaseExit
	PhaseAir
	PhaseWater

	phaseCount = 5
)

// Phases lists every phase in column order.
var Phases = []Phase{PhaseEntry, PhasePull, PhaseExit, PhaseAir, PhaseWater}

// String returns the phase name used in indicator column names.
func (p Phase) String() string {
	switch p {
	case PhaseEntry:
		return "Entry Fase"
	case PhasePull:
		return "Pull Fase"
	case PhaseExit:
		return "Exit Fase"
	case PhaseAir:
		return "Air Fase"
	case PhaseWater:
		return "Water Fase"
	default:
		return "Unknown Fase"
	}
}

// window returns the samples whose time lies in [from, to]. Use -Inf/+Inf
// for an open bound. samples must be sorted by time.
func window(samples []Sample, from, to float64) []Sample {
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= from })
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].Time > to })
	if hi < lo {
		return nil
	}
	return samples[lo:hi]
}

// before returns the samples strictly earlier than t.
func before(samples []Sample, t float64) []Sample {
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].Time >= t })
	return samples[:hi]
}

// after returns the samples strictly later than t.
func after(samples []Sample, t float64) []Sample {
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].Time > t })
	return samples[lo:]
}

// SelectInterval returns a copy of the samples with start <= Time <= end.
func SelectInterval(samples []Sample, start, end float64) []Sample {
	w := window(samples, start, end)
	out := make([]Sample, len(w))
	copy(out, w)
	return out
}

// isSorted reports whether samples are in non-decreasing time order.
func isSorted(samples []Sample) bool {
	return sort.SliceIsSorted(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
}
