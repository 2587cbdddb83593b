package stroke

import (
	"errors"
	"math"
	"testing"
)

// sineSignal builds n samples spaced dt apart with
// AX = offset + amp*sin(2π(t-shift)/period).
func sineSignal(n int, dt, amp, period, shift, offset float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		t := float64(i) * dt
		samples[i] = Sample{
			Time:  t,
			AX:    offset + amp*math.Sin(2*math.Pi*(t-shift)/period),
			AY:    0.3,
			AZ:    9.8,
			Pitch: 10 * math.Cos(2*math.Pi*t/period),
		}
	}
	return samples
}

// fromAX builds samples 0.02s apart from a list of AX values.
func fromAX(ax ...float64) []Sample {
	samples := make([]Sample, len(ax))
	for i, v := range ax {
		samples[i] = Sample{Time: float64(i) * 0.02, AX: v, AZ: 1}
	}
	return samples
}

func eventIndices(events []Event) []int {
	idx := make([]int, len(events))
	for i, e := range events {
		idx[i] = e.Index
	}
	return idx
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name        string
		samples     []Sample
		minDistance int
		expected    []int
	}{
		{
			name:        "sinusoid with five peaks",
			samples:     sineSignal(500, 0.02, 1, 2, 0, 0), // period 100 samples, peaks at 25, 125, ...
			minDistance: 60,
			expected:    []int{25, 125, 225, 325, 425},
		},
		{
			name:        "taller neighbour wins inside minimum distance",
			samples:     fromAX(0, 1, 0, 0, 3, 0, 0, 0, 0, 0, 2, 0),
			minDistance: 5,
			expected:    []int{4, 10},
		},
		{
			name:        "negative maxima are ignored",
			samples:     fromAX(-3, -1, -3, 0, 2, 0, -4, -2, -4),
			minDistance: 1,
			expected:    []int{4},
		},
		{
			name:        "flat top yields its middle sample",
			samples:     fromAX(0, 1, 1, 1, 0, 2, 2, 0),
			minDistance: 1,
			expected:    []int{2, 5},
		},
		{
			name:        "rising edge into the last sample is not a peak",
			samples:     fromAX(0, 1, 2, 2),
			minDistance: 1,
			expected:    []int{},
		},
		{
			name:        "too short",
			samples:     fromAX(0, 1),
			minDistance: 1,
			expected:    []int{},
		},
		{
			name:        "nothing above zero",
			samples:     fromAX(-1, -0.5, -1, -0.2, -1),
			minDistance: 1,
			expected:    []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks := FindPeaks(tt.samples, tt.minDistance, 0)
			got := eventIndices(peaks)
			if !equalInts(got, tt.expected) {
				t.Fatalf("expected peaks at %v, got %v", tt.expected, got)
			}
			for i := 1; i < len(peaks); i++ {
				if peaks[i].Index-peaks[i-1].Index < tt.minDistance {
					t.Errorf("peaks %d and %d closer than %d samples", peaks[i-1].Index, peaks[i].Index, tt.minDistance)
				}
			}
		})
	}
}

func TestLocateEntries(t *testing.T) {
	samples := fromAX(0, -1, 0, 2, 0, -2, -1, 3, 0)
	peaks := []Event{
		{Index: 3, Sample: samples[3]},
		{Index: 7, Sample: samples[7]},
	}

	entries, fallbacks := LocateEntries(samples, peaks)
	if fallbacks != 0 {
		t.Errorf("expected no fallbacks, got %d", fallbacks)
	}
	if got := eventIndices(entries); !equalInts(got, []int{1, 5}) {
		t.Errorf("expected entries at [1 5], got %v", got)
	}
}

func TestLocateEntriesFallsBackToPeak(t *testing.T) {
	samples := fromAX(0, 1, 3, 1, -1, -2, -1, 2, 0)
	peaks := []Event{
		{Index: 2, Sample: samples[2]},
		{Index: 7, Sample: samples[7]},
	}

	entries, fallbacks := LocateEntries(samples, peaks)
	if fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", fallbacks)
	}
	if len(entries) != len(peaks) {
		t.Fatalf("expected %d entries, got %d", len(peaks), len(entries))
	}
	if entries[0].Index != 2 {
		t.Errorf("first entry should be the peak itself (2), got %d", entries[0].Index)
	}
	if entries[1].Index != 5 {
		t.Errorf("second entry should be the minimum at 5, got %d", entries[1].Index)
	}
}

func TestLocateEntriesIgnoresFlatBottom(t *testing.T) {
	samples := fromAX(0, -1, -2, -2, -1, 3, 0)
	peaks := []Event{{Index: 5, Sample: samples[5]}}

	entries, fallbacks := LocateEntries(samples, peaks)
	if fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", fallbacks)
	}
	if got := eventIndices(entries); !equalInts(got, []int{5}) {
		t.Errorf("expected the peak as entry [5], got %v", got)
	}
}

func TestLocalMinima(t *testing.T) {
	tests := []struct {
		name     string
		ax       []float64
		expected []int
	}{
		{"strict minima", []float64{0, -1, 0, -2, -1, -3, 0}, []int{1, 3, 5}},
		{"flat bottom", []float64{0, -1, -2, -2, -1, 3}, nil},
		{"positive dip", []float64{2, 1, 2, -1, 0}, []int{3}},
		{"edges never count", []float64{-1, -0.5, -2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := localMinima(fromAX(tt.ax...)); !equalInts(got, tt.expected) {
				t.Errorf("expected minima at %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	samples := sineSignal(500, 0.02, 2, 3, 1.25, 0)
	entries := []Event{
		{Index: 25, Sample: samples[25]},
		{Index: 175, Sample: samples[175]},
		{Index: 325, Sample: samples[325]},
	}

	strokes := Partition(samples, entries)
	if len(strokes) != 3 {
		t.Fatalf("expected 3 strokes, got %d", len(strokes))
	}

	if len(strokes[0].Samples) != 25 {
		t.Errorf("leading stroke should hold 25 samples, got %d", len(strokes[0].Samples))
	}
	if got := strokes[0].EndTime(); got >= entries[0].Time() {
		t.Errorf("leading stroke must end before the first entry, ends at %.2f", got)
	}

	for i := 1; i < len(strokes); i++ {
		s := strokes[i]
		if s.StartTime() != entries[i-1].Time() || s.EndTime() != entries[i].Time() {
			t.Errorf("stroke %d spans [%.2f, %.2f], expected [%.2f, %.2f]",
				i, s.StartTime(), s.EndTime(), entries[i-1].Time(), entries[i].Time())
		}
		if s.Index != i {
			t.Errorf("stroke %d has index %d", i, s.Index)
		}
		prev := strokes[i-1]
		if s.StartTime() < prev.EndTime() {
			t.Errorf("stroke %d overlaps stroke %d", i, i-1)
		}
	}

	// covered samples: everything up to the last entry, boundaries shared
	covered := 0
	for _, s := range strokes {
		covered += len(s.Samples)
	}
	if want := 326 + len(strokes) - 2; covered != want {
		t.Errorf("expected %d samples across strokes, got %d", want, covered)
	}
}

func TestPartitionDropsEmptyLeadingStroke(t *testing.T) {
	samples := fromAX(-1, 2, -1, 2, -1)
	entries := []Event{
		{Index: 0, Sample: samples[0]},
		{Index: 2, Sample: samples[2]},
		{Index: 4, Sample: samples[4]},
	}

	strokes := Partition(samples, entries)
	if len(strokes) != 2 {
		t.Fatalf("expected 2 strokes, got %d", len(strokes))
	}
	if strokes[0].Index != 0 || strokes[0].StartTime() != 0 {
		t.Errorf("first stroke should start at the first entry, got index %d start %.2f",
			strokes[0].Index, strokes[0].StartTime())
	}
}

func TestPartitionCopiesSamples(t *testing.T) {
	samples := fromAX(0, -1, 2, -1, 0)
	entries := []Event{{Index: 1, Sample: samples[1]}, {Index: 3, Sample: samples[3]}}

	strokes := Partition(samples, entries)
	strokes[len(strokes)-1].Samples[0].AX = 99
	if samples[1].AX != -1 {
		t.Error("stroke samples must not alias the input signal")
	}
}

func TestLocateExitAndAir(t *testing.T) {
	tests := []struct {
		name         string
		ax           []float64
		offset       int
		wantExit     int
		wantAir      int
		wantFallback bool
		wantErr      error
	}{
		{
			name:     "inflection after exit",
			ax:       []float64{-1, 3, 1, -1, -2, -1.5, -3, -1, -0.5},
			offset:   5,
			wantExit: 3,
			wantAir:  4,
		},
		{
			name:     "last sign change wins",
			ax:       []float64{-1, 4, 1, -1, 1, -1, -2, -1},
			offset:   5,
			wantExit: 5,
			wantAir:  6,
		},
		{
			name:         "no inflection falls back to offset",
			ax:           []float64{-1, 4, 2, 1, -1, -2, -3, -4, -5, -6, -7, -8},
			offset:       5,
			wantExit:     4,
			wantAir:      9,
			wantFallback: true,
		},
		{
			name:         "fallback offset clamped to stroke end",
			ax:           []float64{-1, 4, 2, -1, -2, -3},
			offset:       5,
			wantExit:     3,
			wantAir:      5,
			wantFallback: true,
		},
		{
			name:         "flat bottom after exit falls back to offset",
			ax:           []float64{3, 1, -1, -2, -2, -1, -0.5, -0.2},
			offset:       5,
			wantExit:     2,
			wantAir:      7,
			wantFallback: true,
		},
		{
			name:    "never negative after maximum",
			ax:      []float64{-1, 0.5, 4, 3, 2, 1, 2},
			offset:  5,
			wantErr: ErrNoSignChange,
		},
		{
			name:    "maximum at the end",
			ax:      []float64{-1, 0, 1, 2},
			offset:  5,
			wantErr: ErrNoSignChange,
		},
		{
			name:    "empty stroke",
			ax:      nil,
			offset:  5,
			wantErr: ErrEmptyStroke,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stroke{Index: 3, Samples: fromAX(tt.ax...)}
			loc, err := LocateExitAndAir(s, tt.offset)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loc.Exit.Index != tt.wantExit {
				t.Errorf("exit: expected %d, got %d", tt.wantExit, loc.Exit.Index)
			}
			if loc.Air.Index != tt.wantAir {
				t.Errorf("air: expected %d, got %d", tt.wantAir, loc.Air.Index)
			}
			if loc.AirFallback != tt.wantFallback {
				t.Errorf("air fallback: expected %v, got %v", tt.wantFallback, loc.AirFallback)
			}
			if loc.Air.Time() < loc.Exit.Time() {
				t.Errorf("air point %.2f precedes exit %.2f", loc.Air.Time(), loc.Exit.Time())
			}
		})
	}
}

func TestAlign(t *testing.T) {
	samples := sineSignal(500, 0.02, 2, 3, 1.25, 0)
	peaks := FindPeaks(samples, 60, 0)
	entries, _ := LocateEntries(samples, peaks)
	strokes := Partition(samples, entries)
	locs := LocateAll(strokes, DefaultAirFallbackOffset)

	a := Align(entries, peaks, strokes, locs)

	if a.LeadingDrops != 1 {
		t.Errorf("expected the partial leading stroke to be dropped, got %d leading drops", a.LeadingDrops)
	}
	if a.TrailingDrops != 1 {
		t.Errorf("expected the final peak to be left without a stroke, got %d trailing drops", a.TrailingDrops)
	}
	if len(a.Failures) != 0 {
		t.Errorf("expected no failures, got %v", a.Failures)
	}
	if len(a.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(a.Cycles))
	}

	for i, c := range a.Cycles {
		if c.Stroke.Index != i {
			t.Errorf("cycle %d carries stroke index %d", i, c.Stroke.Index)
		}
		if !(c.Entry.Time() <= c.Peak.Time() && c.Peak.Time() <= c.Exit.Time() && c.Exit.Time() <= c.Air.Time()) {
			t.Errorf("cycle %d events out of order: entry %.2f peak %.2f exit %.2f air %.2f",
				i, c.Entry.Time(), c.Peak.Time(), c.Exit.Time(), c.Air.Time())
		}
		if c.Peak.Time() < c.Stroke.StartTime() || c.Peak.Time() > c.Stroke.EndTime() {
			t.Errorf("cycle %d peak %.2f outside stroke [%.2f, %.2f]",
				i, c.Peak.Time(), c.Stroke.StartTime(), c.Stroke.EndTime())
		}
		if c.Entry.Time() != c.Stroke.StartTime() {
			t.Errorf("cycle %d entry %.2f does not start its stroke %.2f", i, c.Entry.Time(), c.Stroke.StartTime())
		}
	}
}

func TestAlignKeepsFailedSlots(t *testing.T) {
	samples := fromAX(-1, 2, -1, 2, -1, 2, -1)
	entries := []Event{
		{Index: 0, Sample: samples[0]},
		{Index: 2, Sample: samples[2]},
		{Index: 4, Sample: samples[4]},
		{Index: 6, Sample: samples[6]},
	}
	peaks := []Event{
		{Index: 1, Sample: samples[1]},
		{Index: 3, Sample: samples[3]},
		{Index: 5, Sample: samples[5]},
	}
	strokes := Partition(samples, entries)
	locs := []Location{
		{Stroke: 0, Exit: Event{Index: 2, Sample: samples[2]}, Air: Event{Index: 2, Sample: samples[2]}},
		{Stroke: 1, Err: ErrNoSignChange},
		{Stroke: 2, Exit: Event{Index: 2, Sample: samples[6]}, Air: Event{Index: 2, Sample: samples[6]}},
	}

	a := Align(entries, peaks, strokes, locs)
	if len(a.Failures) != 1 || a.Failures[0].Stroke != 1 {
		t.Fatalf("expected stroke 1 to fail, got %+v", a.Failures)
	}
	if len(a.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(a.Cycles))
	}
	if a.Cycles[1].Peak.Index != 5 || a.Cycles[1].Stroke.Index != 2 {
		t.Errorf("cycle after the failure is misaligned: peak %d stroke %d",
			a.Cycles[1].Peak.Index, a.Cycles[1].Stroke.Index)
	}
}

func TestSelectInterval(t *testing.T) {
	samples := fromAX(0, 1, 2, 3, 4, 5)
	got := SelectInterval(samples, 0.01, 0.07)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[0].AX != 1 || got[2].AX != 3 {
		t.Errorf("unexpected interval %+v", got)
	}

	got[0].AX = 42
	if samples[1].AX != 1 {
		t.Error("SelectInterval must copy")
	}

	if empty := SelectInterval(samples, 1, 2); len(empty) != 0 {
		t.Errorf("expected no samples past the end, got %d", len(empty))
	}
}
