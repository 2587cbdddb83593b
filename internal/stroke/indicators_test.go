package stroke

import (
	"math"
	"testing"
)

func TestComputePhaseStatsLinearRamp(t *testing.T) {
	const (
		amplitude = 2.0
		duration  = 1.5
		n         = 76
	)
	samples := make([]Sample, n)
	for i := range samples {
		tm := duration * float64(i) / float64(n-1)
		samples[i] = Sample{
			Time:  tm,
			AX:    amplitude * tm / duration,
			AY:    1,
			AZ:    1,
			Pitch: 5 + 10*tm/duration,
		}
	}

	stats := ComputePhaseStats(samples)

	checks := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"speed variation", stats.SpeedVariation, amplitude * duration / 2},
		{"mean acceleration", stats.MeanAcceleration, amplitude / 2},
		{"min acceleration", stats.MinAcceleration, 0},
		{"max acceleration", stats.MaxAcceleration, amplitude},
		{"pitch amplitude", stats.PitchAmplitude, 10},
		{"mean pitch", stats.MeanPitch, 10},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.expected) > 1e-9 {
			t.Errorf("%s: expected %.6f, got %.6f", c.name, c.expected, c.got)
		}
	}
}

func TestUsefulForce(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Sample
		expected float64
		nan      bool
	}{
		{
			name: "forward share",
			samples: []Sample{
				{AX: 1, AY: 1, AZ: 2},
				{AX: 3, AY: 0, AZ: 1},
			},
			expected: (0.25 + 0.75) / 2,
		},
		{
			name: "zero magnitude everywhere",
			samples: []Sample{
				{AX: 1, AY: -0.5, AZ: -0.5},
				{AX: 0, AY: 0, AZ: 0},
			},
			nan: true,
		},
		{
			name: "zero magnitude samples are left out",
			samples: []Sample{
				{AX: 2, AY: -1, AZ: -1},
				{AX: 1, AY: 1, AZ: 0},
			},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usefulForce(tt.samples)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Fatalf("expected NaN, got %f", got)
				}
				return
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestComputePhaseStatsEmptyAndSingle(t *testing.T) {
	empty := ComputePhaseStats(nil)
	if empty.SpeedVariation != 0 {
		t.Errorf("empty phase speed variation should be 0, got %f", empty.SpeedVariation)
	}
	for name, v := range map[string]float64{
		"pitch amplitude":   empty.PitchAmplitude,
		"mean acceleration": empty.MeanAcceleration,
		"min acceleration":  empty.MinAcceleration,
		"max acceleration":  empty.MaxAcceleration,
		"mean pitch":        empty.MeanPitch,
		"useful force":      empty.UsefulForce,
	} {
		if !math.IsNaN(v) {
			t.Errorf("empty phase %s should be NaN, got %f", name, v)
		}
	}

	single := ComputePhaseStats([]Sample{{Time: 1, AX: 2, AY: 1, AZ: 1, Pitch: 4}})
	if single.SpeedVariation != 0 || single.PitchAmplitude != 0 || single.MeanAcceleration != 2 {
		t.Errorf("unexpected single sample stats %+v", single)
	}
}

func testCycle() StrokeCycle {
	samples := fromAX(-2, 1, 3, 1, -1, -2, -1.5, -3, -1, -0.5)
	return StrokeCycle{
		Stroke: Stroke{Index: 0, Samples: samples},
		Entry:  Event{Index: 0, Sample: samples[0]},
		Peak:   Event{Index: 2, Sample: samples[2]},
		Exit:   Event{Index: 4, Sample: samples[4]},
		Air:    Event{Index: 5, Sample: samples[5]},
	}
}

func TestPhaseSamples(t *testing.T) {
	c := testCycle()

	tests := []struct {
		phase Phase
		first int
		last  int
	}{
		{PhaseEntry, 0, 2},
		{PhasePull, 2, 4},
		{PhaseExit, 4, 5},
		{PhaseAir, 5, 9},
		{PhaseWater, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			got := PhaseSamples(c, tt.phase)
			if want := tt.last - tt.first + 1; len(got) != want {
				t.Fatalf("expected %d samples, got %d", want, len(got))
			}
			if got[0].Time != c.Stroke.Samples[tt.first].Time || got[len(got)-1].Time != c.Stroke.Samples[tt.last].Time {
				t.Errorf("phase spans [%.2f, %.2f], expected [%.2f, %.2f]",
					got[0].Time, got[len(got)-1].Time,
					c.Stroke.Samples[tt.first].Time, c.Stroke.Samples[tt.last].Time)
			}
		})
	}
}

func TestComputeIndicators(t *testing.T) {
	c := testCycle()
	row := ComputeIndicators(c)

	const eps = 1e-9
	if math.Abs(row.StrokeTime-0.18) > eps {
		t.Errorf("stroke time: expected 0.18, got %f", row.StrokeTime)
	}
	if math.Abs(row.StrokeRate-60/0.18) > 1e-6 {
		t.Errorf("stroke rate: expected %f, got %f", 60/0.18, row.StrokeRate)
	}
	if math.Abs(row.WaterTime-0.10) > eps {
		t.Errorf("water time: expected 0.10, got %f", row.WaterTime)
	}
	if math.Abs(row.AirTime-0.08) > eps {
		t.Errorf("air time: expected 0.08, got %f", row.AirTime)
	}
	if row.Phase(PhasePull).MaxAcceleration != 3 || row.Phase(PhasePull).MinAcceleration != -1 {
		t.Errorf("unexpected pull phase stats %+v", row.Phase(PhasePull))
	}
	if row.Phase(PhaseAir).MinAcceleration != -3 {
		t.Errorf("air phase min acceleration: expected -3, got %f", row.Phase(PhaseAir).MinAcceleration)
	}
}

func TestComputeIndicatorsZeroLengthStroke(t *testing.T) {
	s := fromAX(2)
	c := StrokeCycle{
		Stroke: Stroke{Samples: s},
		Entry:  Event{Sample: s[0]},
		Peak:   Event{Sample: s[0]},
		Exit:   Event{Sample: s[0]},
		Air:    Event{Sample: s[0]},
	}

	row := ComputeIndicators(c)
	if row.StrokeTime != 0 {
		t.Errorf("expected zero stroke time, got %f", row.StrokeTime)
	}
	if !math.IsInf(row.StrokeRate, 1) {
		t.Errorf("expected +Inf stroke rate, got %f", row.StrokeRate)
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	if len(cols) != 39 {
		t.Fatalf("expected 39 columns, got %d", len(cols))
	}
	if cols[0] != "Speed Variation - Entry Fase" {
		t.Errorf("unexpected first column %q", cols[0])
	}
	if cols[34] != "Useful Force - Water Fase" {
		t.Errorf("unexpected last phase column %q", cols[34])
	}
	if cols[38] != "Stroke Time" {
		t.Errorf("unexpected last column %q", cols[38])
	}

	row := ComputeIndicators(testCycle())
	if got := len(row.Values()); got != len(cols) {
		t.Errorf("row has %d values for %d columns", got, len(cols))
	}

	rebuilt := RowFromMap(row.Stroke, row.StartTime, row.Map())
	for i, v := range rebuilt.Values() {
		if math.Float64bits(v) != math.Float64bits(row.Values()[i]) {
			t.Errorf("column %q: expected %v, got %v", cols[i], row.Values()[i], v)
		}
	}
}
