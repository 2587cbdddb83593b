package stroke

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// PhaseStats holds the per-phase statistics of one stroke.
type PhaseStats struct {
	SpeedVariation   float64 `json:"speed_variation" msgpack:"speed_variation"`
	PitchAmplitude   float64 `json:"pitch_amplitude" msgpack:"pitch_amplitude"`
	MeanAcceleration float64 `json:"mean_acceleration" msgpack:"mean_acceleration"`
	MinAcceleration  float64 `json:"min_acceleration" msgpack:"min_acceleration"`
	MaxAcceleration  float64 `json:"max_acceleration" msgpack:"max_acceleration"`
	MeanPitch        float64 `json:"mean_pitch" msgpack:"mean_pitch"`
	UsefulForce      float64 `json:"useful_force" msgpack:"useful_force"`
}

// metricNames is the column order of PhaseStats.
var metricNames = []string{
	"Speed Variation",
	"Pitch Amplitude",
	"Mean Acceleration",
	"Min Acceleration",
	"Max Acceleration",
	"Mean Pitch",
	"Useful Force",
}

func (p PhaseStats) values() []float64 {
	return []float64{
		p.SpeedVariation,
		p.PitchAmplitude,
		p.MeanAcceleration,
		p.MinAcceleration,
		p.MaxAcceleration,
		p.MeanPitch,
		p.UsefulForce,
	}
}

// IndicatorRow is the indicator table row of one stroke cycle.
type IndicatorRow struct {
	Stroke     int                    `json:"stroke" msgpack:"stroke"`
	StartTime  float64                `json:"start_time" msgpack:"start_time"`
	Phases     [phaseCount]PhaseStats `json:"phases" msgpack:"phases"`
	WaterTime  float64                `json:"water_time" msgpack:"water_time"`
	AirTime    float64                `json:"air_time" msgpack:"air_time"`
	StrokeRate float64                `json:"stroke_rate" msgpack:"stroke_rate"`
	StrokeTime float64                `json:"stroke_time" msgpack:"stroke_time"`
}

// Phase returns the statistics of a single phase.
func (r IndicatorRow) Phase(p Phase) PhaseStats {
	return r.Phases[p]
}

var columns = buildColumns()

func buildColumns() []string {
	cols := make([]string, 0, len(Phases)*len(metricNames)+4)
	for _, p := range Phases {
		for _, m := range metricNames {
			cols = append(cols, fmt.Sprintf("%s - %s", m, p))
		}
	}
	return append(cols, "Water Time", "Air Time", "Stroke Rate", "Stroke Time")
}

// Columns returns the indicator column names in table order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Values returns the row's values in the order of Columns.
func (r IndicatorRow) Values() []float64 {
	vals := make([]float64, 0, len(columns))
	for _, p := range Phases {
		vals = append(vals, r.Phases[p].values()...)
	}
	return append(vals, r.WaterTime, r.AirTime, r.StrokeRate, r.StrokeTime)
}

// Map returns the row keyed by column name.
func (r IndicatorRow) Map() map[string]float64 {
	vals := r.Values()
	m := make(map[string]float64, len(vals))
	for i, c := range columns {
		m[c] = vals[i]
	}
	return m
}

// RowFromMap rebuilds a row from its column map. Missing columns are NaN.
func RowFromMap(stroke int, startTime float64, m map[string]float64) IndicatorRow {
	get := func(col string) float64 {
		if v, ok := m[col]; ok {
			return v
		}
		return math.NaN()
	}

	r := IndicatorRow{Stroke: stroke, StartTime: startTime}
	for _, p := range Phases {
		name := func(metric string) string { return fmt.Sprintf("%s - %s", metric, p) }
		r.Phases[p] = PhaseStats{
			SpeedVariation:   get(name("Speed Variation")),
			PitchAmplitude:   get(name("Pitch Amplitude")),
			MeanAcceleration: get(name("Mean Acceleration")),
			MinAcceleration:  get(name("Min Acceleration")),
			MaxAcceleration:  get(name("Max Acceleration")),
			MeanPitch:        get(name("Mean Pitch")),
			UsefulForce:      get(name("Useful Force")),
		}
	}
	r.WaterTime = get("Water Time")
	r.AirTime = get("Air Time")
	r.StrokeRate = get("Stroke Rate")
	r.StrokeTime = get("Stroke Time")
	return r
}

// PhaseSamples returns the samples of one phase of a cycle. Bounds are
// inclusive, so adjacent phases share their boundary sample.
func PhaseSamples(c StrokeCycle, p Phase) []Sample {
	s := c.Stroke.Samples
	inf := math.Inf(1)
	switch p {
	case PhaseEntry:
		return window(s, -inf, c.Peak.Time())
	case PhasePull:
		return window(s, c.Peak.Time(), c.Exit.Time())
	case PhaseExit:
		return window(s, c.Exit.Time(), c.Air.Time())
	case PhaseAir:
		return window(s, c.Air.Time(), inf)
	case PhaseWater:
		return window(s, -inf, c.Air.Time())
	default:
		return nil
	}
}

// ComputeIndicators derives the indicator row of one aligned cycle.
func ComputeIndicators(c StrokeCycle) IndicatorRow {
	row := IndicatorRow{
		Stroke:    c.Stroke.Index,
		StartTime: c.Stroke.StartTime(),
	}
	for _, p := range Phases {
		row.Phases[p] = ComputePhaseStats(PhaseSamples(c, p))
	}

	start, end, air := c.Stroke.StartTime(), c.Stroke.EndTime(), c.Air.Time()
	row.WaterTime = air - start
	row.AirTime = end - air
	row.StrokeTime = end - start
	// +Inf for a zero-length stroke
	row.StrokeRate = 60.0 / row.StrokeTime
	return row
}

// ComputePhaseStats computes the statistics of a run of samples. An empty
// run yields NaN everywhere except SpeedVariation, which is 0.
func ComputePhaseStats(samples []Sample) PhaseStats {
	if len(samples) == 0 {
		nan := math.NaN()
		return PhaseStats{
			PitchAmplitude:   nan,
			MeanAcceleration: nan,
			MinAcceleration:  nan,
			MaxAcceleration:  nan,
			MeanPitch:        nan,
			UsefulForce:      nan,
		}
	}

	n := len(samples)
	t := make([]float64, n)
	ax := make([]float64, n)
	pitch := make([]float64, n)
	for i, s := range samples {
		t[i] = s.Time
		ax[i] = s.AX
		pitch[i] = s.Pitch
	}

	return PhaseStats{
		SpeedVariation:   trapezoid(t, ax),
		PitchAmplitude:   floats.Max(pitch) - floats.Min(pitch),
		MeanAcceleration: stat.Mean(ax, nil),
		MinAcceleration:  floats.Min(ax),
		MaxAcceleration:  floats.Max(ax),
		MeanPitch:        stat.Mean(pitch, nil),
		UsefulForce:      usefulForce(samples),
	}
}

// trapezoid integrates y over x. Fewer than two points integrate to 0.
func trapezoid(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, y)
}

// usefulForce is the mean share of AX in AX+AY+AZ. Samples whose sum is
// exactly zero are undefined and left out; if none remain the result is NaN.
func usefulForce(samples []Sample) float64 {
	ratios := make([]float64, 0, len(samples))
	for _, s := range samples {
		total := s.AX + s.AY + s.AZ
		if total == 0 {
			continue
		}
		ratios = append(ratios, s.AX/total)
	}
	if len(ratios) == 0 {
		return math.NaN()
	}
	return stat.Mean(ratios, nil)
}
