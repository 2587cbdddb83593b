// Package stroke segments a swim accelerometer recording into stroke cycles
// and computes per-phase indicators for each cycle.
//
// The pipeline runs in order: peaks, entries, stroke windows, exit and air
// points per stroke, alignment into StrokeCycles, and finally one
// IndicatorRow per cycle.
package stroke

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// FailurePolicy decides what happens to a stroke whose exit cannot be found.
type FailurePolicy string

const (
	// PolicySkip drops the stroke from the output and carries on.
	PolicySkip FailurePolicy = "skip"

	// PolicyAbort fails the whole analysis.
	PolicyAbort FailurePolicy = "abort"
)

// Params tunes the segmentation.
type Params struct {
	// MinPeakDistance is the minimum number of samples between two peaks.
	MinPeakDistance int `json:"min_peak_distance"`

	// MinPeakHeight is the smallest AX a peak may have (m/s²).
	MinPeakHeight float64 `json:"min_peak_height"`

	// AirFallbackOffset is the sample offset after the exit used as the air
	// point when no inflection is found.
	AirFallbackOffset int `json:"air_fallback_offset"`

	FailurePolicy FailurePolicy `json:"failure_policy"`

	// SmoothingKernel is the median filter size applied to AX for peak and
	// entry detection only. Strokes and indicators always use the recorded
	// AX. 0 disables smoothing; otherwise it must be odd.
	SmoothingKernel int `json:"smoothing_kernel"`

	// Workers is the number of goroutines computing indicators.
	Workers int `json:"workers"`
}

// DefaultParams returns the parameters used for 50 Hz wrist recordings.
func DefaultParams() Params {
	return Params{
		MinPeakDistance:   60, // 1.2s at 50 Hz
		MinPeakHeight:     0,
		AirFallbackOffset: DefaultAirFallbackOffset,
		FailurePolicy:     PolicySkip,
		SmoothingKernel:   0,
		Workers:           1,
	}
}

// Validate checks the parameters for values the pipeline cannot run with.
func (p Params) Validate() error {
	if p.MinPeakDistance < 1 {
		return fmt.Errorf("min_peak_distance must be at least 1, got %d", p.MinPeakDistance)
	}
	if p.AirFallbackOffset < 0 {
		return fmt.Errorf("air_fallback_offset must be non-negative, got %d", p.AirFallbackOffset)
	}
	if p.SmoothingKernel < 0 || (p.SmoothingKernel > 0 && p.SmoothingKernel%2 == 0) {
		return fmt.Errorf("smoothing_kernel must be 0 or a positive odd number, got %d", p.SmoothingKernel)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	switch p.FailurePolicy {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("unknown failure_policy %q", p.FailurePolicy)
	}
	return nil
}

// Diagnostics counts every heuristic fallback and drop taken during a run
// so data quality can be audited.
type Diagnostics struct {
	Samples            int `json:"samples"`
	Peaks              int `json:"peaks"`
	Strokes            int `json:"strokes"`
	Cycles             int `json:"cycles"`
	NoPrecedingMinimum int `json:"no_preceding_minimum"`
	NoInflectionFound  int `json:"no_inflection_found"`
	NoSignChangeFound  int `json:"no_sign_change_found"`
	EmptyStrokes       int `json:"empty_strokes"`
	LeadingDrops       int `json:"leading_drops"`
	TrailingDrops      int `json:"trailing_drops"`
}

// Result is everything derived from one recording.
type Result struct {
	Peaks       []Event
	Entries     []Event
	Strokes     []Stroke
	Cycles      []StrokeCycle
	Rows        []IndicatorRow
	Failures    []StrokeFailure
	Diagnostics Diagnostics
}

// Analyzer runs the segmentation pipeline with a fixed set of parameters.
type Analyzer struct {
	params Params
	logger *zap.SugaredLogger
}

// NewAnalyzer creates an Analyzer. A nil logger discards output.
func NewAnalyzer(params Params, logger *zap.SugaredLogger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyzer{params: params, logger: logger}
}

// Params returns the analyzer's parameters.
func (a *Analyzer) Params() Params {
	return a.params
}

// Analyze segments samples into stroke cycles and computes their indicators.
//
// Too few samples or no qualifying peak give an empty result, not an error.
// Only an empty or unsorted signal, invalid parameters, or a stroke failure
// under PolicyAbort abort the run.
func (a *Analyzer) Analyze(ctx context.Context, samples []Sample) (*Result, error) {
	if err := a.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	if !isSorted(samples) {
		return nil, ErrUnsortedSignal
	}

	res := &Result{}
	res.Diagnostics.Samples = len(samples)

	signal := samples
	if a.params.SmoothingKernel > 1 {
		signal = smoothAX(samples, a.params.SmoothingKernel)
	}

	res.Peaks = FindPeaks(signal, a.params.MinPeakDistance, a.params.MinPeakHeight)
	res.Diagnostics.Peaks = len(res.Peaks)
	if len(res.Peaks) == 0 {
		a.logger.Infof("no peaks above %.2f m/s² in %d samples", a.params.MinPeakHeight, len(samples))
		return res, nil
	}

	var fallbacks int
	res.Entries, fallbacks = LocateEntries(signal, res.Peaks)
	res.Diagnostics.NoPrecedingMinimum = fallbacks
	if fallbacks > 0 {
		a.logger.Debugf("%d peak(s) had no preceding minimum; using the peak as entry", fallbacks)
	}

	if a.params.SmoothingKernel > 1 {
		res.Peaks = rawEvents(samples, res.Peaks)
		res.Entries = rawEvents(samples, res.Entries)
	}

	// the filtered signal only places events; statistics come from the recording
	res.Strokes = Partition(samples, res.Entries)
	res.Diagnostics.Strokes = len(res.Strokes)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locs := LocateAll(res.Strokes, a.params.AirFallbackOffset)
	alignment := Align(res.Entries, res.Peaks, res.Strokes, locs)
	res.Diagnostics.LeadingDrops = alignment.LeadingDrops
	res.Diagnostics.TrailingDrops = alignment.TrailingDrops

	for _, f := range alignment.Failures {
		switch {
		case errors.Is(f.Err, ErrNoSignChange):
			res.Diagnostics.NoSignChangeFound++
		case errors.Is(f.Err, ErrEmptyStroke):
			res.Diagnostics.EmptyStrokes++
		}
		a.logger.Warnw("exit point not located", "stroke", f.Stroke, "start_time", f.StartTime, "error", f.Err)
	}
	if len(alignment.Failures) > 0 && a.params.FailurePolicy == PolicyAbort {
		return nil, fmt.Errorf("stroke segmentation aborted: %w", alignment.Failures[0])
	}
	res.Failures = alignment.Failures

	res.Cycles = alignment.Cycles
	res.Diagnostics.Cycles = len(res.Cycles)
	for _, c := range res.Cycles {
		if c.AirFallback {
			res.Diagnostics.NoInflectionFound++
			a.logger.Debugf("stroke %d: no inflection after exit, air point placed %d samples after exit",
				c.Stroke.Index, a.params.AirFallbackOffset)
		}
	}

	rows, err := a.computeRows(ctx, res.Cycles)
	if err != nil {
		return nil, err
	}
	res.Rows = rows

	a.logger.Infow("segmentation complete",
		"samples", res.Diagnostics.Samples,
		"peaks", res.Diagnostics.Peaks,
		"cycles", res.Diagnostics.Cycles,
		"failures", len(res.Failures))

	return res, nil
}

// computeRows computes one IndicatorRow per cycle. Cycles are independent,
// so they are spread over the configured number of workers; each worker
// writes only its own slots.
func (a *Analyzer) computeRows(ctx context.Context, cycles []StrokeCycle) ([]IndicatorRow, error) {
	rows := make([]IndicatorRow, len(cycles))
	workers := min(a.params.Workers, len(cycles))
	if workers <= 1 {
		for i, c := range cycles {
			rows[i] = ComputeIndicators(c)
		}
		return rows, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i] = ComputeIndicators(cycles[i])
			}
		}()
	}

	var err error
feed:
	for i := range cycles {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return rows, nil
}

// rawEvents rebinds events found on a filtered copy to the recorded samples
// at the same indices.
func rawEvents(samples []Sample, events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = Event{Index: e.Index, Sample: samples[e.Index]}
	}
	return out
}
