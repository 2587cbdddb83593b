package stroke

// Alignment is the outcome of reconciling the event series with the strokes.
type Alignment struct {
	Cycles   []StrokeCycle
	Failures []StrokeFailure

	// LeadingDrops counts peaks and strokes removed because they began
	// before the first entry.
	LeadingDrops int

	// TrailingDrops counts surplus events at the end with no matching stroke.
	TrailingDrops int
}

// Align pairs every stroke with its own entry, peak, exit and air point.
//
// The first entry is the reference: a first peak or first stroke that starts
// before it belongs to the partial motion preceding the first full cycle and
// is dropped. Exit and air points were located per stroke, so they leave
// together with their stroke. Once the leading artifacts are gone, index i
// of every series refers to the same cycle and the series are cut to the
// shortest length. Strokes whose locator failed become failures instead of
// cycles; their slot is still consumed so later cycles stay aligned.
func Align(entries, peaks []Event, strokes []Stroke, locs []Location) Alignment {
	var a Alignment
	if len(entries) == 0 || len(strokes) == 0 {
		return a
	}
	ref := entries[0].Time()

	if len(peaks) > 0 && peaks[0].Time() < ref {
		peaks = peaks[1:]
		a.LeadingDrops++
	}
	if leadingStroke(strokes[0], ref) {
		strokes = strokes[1:]
		locs = locs[1:]
		a.LeadingDrops++
	}

	n := min(len(entries), len(peaks), len(strokes))
	a.TrailingDrops = max(len(entries), len(peaks), len(strokes)) - n

	for i := 0; i < n; i++ {
		loc := locs[i]
		if loc.Err != nil {
			a.Failures = append(a.Failures, StrokeFailure{
				Stroke:    i,
				StartTime: strokes[i].StartTime(),
				Err:       loc.Err,
				Reason:    loc.Err.Error(),
			})
			continue
		}
		a.Cycles = append(a.Cycles, StrokeCycle{
			Stroke: Stroke{Index: i, Samples: strokes[i].Samples},
			Entry:  entries[i],
			Peak:   peaks[i],
			Exit:   loc.Exit,
			Air:    loc.Air,

			AirFallback: loc.AirFallback,
		})
	}
	return a
}
