package stroke

import "math"

// Partition splits the signal into stroke windows bounded by entries.
//
// The first window holds everything before the first entry and is dropped
// when empty. Every later window spans [entries[i-1], entries[i]] inclusive,
// so neighbouring strokes share their boundary sample. Windows can be empty
// when fallback entries are out of order; they are kept so the caller can
// report them.
func Partition(samples []Sample, entries []Event) []Stroke {
	if len(entries) == 0 {
		return nil
	}

	strokes := make([]Stroke, 0, len(entries))

	lead := before(samples, entries[0].Time())
	if len(lead) > 0 {
		strokes = append(strokes, newStroke(0, lead))
	}

	for i := 1; i < len(entries); i++ {
		from, to := entries[i-1].Time(), entries[i].Time()
		strokes = append(strokes, newStroke(len(strokes), window(samples, from, to)))
	}
	return strokes
}

func newStroke(index int, samples []Sample) Stroke {
	owned := make([]Sample, len(samples))
	copy(owned, samples)
	return Stroke{Index: index, Samples: owned}
}

// leadingStroke reports whether s starts before the reference time.
// Empty strokes have no start and never count as leading.
func leadingStroke(s Stroke, ref float64) bool {
	start := s.StartTime()
	return !math.IsNaN(start) && start < ref
}
