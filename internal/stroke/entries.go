package stroke

import "sort"

// localMinima returns the indices of negative samples strictly smaller than
// both neighbours. A flat bottom never qualifies, nor do the first and last
// samples.
func localMinima(samples []Sample) []int {
	var minima []int
	for i := 1; i < len(samples)-1; i++ {
		ax := samples[i].AX
		if ax < 0 && samples[i-1].AX > ax && samples[i+1].AX > ax {
			minima = append(minima, i)
		}
	}
	return minima
}

// LocateEntries finds the entry point of every peak: the latest negative
// local minimum strictly before the peak. When a peak has no such minimum
// the peak itself is used as its entry and counted in fallbacks.
//
// The result always has one entry per peak, in peak order.
func LocateEntries(samples []Sample, peaks []Event) (entries []Event, fallbacks int) {
	minima := localMinima(samples)

	entries = make([]Event, 0, len(peaks))
	for _, peak := range peaks {
		// first minimum at or after the peak time; the one before it is the latest earlier one
		pos := sort.Search(len(minima), func(i int) bool {
			return samples[minima[i]].Time >= peak.Time()
		})
		if pos == 0 {
			entries = append(entries, peak)
			fallbacks++
			continue
		}
		idx := minima[pos-1]
		entries = append(entries, Event{Index: idx, Sample: samples[idx]})
	}
	return entries, fallbacks
}
