package stroke

import "sort"

// FindPeaks returns the local maxima of AX that clear minHeight and are at
// least minDistance samples apart, ordered by index.
//
// This follows scipy.signal.find_peaks with the height and distance
// arguments: candidates are local maxima, the height filter runs first, then
// candidates are visited from tallest to shortest and every remaining
// candidate closer than minDistance to a kept peak is discarded.
//
// A flat top counts as one peak at its middle sample. This is deliberate and
// matches find_peaks; it differs from the strict rule used for minima, where
// a flat bottom is never a candidate.
func FindPeaks(samples []Sample, minDistance int, minHeight float64) []Event {
	n := len(samples)
	if n < 3 {
		return nil
	}

	candidates := localMaxima(samples, minHeight)
	if len(candidates) == 0 {
		return nil
	}

	keep := suppressByDistance(samples, candidates, minDistance)

	peaks := make([]Event, 0, len(candidates))
	for i, idx := range candidates {
		if keep[i] {
			peaks = append(peaks, Event{Index: idx, Sample: samples[idx]})
		}
	}
	return peaks
}

// localMaxima returns the indices of samples larger than both neighbours.
// A flat top bounded by lower samples yields its middle index, rounded down.
func localMaxima(samples []Sample, minHeight float64) []int {
	var maxima []int
	n := len(samples)
	for i := 1; i < n-1; {
		ax := samples[i].AX
		if samples[i-1].AX >= ax {
			i++
			continue
		}
		ahead := i + 1
		for ahead < n-1 && samples[ahead].AX == ax {
			ahead++
		}
		if samples[ahead].AX < ax && ax >= minHeight {
			maxima = append(maxima, (i+ahead-1)/2)
		}
		i = ahead
	}
	return maxima
}

// suppressByDistance marks which of the (index ordered) candidates survive
// non-maximum suppression over a minDistance neighbourhood.
func suppressByDistance(samples []Sample, candidates []int, minDistance int) []bool {
	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}
	if minDistance <= 1 {
		return keep
	}

	// Ascending by height; stable so that equal heights keep index order and
	// the later candidate is visited first, as scipy does.
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return samples[candidates[order[a]]].AX < samples[candidates[order[b]]].AX
	})

	for o := len(order) - 1; o >= 0; o-- {
		j := order[o]
		if !keep[j] {
			continue
		}

		for k := j - 1; k >= 0 && candidates[j]-candidates[k] < minDistance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(candidates) && candidates[k]-candidates[j] < minDistance; k++ {
			keep[k] = false
		}
	}
	return keep
}
