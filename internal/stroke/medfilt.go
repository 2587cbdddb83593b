package stroke

import "sort"

// MedFilt applies a median filter with zero padding at both ends
// (scipy.signal.medfilt compatible). kernelSize must be a positive odd
// integer; a kernel of 1 returns a copy of data.
func MedFilt(data []float64, kernelSize int) []float64 {
	if kernelSize < 1 || kernelSize%2 == 0 {
		panic("kernelSize must be positive odd integer")
	}
	n := len(data)
	if n == 0 {
		return nil
	}

	half := kernelSize / 2
	result := make([]float64, n)
	window := make([]float64, kernelSize)

	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 || idx >= n {
				window[j+half] = 0.0
			} else {
				window[j+half] = data[idx]
			}
		}
		sort.Float64s(window)
		result[i] = window[half]
	}
	return result
}

// smoothAX returns a copy of samples with AX median filtered.
func smoothAX(samples []Sample, kernelSize int) []Sample {
	ax := make([]float64, len(samples))
	for i, s := range samples {
		ax[i] = s.AX
	}
	filtered := MedFilt(ax, kernelSize)

	out := make([]Sample, len(samples))
	copy(out, samples)
	for i := range out {
		out[i].AX = filtered[i]
	}
	return out
}
