package stroke

import (
	"math"
	"testing"
)

func TestMedFilt(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		kernel   int
		expected []float64
	}{
		{
			name:     "kernel of one is identity",
			data:     []float64{3, 1, 2},
			kernel:   1,
			expected: []float64{3, 1, 2},
		},
		{
			name:     "single spike removed",
			data:     []float64{1, 1, 9, 1, 1},
			kernel:   3,
			expected: []float64{1, 1, 1, 1, 1},
		},
		{
			name:   "edges padded with zeros",
			data:   []float64{5, 5, 5, 5},
			kernel: 3,
			// first and last windows are [0 5 5] and [5 5 0]
			expected: []float64{5, 5, 5, 5},
		},
		{
			name:     "zero padding flattens the end of a ramp",
			data:     []float64{1, 2, 3, 4, 5},
			kernel:   5,
			expected: []float64{1, 2, 3, 3, 3},
		},
		{
			name:     "monotonic ramp preserved",
			data:     []float64{1, 2, 3, 4, 5, 6},
			kernel:   3,
			expected: []float64{1, 2, 3, 4, 5, 5},
		},
		{
			name:     "empty",
			data:     nil,
			kernel:   3,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MedFilt(tt.data, tt.kernel)

			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d results, got %d", len(tt.expected), len(result))
			}
			for i, val := range result {
				if math.Abs(val-tt.expected[i]) > 1e-12 {
					t.Errorf("point %d: expected %.2f, got %.2f", i, tt.expected[i], val)
				}
			}
		})
	}
}

func TestMedFiltRejectsEvenKernel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an even kernel")
		}
	}()
	MedFilt([]float64{1, 2, 3}, 2)
}

func TestSmoothAXLeavesOtherChannels(t *testing.T) {
	samples := fromAX(1, 1, 9, 1, 1)
	samples[2].Pitch = 7

	smoothed := smoothAX(samples, 3)
	if smoothed[2].AX != 1 {
		t.Errorf("expected the spike to be filtered, got %.2f", smoothed[2].AX)
	}
	if smoothed[2].Pitch != 7 || smoothed[2].Time != samples[2].Time {
		t.Errorf("only AX should change, got %+v", smoothed[2])
	}
	if samples[2].AX != 9 {
		t.Error("smoothAX must not modify its input")
	}
}
