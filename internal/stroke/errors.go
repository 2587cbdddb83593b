package stroke

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySignal is returned when there are no samples to analyze.
	ErrEmptySignal = errors.New("empty signal")

	// ErrUnsortedSignal is returned when samples are not ordered by time.
	ErrUnsortedSignal = errors.New("samples are not sorted by time")

	// ErrEmptyStroke is returned by the exit locator for a stroke with no samples.
	ErrEmptyStroke = errors.New("stroke has no samples")

	// ErrNoSignChange is returned when AX never changes sign after the stroke maximum.
	ErrNoSignChange = errors.New("no sign change after stroke maximum")
)

// StrokeFailure records a stroke whose exit/air points could not be located.
type StrokeFailure struct {
	Stroke    int     `json:"stroke"`
	StartTime float64 `json:"start_time"`
	Err       error   `json:"-"`
	Reason    string  `json:"reason"`
}

func (f StrokeFailure) Error() string {
	return fmt.Sprintf("stroke %d (t=%.3fs): %v", f.Stroke, f.StartTime, f.Err)
}

func (f StrokeFailure) Unwrap() error {
	return f.Err
}
