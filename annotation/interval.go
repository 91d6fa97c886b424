package annotation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInverted reports an interval whose start lies after its end.
var ErrInverted = errors.New("start is after end")

// Interval is one contiguous stretch of speech in milliseconds from the
// start of the meeting.
type Interval struct {
	StartMs float64 `json:"start"`
	EndMs   float64 `json:"end"`
}

// DurationMs returns EndMs - StartMs.
func (iv Interval) DurationMs() float64 {
	return iv.EndMs - iv.StartMs
}

// Validate checks 0 <= StartMs <= EndMs with finite bounds.
func (iv Interval) Validate() error {
	switch {
	case !finite(iv.StartMs) || !finite(iv.EndMs):
		return fmt.Errorf("bounds must be finite, got [%v, %v]", iv.StartMs, iv.EndMs)
	case iv.StartMs < 0:
		return fmt.Errorf("start %v is negative", iv.StartMs)
	case iv.StartMs > iv.EndMs:
		return fmt.Errorf("%w: start %v, end %v", ErrInverted, iv.StartMs, iv.EndMs)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
