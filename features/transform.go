package features

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrTooShort is returned by a Transform when the input does not fill a
// single analysis window.
var ErrTooShort = errors.New("features: signal shorter than one analysis window")

// Transform computes a feature matrix from mono samples in [-1, 1].
type Transform interface {
	// Name identifies the transform in logs and markers.
	Name() string
	// Dim is the column count of every matrix the transform returns.
	Dim() int
	// Apply returns a frames x Dim() matrix. Implementations are pure.
	Apply(samples []float64, sampleRate int) (*mat.Dense, error)
}
