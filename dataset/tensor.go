package dataset

import "fmt"

// Tensor is a row-major [speakers, frames, dim] array.
type Tensor struct {
	Key   string
	Shape [3]int
	Data  []float64
	// Meetings lists the meeting of every speaker slot.
	Meetings []string
}

// NewTensor allocates a zeroed tensor.
func NewTensor(key string, speakers, frames, dim int) Tensor {
	return Tensor{
		Key:      key,
		Shape:    [3]int{speakers, frames, dim},
		Data:     make([]float64, speakers*frames*dim),
		Meetings: make([]string, speakers),
	}
}

// At returns element (s, t, d).
func (t Tensor) At(s, f, d int) float64 {
	return t.Data[t.offset(s, f, d)]
}

func (t Tensor) offset(s, f, d int) int {
	if s < 0 || s >= t.Shape[0] || f < 0 || f >= t.Shape[1] || d < 0 || d >= t.Shape[2] {
		panic(fmt.Sprintf("dataset: index (%d, %d, %d) out of range %v", s, f, d, t.Shape))
	}
	return (s*t.Shape[1]+f)*t.Shape[2] + d
}
