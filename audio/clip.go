package audio

import (
	"fmt"
	"math"
	"time"
)

// Format describes interleaved PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate checks that the format can describe audio.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	return nil
}

// Clip is a run of interleaved samples. Samples holds Frames()*Channels
// values in the integer range of BitDepth.
type Clip struct {
	Format  Format
	Samples []int
}

// Frames returns the number of sample frames.
func (c Clip) Frames() int {
	if c.Format.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Format.Channels
}

// Empty reports whether the clip has no frames.
func (c Clip) Empty() bool {
	return c.Frames() == 0
}

// Duration returns the playing time of the clip.
func (c Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.Format.SampleRate)
}

// DurationMs returns the playing time in milliseconds.
func (c Clip) DurationMs() float64 {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) * 1000 / float64(c.Format.SampleRate)
}

// FrameAt converts a millisecond offset to a frame index clamped to
// [0, Frames()].
func (c Clip) FrameAt(ms float64) int {
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}
	f := math.Floor(ms * float64(c.Format.SampleRate) / 1000)
	if n := c.Frames(); f >= float64(n) {
		return n
	}
	return int(f)
}

// Slice returns the frames in [startMs, endMs). Bounds past the end of the
// clip are clamped, so the result may be shorter than requested or empty.
// The returned clip shares its samples with c.
func (c Clip) Slice(startMs, endMs float64) Clip {
	from, to := c.FrameAt(startMs), c.FrameAt(endMs)
	if to < from {
		to = from
	}
	ch := c.Format.Channels
	return Clip{Format: c.Format, Samples: c.Samples[from*ch : to*ch : to*ch]}
}

// Compatible reports whether two clips can be concatenated.
func (c Clip) Compatible(other Clip) bool {
	return c.Format == other.Format
}

// Append concatenates other onto c. An empty c adopts the format of other.
func (c Clip) Append(other Clip) (Clip, error) {
	if c.Format == (Format{}) {
		c.Format = other.Format
	}
	if !c.Compatible(other) {
		return c, fmt.Errorf("cannot append %+v audio to %+v audio", other.Format, c.Format)
	}
	c.Samples = append(c.Samples, other.Samples...)
	return c, nil
}

// Mono averages the channels of every frame and scales the result to
// [-1, 1].
func (c Clip) Mono() []float64 {
	ch := c.Format.Channels
	n := c.Frames()
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	scale := 1 / (fullScale(c.Format.BitDepth) * float64(ch))
	for i := 0; i < n; i++ {
		var sum int
		for _, s := range c.Samples[i*ch : (i+1)*ch] {
			sum += s
		}
		out[i] = float64(sum) * scale
	}
	return out
}

func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << (bitDepth - 1))
}
