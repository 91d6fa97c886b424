package features

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

const logFloor = 1e-10

// LogMelConfig parameterises LogMel.
type LogMelConfig struct {
	WindowMs    float64 `yaml:"window_ms" mapstructure:"window_ms" validate:"gt=0"`
	HopMs       float64 `yaml:"hop_ms" mapstructure:"hop_ms" validate:"gt=0"`
	MelBins     int     `yaml:"mel_bins" mapstructure:"mel_bins" validate:"gt=0"`
	PreEmphasis float64 `yaml:"pre_emphasis" mapstructure:"pre_emphasis" validate:"gte=0,lt=1"`
}

// ApplyDefaults fills unset fields with the values used for the AMI corpus.
func (c *LogMelConfig) ApplyDefaults() {
	if c.WindowMs == 0 {
		c.WindowMs = 25
	}
	if c.HopMs == 0 {
		c.HopMs = 10
	}
	if c.MelBins == 0 {
		c.MelBins = 40
	}
	if c.PreEmphasis == 0 {
		c.PreEmphasis = 0.97
	}
}

// LogMel is a log mel filter bank.
type LogMel struct {
	cfg LogMelConfig
}

var _ Transform = (*LogMel)(nil)

// NewLogMel creates a LogMel transform. Zero fields take their defaults.
func NewLogMel(cfg LogMelConfig) *LogMel {
	cfg.ApplyDefaults()
	return &LogMel{cfg: cfg}
}

func (l *LogMel) Name() string { return "logmel" }

func (l *LogMel) Dim() int { return l.cfg.MelBins }

// FrameCount returns the number of frames the default LogMel produces for
// n samples at sampleRate.
func FrameCount(n, sampleRate int) int {
	return NewLogMel(LogMelConfig{}).FrameCount(n, sampleRate)
}

// FrameCount returns the number of frames Apply produces for n samples.
func (l *LogMel) FrameCount(n, sampleRate int) int {
	win, hop := l.frameSizes(sampleRate)
	if win <= 0 || hop <= 0 || n < win {
		return 0
	}
	return 1 + (n-win)/hop
}

func (l *LogMel) frameSizes(sampleRate int) (win, hop int) {
	win = int(math.Round(l.cfg.WindowMs * float64(sampleRate) / 1000))
	hop = int(math.Round(l.cfg.HopMs * float64(sampleRate) / 1000))
	return win, hop
}

// Apply computes the log mel energies of every frame.
func (l *LogMel) Apply(samples []float64, sampleRate int) (*mat.Dense, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("features: invalid sample rate %d", sampleRate)
	}
	frames := l.FrameCount(len(samples), sampleRate)
	if frames == 0 {
		return nil, ErrTooShort
	}
	win, hop := l.frameSizes(sampleRate)
	nfft := nextPow2(win)
	window := hamming(win)
	bank := melFilterBank(l.cfg.MelBins, nfft, sampleRate)
	emphasized := preEmphasis(samples, l.cfg.PreEmphasis)

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	power := make([]float64, nfft/2+1)
	var coeffs []complex128
	out := mat.NewDense(frames, l.cfg.MelBins, nil)

	for f := 0; f < frames; f++ {
		start := f * hop
		for i := 0; i < win; i++ {
			frame[i] = emphasized[start+i] * window[i]
		}
		for i := win; i < nfft; i++ {
			frame[i] = 0
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] = a * a / float64(nfft)
		}
		for b, filter := range bank {
			var e float64
			for k, w := range filter {
				e += w * power[k]
			}
			out.Set(f, b, math.Log(math.Max(e, logFloor)))
		}
	}
	return out, nil
}

func preEmphasis(x []float64, coef float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	y[0] = x[0]
	for i := 1; i < len(x); i++ {
		y[i] = x[i] - coef*x[i-1]
	}
	return y
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func hzToMel(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }

func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melFilterBank returns bins triangular filters over the nfft/2+1 power
// spectrum bins, spaced evenly on the HTK mel scale from 0 Hz to Nyquist.
func melFilterBank(bins, nfft, sampleRate int) [][]float64 {
	lo, hi := hzToMel(0), hzToMel(float64(sampleRate)/2)
	points := make([]int, bins+2)
	for i := range points {
		mel := lo + (hi-lo)*float64(i)/float64(bins+1)
		points[i] = int(math.Floor(float64(nfft+1) * melToHz(mel) / float64(sampleRate)))
	}

	bank := make([][]float64, bins)
	for m := 1; m <= bins; m++ {
		filter := make([]float64, nfft/2+1)
		left, center, right := points[m-1], points[m], points[m+1]
		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k < right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m-1] = filter
	}
	return bank
}
