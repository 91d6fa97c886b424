package audio

import (
	"bytes"
	"math"
	"os"
	"reflect"
	"testing"
	"time"
)

// ramp returns a clip whose frame i holds i on every channel.
func ramp(rate, channels, frames int) Clip {
	samples := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = i % 30000
		}
	}
	return Clip{Format: Format{SampleRate: rate, Channels: channels, BitDepth: 16}, Samples: samples}
}

func TestClipDuration(t *testing.T) {
	c := ramp(16000, 2, 16000*10)
	if c.Frames() != 160000 {
		t.Errorf("Frames() = %d", c.Frames())
	}
	if c.Duration() != 10*time.Second {
		t.Errorf("Duration() = %v", c.Duration())
	}
	if c.DurationMs() != 10000 {
		t.Errorf("DurationMs() = %v", c.DurationMs())
	}
}

func TestClipSlice(t *testing.T) {
	c := ramp(1000, 1, 1000)
	tests := []struct {
		name       string
		start, end float64
		frames     int
		first      int
	}{
		{"inside", 100, 300, 200, 100},
		{"fractional floor", 100.9, 300.9, 200, 100},
		{"clamped end", 900, 5000, 100, 900},
		{"past end", 2000, 3000, 0, -1},
		{"zero width", 500, 500, 0, -1},
		{"reversed", 600, 500, 0, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := c.Slice(tc.start, tc.end)
			if s.Frames() != tc.frames {
				t.Fatalf("Frames() = %d, want %d", s.Frames(), tc.frames)
			}
			if tc.first >= 0 && s.Samples[0] != tc.first {
				t.Errorf("first sample = %d, want %d", s.Samples[0], tc.first)
			}
		})
	}
}

func TestSliceDoesNotAliasOnAppend(t *testing.T) {
	c := ramp(1000, 1, 100)
	head := c.Slice(0, 10)
	if _, err := head.Append(Clip{Format: c.Format, Samples: []int{-1}}); err != nil {
		t.Fatal(err)
	}
	if c.Samples[10] != 10 {
		t.Errorf("append through a slice overwrote the source: %d", c.Samples[10])
	}
}

func TestClipAppend(t *testing.T) {
	a := ramp(1000, 1, 10)
	b := ramp(1000, 1, 5)

	var stream Clip
	stream, err := stream.Append(a)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	stream, err = stream.Append(b)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if stream.Frames() != 15 {
		t.Errorf("Frames() = %d, want 15", stream.Frames())
	}

	other := ramp(8000, 1, 5)
	if _, err := stream.Append(other); err == nil {
		t.Error("expected error appending a different sample rate")
	}
}

func TestClipMono(t *testing.T) {
	c := Clip{
		Format:  Format{SampleRate: 8000, Channels: 2, BitDepth: 16},
		Samples: []int{16384, 16384, -32768, 0, 0, 0},
	}
	got := c.Mono()
	want := []float64{0.5, -0.5, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Mono() = %v, want %v", got, want)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Format
		wantErr bool
	}{
		{"ok", Format{16000, 1, 16}, false},
		{"no rate", Format{0, 1, 16}, true},
		{"no channels", Format{16000, 0, 16}, true},
		{"odd depth", Format{16000, 1, 12}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.f.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	c := ramp(16000, 4, 1600)
	for i := range c.Samples {
		c.Samples[i] = int(10000 * math.Sin(float64(i)/7))
	}

	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Fatalf("expected RIFF header, got %q", data[:4])
	}

	back, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes() error = %v", err)
	}
	if back.Format != c.Format {
		t.Errorf("format = %+v, want %+v", back.Format, c.Format)
	}
	if !reflect.DeepEqual(back.Samples, c.Samples) {
		t.Error("samples changed across encode/decode")
	}

	again, err := EncodeBytes(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding is not deterministic")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := DecodeBytes([]byte("definitely not a wav file at all")); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestEncodeBytesMatchesFile(t *testing.T) {
	c := ramp(8000, 2, 400)

	f, err := os.CreateTemp(t.TempDir(), "clip-*.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := Encode(f, c); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	onDisk, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}

	inMemory, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes() error = %v", err)
	}
	// The encoder seeks back to patch the RIFF sizes; both sinks must agree.
	if !bytes.Equal(onDisk, inMemory) {
		t.Errorf("in-memory encoding differs from file encoding (%d vs %d bytes)", len(inMemory), len(onDisk))
	}
}
