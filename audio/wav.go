package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const pcmFormat = 1

// ErrInvalidWAV is returned for input that is not a RIFF/WAVE file.
var ErrInvalidWAV = errors.New("audio: not a valid wav file")

// Decode reads a whole PCM WAV file.
func Decode(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("audio: read pcm: %w", err)
	}
	format := Format{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   buf.SourceBitDepth,
	}
	if format.BitDepth == 0 {
		format.BitDepth = int(dec.BitDepth)
	}
	if err := format.Validate(); err != nil {
		return Clip{}, fmt.Errorf("audio: %w", err)
	}
	return Clip{Format: format, Samples: buf.Data}, nil
}

// DecodeBytes decodes an in-memory WAV file.
func DecodeBytes(data []byte) (Clip, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes c as a PCM WAV file. The header is patched on close, so w
// must be seekable.
func Encode(w io.WriteSeeker, c Clip) error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	enc := wav.NewEncoder(w, c.Format.SampleRate, c.Format.BitDepth, c.Format.Channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: c.Format.Channels,
			SampleRate:  c.Format.SampleRate,
		},
		Data:           c.Samples,
		SourceBitDepth: c.Format.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: close encoder: %w", err)
	}
	return nil
}

// EncodeBytes encodes c into memory.
func EncodeBytes(c Clip) ([]byte, error) {
	var ws writerseeker.WriterSeeker
	if err := Encode(&ws, c); err != nil {
		return nil, err
	}
	return io.ReadAll(ws.Reader())
}
