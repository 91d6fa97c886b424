// Package audio holds interleaved integer PCM and the WAV codec used for
// raw meeting channels and per-speaker streams.
//
// Decoding and encoding go through github.com/go-audio/wav. Offsets are
// given in milliseconds and map to frames with floor(ms * rate / 1000).
package audio
