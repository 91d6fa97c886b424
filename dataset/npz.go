package dataset

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/sbinet/npyio/npz"
)

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("dataset: writer is closed")

// Writer writes tensors as .npy entries of an .npz archive.
type Writer struct {
	zw     *npz.Writer
	keys   map[string]struct{}
	closed bool
}

// NewWriter starts an archive on w. The archive never closes w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: npz.NewWriter(w), keys: make(map[string]struct{})}
}

// Add appends one tensor under its key.
func (w *Writer) Add(t Tensor) error {
	if w.closed {
		return ErrClosed
	}
	if t.Key == "" {
		return fmt.Errorf("dataset: tensor has no key")
	}
	if _, dup := w.keys[t.Key]; dup {
		return fmt.Errorf("dataset: duplicate key %q", t.Key)
	}
	if want := t.Shape[0] * t.Shape[1] * t.Shape[2]; len(t.Data) != want {
		return fmt.Errorf("dataset: tensor %q has %d values for shape %v", t.Key, len(t.Data), t.Shape)
	}
	w.keys[t.Key] = struct{}{}

	if err := w.zw.Write(t.Key+".npy", nested(t)); err != nil {
		return fmt.Errorf("dataset: write entry %s: %w", t.Key, err)
	}
	return nil
}

// Close finishes the archive.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	return w.zw.Close()
}

// Write stores every tensor in order and closes the archive.
func Write(out io.Writer, tensors []Tensor) error {
	w := NewWriter(out)
	for _, t := range tensors {
		if err := w.Add(t); err != nil {
			w.Close() //nolint:errcheck // the add error is reported
			return err
		}
	}
	return w.Close()
}

var float64Type = reflect.TypeOf(float64(0))

// nested copies t into a [N][T][D]float64 so npy records the tensor shape
// in its header.
func nested(t Tensor) any {
	n, frames, dim := t.Shape[0], t.Shape[1], t.Shape[2]
	typ := reflect.ArrayOf(n, reflect.ArrayOf(frames, reflect.ArrayOf(dim, float64Type)))
	arr := reflect.New(typ)
	for s := 0; s < n; s++ {
		speaker := arr.Elem().Index(s)
		for f := 0; f < frames; f++ {
			off := (s*frames + f) * dim
			reflect.Copy(speaker.Index(f), reflect.ValueOf(t.Data[off:off+dim]))
		}
	}
	return arr.Elem().Interface()
}
