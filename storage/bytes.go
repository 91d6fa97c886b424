package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// ReadAll downloads the object at path into memory.
func ReadAll(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// WriteBytes uploads data to path.
func WriteBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// Opener returns a function that downloads path when called. It lets
// consumers that take lazy record sources read straight from a store.
func Opener(ctx context.Context, s Storage, path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return s.Download(ctx, path)
	}
}

// DeletePrefix removes every object whose path starts with prefix and
// returns how many were removed.
func DeletePrefix(ctx context.Context, s Storage, prefix string) (int, error) {
	files, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, f := range files {
		if err := s.Delete(ctx, f.Path); err != nil {
			return i, err
		}
	}
	return len(files), nil
}
