package storage

import (
	"context"
	"io"

	"github.com/kbukum/amiprep/resilience"
)

// retrying retries retryable failures of the wrapped store.
type retrying struct {
	Storage
	cfg resilience.RetryConfig
}

// WithRetry wraps s so that Upload, Download, Exists and List are retried
// per cfg. Uploads are only retried when the reader is an io.Seeker, since
// the body has to be replayed.
func WithRetry(s Storage, cfg resilience.RetryConfig) Storage {
	cfg.ApplyDefaults()
	return &retrying{Storage: s, cfg: cfg}
}

func (r *retrying) Upload(ctx context.Context, path string, reader io.Reader) error {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return r.Storage.Upload(ctx, path, reader)
	}
	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return r.Storage.Upload(ctx, path, reader)
	}
	return resilience.RetryFunc(ctx, r.cfg, func() error {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return err
		}
		return r.Storage.Upload(ctx, path, reader)
	})
}

func (r *retrying) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	return resilience.Retry(ctx, r.cfg, func() (io.ReadCloser, error) {
		return r.Storage.Download(ctx, path)
	})
}

func (r *retrying) Exists(ctx context.Context, path string) (bool, error) {
	return resilience.Retry(ctx, r.cfg, func() (bool, error) {
		return r.Storage.Exists(ctx, path)
	})
}

func (r *retrying) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	return resilience.Retry(ctx, r.cfg, func() ([]FileInfo, error) {
		return r.Storage.List(ctx, prefix)
	})
}
