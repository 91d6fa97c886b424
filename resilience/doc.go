// Package resilience retries artifact store operations that fail with
// transient errors.
//
//	err := resilience.RetryFunc(ctx, cfg.Retry, func() error {
//	    return store.Upload(ctx, key, bytes.NewReader(data))
//	})
//
// Only errors the errors package marks retryable (STORAGE_ERROR) are
// retried by default.
package resilience
