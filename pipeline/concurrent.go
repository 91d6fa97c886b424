package pipeline

import "context"

// Ordered applies fn to each value with up to n calls in flight and yields
// the results in input order. The first error cancels outstanding work and
// is returned from the next pull that reaches it.
func Ordered[I, O any](p *Pipeline[I], n int, fn func(context.Context, I) (O, error)) *Pipeline[O] {
	if n <= 0 {
		n = 1
	}
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			source := p.create(ctx)
			workerCtx, cancel := context.WithCancel(ctx)
			// Each input gets a one-slot channel; the queue of slots fixes
			// the output order while the semaphore bounds concurrency.
			slots := make(chan chan result[O], n)
			sem := make(chan struct{}, n)

			go func() {
				defer close(slots)
				for {
					val, ok, err := source.Next(workerCtx)
					if err != nil {
						slot := make(chan result[O], 1)
						slot <- result[O]{err: err}
						select {
						case slots <- slot:
						case <-workerCtx.Done():
						}
						return
					}
					if !ok {
						return
					}
					slot := make(chan result[O], 1)
					select {
					case slots <- slot:
					case <-workerCtx.Done():
						return
					}
					select {
					case sem <- struct{}{}:
					case <-workerCtx.Done():
						slot <- result[O]{err: workerCtx.Err()}
						return
					}
					go func(v I) {
						defer func() { <-sem }()
						o, err := fn(workerCtx, v)
						slot <- result[O]{val: o, ok: err == nil, err: err}
					}(val)
				}
			}()

			return &orderedIter[O]{
				slots:  slots,
				cancel: cancel,
				closer: source.Close,
			}
		},
	}
}

type orderedIter[O any] struct {
	slots  <-chan chan result[O]
	cancel context.CancelFunc
	closer func() error
}

func (it *orderedIter[O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	var slot chan result[O]
	select {
	case s, open := <-it.slots:
		if !open {
			return zero, false, nil
		}
		slot = s
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}

	select {
	case r := <-slot:
		if r.err != nil {
			it.cancel()
			return zero, false, r.err
		}
		return r.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *orderedIter[O]) Close() error {
	it.cancel()
	return it.closer()
}
