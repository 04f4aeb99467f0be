// Package dataflow builds channel pipelines out of small stages.
// Cancel the context passed to the stages to release their goroutines
// when the consumer stops early.
package dataflow

import (
	"context"
	"sync"
	"time"
)

// From emits items in order.
func From[T any](ctx context.Context, items ...T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Map applies fn to every message. With more than one worker the output
// order is not the input order.
func Map[In, Out any](ctx context.Context, in <-chan In, fn func(In) (Out, error), opts ...Option) <-chan Out {
	cfg := newConfig(opts)
	out := make(chan Out, cfg.bufferSize)

	var wg sync.WaitGroup
	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				var msg In
				var ok bool
				select {
				case <-ctx.Done():
					return
				case msg, ok = <-in:
					if !ok {
						return
					}
				}

				res, err := call(ctx, cfg, func() (Out, error) { return fn(msg) })
				if err != nil {
					if cfg.errorHandler != nil && !cfg.errorHandler(err) {
						return
					}
					continue
				}

				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ForEach consumes the channel until it is closed, fn fails or ctx is done.
func ForEach[T any](ctx context.Context, in <-chan T, fn func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
}

func call[Out any](ctx context.Context, cfg *config, fn func() (Out, error)) (Out, error) {
	res, err := fn()
	for attempt := 1; err != nil && attempt <= cfg.maxRetries; attempt++ {
		if cfg.backoff != nil {
			select {
			case <-time.After(cfg.backoff(attempt)):
			case <-ctx.Done():
				var zero Out
				return zero, ctx.Err()
			}
		}
		res, err = fn()
	}
	return res, err
}
