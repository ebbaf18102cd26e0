package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetry is returned by polled functions to request another attempt.
var ErrRetry = errors.New("retry")

// Backoff is a (blocking) function deciding when the next attempt starts.
//
// # Args
//
// - context: if the context is canceled, Backoff returns ctx.Err().
//
// # Returns
//
// - error: nil to retry, non-nil to give up.
type Backoff func(context.Context) error

// StaticBackoff returns a Backoff waiting a fixed interval between attempts.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff returns a Backoff whose N-th wait is
// initialInterval * r^N, or until the context is done.
func ExponentialBackoff(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer func() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(int64(float64(interval) * r))
			return nil
		}
	}
}

// Blocking calls f until it returns nil or a non-retry error.
//
// f is retried (after backoff b) as long as it returns ErrRetry.
// The last value from f is returned along with its error.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	last := *new(T)
	for {
		if err := b(ctx); err != nil {
			return last, err
		}

		var err error
		last, err = f()
		if err == nil {
			return last, nil
		}
		if errors.Is(err, ErrRetry) {
			continue
		}
		return last, err
	}
}

type Result[T any] struct {
	Value T
	Err   error
}

// Promise resolves to a Result when the retried computation settles.
type Promise[T any] <-chan Result[T]

// Failed returns a Promise already resolved with err.
func Failed[T any](err error) Promise[T] {
	ch := make(chan Result[T], 1)
	ch <- Result[T]{Err: err}
	close(ch)
	return ch
}

// Ok returns a Promise already resolved with value.
func Ok[T any](value T) Promise[T] {
	ch := make(chan Result[T], 1)
	ch <- Result[T]{Value: value}
	close(ch)
	return ch
}

// Go retries f in a background goroutine, following backoff b,
// and resolves the returned Promise with the final Result.
func Go[T any](ctx context.Context, b Backoff, f func() (T, error)) Promise[T] {
	ch := make(chan Result[T], 1)

	go func() {
		defer close(ch)
		defer func() {
			r := recover()
			var err error
			switch rr := r.(type) {
			case nil:
				return
			case error:
				err = rr
			default:
				err = fmt.Errorf("%+v", rr)
			}

			select {
			case ch <- Result[T]{Err: err}:
			default:
				panic(r)
			}
		}()

		ret, err := Blocking(ctx, b, f)
		ch <- Result[T]{Value: ret, Err: err}
	}()

	return ch
}
