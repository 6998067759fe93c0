package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// Backoff returns how long to wait before attempt i (1-based)
type Backoff func(i int) time.Duration

// Quadratic waits i^2 seconds plus up to a few seconds of jitter
func Quadratic(i int) time.Duration {
	sleep := math.Pow(float64(i), 2) + float64(randInt()%3)
	return time.Duration(sleep) * time.Second
}

// NoWait retries immediately
func NoWait(int) time.Duration { return 0 }

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to retries+1 times, stopping early on success, a permanent
// error or context cancellation. The last error is returned unwrapped.
func Do(ctx context.Context, retries int, wait Backoff, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i <= retries; i++ {
		if i > 0 {
			timer := time.NewTimer(wait(i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
	}
	return err
}

func randInt() int {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return int(seed.Int64())
}
