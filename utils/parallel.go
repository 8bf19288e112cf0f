package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// SimpleFunc is for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// FloatFunc is for GetInParallel.
type FloatFunc func(ctx context.Context) (float64, error)

// errorCollector keeps the first error and any non-cancellation errors that follow it.
type errorCollector struct {
	mu  sync.Mutex
	err error
}

func (ec *errorCollector) store(err error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.err == nil || !errors.Is(err, context.Canceled) {
		ec.err = multierr.Combine(ec.err, err)
	}
}

// RunInParallel runs all functions in parallel, return is elapsed time and an error.
// The first failure cancels the context handed to the others.
func RunInParallel(ctx context.Context, fs []SimpleFunc) (time.Duration, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var errs errorCollector

	helper := func(f SimpleFunc) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				errs.store(fmt.Errorf("got panic running something in parallel: %v", thePanic))
				cancel()
			}
			wg.Done()
		}()
		if err := f(ctx); err != nil {
			errs.store(err)
			cancel()
		}
	}

	for _, f := range fs {
		wg.Add(1)
		go helper(f)
	}

	wg.Wait()
	return time.Since(start), errs.err
}

// GetInParallel runs all functions in parallel, return is elapsed time, a list of floats in the
// order of fs, and an error.
func GetInParallel(ctx context.Context, fs []FloatFunc) (time.Duration, []float64, error) {
	results := make([]float64, len(fs))
	wrapped := make([]SimpleFunc, 0, len(fs))
	for i, f := range fs {
		wrapped = append(wrapped, func(ctx context.Context) error {
			value, err := f(ctx)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}
	elapsed, err := RunInParallel(ctx, wrapped)
	return elapsed, results, err
}
