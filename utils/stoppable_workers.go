package utils

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"
)

// StoppableWorkers is a group of background goroutines sharing one context that Stop cancels.
// The zero value is not usable; use NewStoppableWorkers.
type StoppableWorkers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	running sync.WaitGroup
}

// NewStoppableWorkers starts one goroutine per function.
func NewStoppableWorkers(funcs ...func(context.Context)) *StoppableWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts one more goroutine per function. It does nothing once Stop was called.
func (sw *StoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ctx.Err() != nil {
		return
	}
	sw.running.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.running.Done()
			f(sw.ctx)
		})
	}
}

// AddTicker calls fn on every tick of clk until Stop. Errors are handed to onErr, unless they
// come from the workers being stopped, and the loop keeps going.
func (sw *StoppableWorkers) AddTicker(
	clk clock.Clock,
	period time.Duration,
	fn func(context.Context) error,
	onErr func(error),
) {
	sw.AddWorkers(func(ctx context.Context) {
		ticker := clk.Ticker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := fn(ctx); err != nil && ctx.Err() == nil && onErr != nil {
				onErr(err)
			}
		}
	})
}

// Stop cancels the workers' context and waits for all of them to return. It may be called more
// than once.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.cancel()
	sw.running.Wait()
}
