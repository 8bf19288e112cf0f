// Package operation tracks the single long running operation a component may have in flight.
package operation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	goutils "go.viam.com/utils"
)

type somCtxKey byte

const somCtxKeySingleOp = somCtxKey(iota)

// Operation is a running operation. Its ID tags every log line the operation emits.
type Operation struct {
	ID      uuid.UUID
	Method  string
	Started time.Time

	cancel  context.CancelFunc
	manager *SingleOperationManager
}

// Cancel cancels the context associated with an operation.
func (o *Operation) Cancel() {
	o.cancel()
}

// Get returns the Operation attached to ctx. This can be nil.
func Get(ctx context.Context) *Operation {
	op, ok := ctx.Value(somCtxKeySingleOp).(*Operation)
	if !ok {
		return nil
	}
	return op
}

// SingleOperationManager ensures only 1 operation is happening a time.
// An operation can be nested, so if there is already an operation in progress,
// it can have sub-operations without an issue. Operations of other managers carried by a context
// are not nested: a wheel motor still cancels its own rotation when a localization run drives it.
type SingleOperationManager struct {
	mu        sync.Mutex
	currentOp *Operation
}

// CancelRunning cancels the current operation unless it's mine.
func (sm *SingleOperationManager) CancelRunning(ctx context.Context) {
	if sm.owns(ctx) {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancelInLock(ctx)
}

// OpRunning returns if there is a current operation.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp != nil
}

// New creates a new operation, cancels previous, returns a new context and function to call when done.
func (sm *SingleOperationManager) New(ctx context.Context, method string) (context.Context, func()) {
	// handle nested ops
	if sm.owns(ctx) {
		return ctx, func() {}
	}

	sm.mu.Lock()

	// first cancel any old operation
	sm.cancelInLock(ctx)

	theOp := &Operation{
		ID:      uuid.New(),
		Method:  method,
		Started: time.Now(),
		manager: sm,
	}

	ctx = context.WithValue(ctx, somCtxKeySingleOp, theOp)
	ctx, theOp.cancel = context.WithCancel(ctx)
	sm.currentOp = theOp
	sm.mu.Unlock()

	return ctx, func() {
		theOp.cancel()
		sm.mu.Lock()
		if theOp == sm.currentOp {
			sm.currentOp = nil
		}
		sm.mu.Unlock()
	}
}

// NewTimedWaitOp returns true if it finished, false if cancelled.
// If there are other operations pending, this will cancel them.
func (sm *SingleOperationManager) NewTimedWaitOp(ctx context.Context, method string, dur time.Duration) bool {
	ctx, finish := sm.New(ctx, method)
	defer finish()

	return goutils.SelectContextOrWait(ctx, dur)
}

func (sm *SingleOperationManager) owns(ctx context.Context) bool {
	op := Get(ctx)
	return op != nil && op.manager == sm
}

func (sm *SingleOperationManager) cancelInLock(ctx context.Context) {
	myOp := Get(ctx)
	op := sm.currentOp

	if op == nil || myOp == op {
		return
	}

	op.cancel()

	sm.currentOp = nil
}
