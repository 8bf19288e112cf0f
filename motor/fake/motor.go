// Package fake implements a fake motor that records the commands it receives.
package fake

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/operation"
)

const defaultSpeed = 360

var _ motor.Motor = &Motor{}

// A Motor pretends to run. Rotations take |degrees|/speed seconds of wall time and update the
// tacho count when they finish; open ended runs never move the tacho.
type Motor struct {
	Name   string
	Logger logging.Logger

	mu        sync.Mutex
	speed     float64
	direction int
	tacho     float64
	commands  []string
	opMgr     operation.SingleOperationManager
	rotating  sync.WaitGroup
}

// NewMotor returns a stopped fake motor.
func NewMotor(name string, logger logging.Logger) *Motor {
	return &Motor{Name: name, Logger: logger, speed: defaultSpeed}
}

func (m *Motor) record(format string, args ...interface{}) {
	cmd := fmt.Sprintf(format, args...)
	m.commands = append(m.commands, cmd)
	m.Logger.Debugf("motor %s: %s", m.Name, cmd)
}

// Commands returns the commands received so far, e.g. "forward" or "rotate -321 async".
func (m *Motor) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// SetSpeed sets the speed used by later motions.
func (m *Motor) SetSpeed(ctx context.Context, degsPerSec float64) error {
	if math.Abs(degsPerSec) < 0.0001 {
		return motor.NewZeroSpeedError()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = math.Abs(degsPerSec)
	m.record("speed %.0f", m.speed)
	return nil
}

// Forward pretends to run forward.
func (m *Motor) Forward(ctx context.Context) error {
	m.opMgr.CancelRunning(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direction = 1
	m.record("forward")
	return nil
}

// Backward pretends to run backward.
func (m *Motor) Backward(ctx context.Context) error {
	m.opMgr.CancelRunning(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direction = -1
	m.record("backward")
	return nil
}

// Rotate pretends to turn by degrees. A rotation interrupted by another command leaves the tacho
// count untouched.
func (m *Motor) Rotate(ctx context.Context, degrees int, async bool) error {
	m.mu.Lock()
	if async {
		m.record("rotate %d async", degrees)
	} else {
		m.record("rotate %d", degrees)
	}
	wait := time.Duration(math.Abs(float64(degrees))/m.speed*float64(time.Second))
	m.direction = int(math.Copysign(1, float64(degrees)))
	m.mu.Unlock()

	run := func(ctx context.Context) bool {
		finished := m.opMgr.NewTimedWaitOp(ctx, "rotate", wait)
		m.mu.Lock()
		defer m.mu.Unlock()
		if finished {
			m.tacho += float64(degrees)
			m.direction = 0
		}
		return finished
	}

	if async {
		m.rotating.Add(1)
		go func() {
			defer m.rotating.Done()
			run(context.Background())
		}()
		return nil
	}
	if !run(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.Errorf("motor %s: rotation interrupted", m.Name)
	}
	return nil
}

// Stop has the motor pretend to be off.
func (m *Motor) Stop(ctx context.Context, immediate bool) error {
	m.opMgr.CancelRunning(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direction = 0
	if immediate {
		m.record("stop immediate")
	} else {
		m.record("stop")
	}
	return nil
}

// TachoCount returns the degrees turned by completed rotations.
func (m *Motor) TachoCount(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tacho, nil
}

// SetTachoCount overrides the tacho count, standing in for wheel motion in tests.
func (m *Motor) SetTachoCount(degrees float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tacho = degrees
}

// IsMoving returns if the motor is pretending to be moving or not.
func (m *Motor) IsMoving(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.direction != 0, nil
}

// Wait blocks until asynchronous rotations have finished.
func (m *Motor) Wait() {
	m.rotating.Wait()
}
