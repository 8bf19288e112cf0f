package sim

import (
	"context"
	"math"
	"time"

	"go.viam.com/localizer/motor"
)

const defaultWheelSpeed = 360

type wheelMode int

const (
	wheelIdle wheelMode = iota
	wheelRunning
	wheelRotating
)

var _ motor.Motor = (*Wheel)(nil)

// Wheel is a simulated tacho-regulated wheel motor. Its state is guarded by the world's lock.
type Wheel struct {
	name  string
	world *World

	speed  float64
	mode   wheelMode
	dir    float64
	target float64
	tacho  float64
}

func newWheel(name string, world *World) *Wheel {
	return &Wheel{name: name, world: world, speed: defaultWheelSpeed}
}

// SetSpeed sets the speed of later motions.
func (wh *Wheel) SetSpeed(ctx context.Context, degsPerSec float64) error {
	if math.Abs(degsPerSec) < 0.0001 {
		return motor.NewZeroSpeedError()
	}
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	wh.speed = math.Abs(degsPerSec)
	return nil
}

// Forward runs the wheel forward until another command arrives.
func (wh *Wheel) Forward(ctx context.Context) error {
	return wh.run(1)
}

// Backward runs the wheel backward until another command arrives.
func (wh *Wheel) Backward(ctx context.Context) error {
	return wh.run(-1)
}

func (wh *Wheel) run(dir float64) error {
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	wh.mode = wheelRunning
	wh.dir = dir
	return nil
}

// Rotate turns the wheel by degrees. A blocking rotation advances virtual time until the wheel
// arrives; an asynchronous one arrives as other calls advance time.
func (wh *Wheel) Rotate(ctx context.Context, degrees int, async bool) error {
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	wh.mode = wheelRotating
	wh.target = wh.tacho + float64(degrees)
	if async {
		return nil
	}
	for wh.mode == wheelRotating {
		if err := ctx.Err(); err != nil {
			return err
		}
		wh.world.stepLocked(wh.world.cfg.Step)
	}
	return nil
}

// Stop stops the wheel at once.
func (wh *Wheel) Stop(ctx context.Context, immediate bool) error {
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	wh.mode = wheelIdle
	return nil
}

// TachoCount returns the accumulated rotation in degrees.
func (wh *Wheel) TachoCount(ctx context.Context) (float64, error) {
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	return wh.tacho, nil
}

// IsMoving reports whether the wheel is running or rotating. Asking a moving wheel lets one step
// of virtual time pass, so polling until the wheel rests terminates.
func (wh *Wheel) IsMoving(ctx context.Context) (bool, error) {
	wh.world.mu.Lock()
	defer wh.world.mu.Unlock()
	if wh.mode == wheelIdle {
		return false, nil
	}
	wh.world.stepLocked(wh.world.cfg.Step)
	return wh.mode != wheelIdle, nil
}

// advanceLocked moves the wheel for dt and returns the degrees it turned.
func (wh *Wheel) advanceLocked(dt time.Duration) float64 {
	reach := wh.speed * dt.Seconds()
	switch wh.mode {
	case wheelRunning:
		wh.tacho += wh.dir * reach
		return wh.dir * reach
	case wheelRotating:
		remaining := wh.target - wh.tacho
		if math.Abs(remaining) <= reach {
			wh.tacho = wh.target
			wh.mode = wheelIdle
			return remaining
		}
		delta := math.Copysign(reach, remaining)
		wh.tacho += delta
		return delta
	default:
		return 0
	}
}
