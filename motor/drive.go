package motor

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/kinematics"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/utils"
)

const idlePollInterval = time.Millisecond

// Direction is the sense of an in-place spin, seen from above. Headings grow clockwise.
type Direction int

const (
	// CounterClockwise spins with the left wheel backward and the right wheel forward.
	CounterClockwise Direction = iota
	// Clockwise spins with the left wheel forward and the right wheel backward.
	Clockwise
)

func (d Direction) String() string {
	if d == Clockwise {
		return "clockwise"
	}
	return "counterclockwise"
}

// Opposite returns the other spin direction.
func (d Direction) Opposite() Direction {
	if d == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

// Drive pairs the two wheel motors of a differential drive robot with its geometry.
type Drive struct {
	Left        Motor
	Right       Motor
	WheelRadius float64
	Track       float64

	logger logging.Logger
}

// NewDrive validates the geometry and wires the two motors together. Radius and track share
// a unit (centimeters throughout this module).
func NewDrive(left, right Motor, wheelRadius, track float64, logger logging.Logger) (*Drive, error) {
	if left == nil {
		return nil, NewMissingMotorError("left")
	}
	if right == nil {
		return nil, NewMissingMotorError("right")
	}
	if wheelRadius <= 0 || track <= 0 {
		return nil, NewInvalidGeometryError(wheelRadius, track)
	}
	return &Drive{Left: left, Right: right, WheelRadius: wheelRadius, Track: track, logger: logger}, nil
}

// SetSpeed sets both wheels to the same speed.
func (d *Drive) SetSpeed(ctx context.Context, degsPerSec float64) error {
	if math.Abs(degsPerSec) < 0.0001 {
		return NewZeroSpeedError()
	}
	_, err := utils.RunInParallel(ctx, []utils.SimpleFunc{
		func(ctx context.Context) error { return d.Left.SetSpeed(ctx, degsPerSec) },
		func(ctx context.Context) error { return d.Right.SetSpeed(ctx, degsPerSec) },
	})
	return err
}

// Spin starts an open ended in-place spin in the given direction.
func (d *Drive) Spin(ctx context.Context, dir Direction) error {
	if dir == Clockwise {
		return multierr.Combine(d.Left.Forward(ctx), d.Right.Backward(ctx))
	}
	return multierr.Combine(d.Left.Backward(ctx), d.Right.Forward(ctx))
}

// Stop stops the left wheel without waiting and then the right wheel, blocking until it rests.
func (d *Drive) Stop(ctx context.Context) error {
	return multierr.Combine(d.Left.Stop(ctx, true), d.Right.Stop(ctx, false))
}

// TurnBy spins the robot in place by robotAngle degrees, positive angles turning
// counterclockwise. The left wheel is commanded asynchronously and the right wheel
// synchronously, so both move together, and the call returns once both wheels rest.
func (d *Drive) TurnBy(ctx context.Context, robotAngle float64) error {
	wheelDegs := kinematics.AngleToWheelRotation(d.WheelRadius, d.Track, robotAngle)
	d.logger.Debugf("turning by %.2f degrees (%d wheel degrees)", robotAngle, wheelDegs)
	if err := d.Left.Rotate(ctx, -wheelDegs, true); err != nil {
		return errors.Wrap(err, "rotating left wheel")
	}
	if err := d.Right.Rotate(ctx, wheelDegs, false); err != nil {
		return multierr.Combine(errors.Wrap(err, "rotating right wheel"), d.Stop(ctx))
	}
	return errors.Wrap(waitIdle(ctx, d.Left), "waiting for left wheel")
}

// MoveStraight drives both wheels the same linear distance, negative distances backing up.
func (d *Drive) MoveStraight(ctx context.Context, distance float64) error {
	wheelDegs := kinematics.DistanceToWheelRotation(d.WheelRadius, distance)
	d.logger.Debugf("moving straight %.2f (%d wheel degrees)", distance, wheelDegs)
	if err := d.Left.Rotate(ctx, wheelDegs, true); err != nil {
		return errors.Wrap(err, "rotating left wheel")
	}
	if err := d.Right.Rotate(ctx, wheelDegs, false); err != nil {
		return multierr.Combine(errors.Wrap(err, "rotating right wheel"), d.Stop(ctx))
	}
	return errors.Wrap(waitIdle(ctx, d.Left), "waiting for left wheel")
}

// waitIdle blocks until m reports it has stopped moving.
func waitIdle(ctx context.Context, m Motor) error {
	for {
		moving, err := m.IsMoving(ctx)
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		if !goutils.SelectContextOrWait(ctx, idlePollInterval) {
			return ctx.Err()
		}
	}
}

// TileSizeCm is the side of one floor tile.
const TileSizeCm = 30.48

// SquarePath describes a closed polygon driven by DriveSquare.
type SquarePath struct {
	SideCm float64 `json:"side_cm"`
	Sides  int     `json:"sides"`
	// ForwardSpeed and TurnSpeed are wheel speeds in degrees per second. Zero keeps the current
	// speed.
	ForwardSpeed float64 `json:"forward_speed"`
	TurnSpeed    float64 `json:"turn_speed"`
}

// DefaultSquarePath is a square 2.9 tiles on a side.
func DefaultSquarePath() SquarePath {
	return SquarePath{SideCm: 2.9 * TileSizeCm, Sides: 4, ForwardSpeed: 200, TurnSpeed: 120}
}

// DriveSquare drives a closed polygon path: forward one side, then a 90 degree clockwise turn,
// repeated for every side.
func (d *Drive) DriveSquare(ctx context.Context, path SquarePath) error {
	if path.SideCm <= 0 || path.Sides <= 0 {
		return errors.Errorf("square path needs a positive side and side count, got %.2f and %d", path.SideCm, path.Sides)
	}
	for i := 0; i < path.Sides; i++ {
		if err := d.setSpeedIfSet(ctx, path.ForwardSpeed); err != nil {
			return err
		}
		if err := d.MoveStraight(ctx, path.SideCm); err != nil {
			return errors.Wrapf(err, "driving side %d", i+1)
		}
		if err := d.setSpeedIfSet(ctx, path.TurnSpeed); err != nil {
			return err
		}
		if err := d.TurnBy(ctx, -90); err != nil {
			return errors.Wrapf(err, "turning after side %d", i+1)
		}
	}
	return nil
}

func (d *Drive) setSpeedIfSet(ctx context.Context, degsPerSec float64) error {
	if degsPerSec == 0 {
		return nil
	}
	return d.SetSpeed(ctx, degsPerSec)
}
