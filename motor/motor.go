// Package motor defines the regulated wheel motors of a differential drive robot.
package motor

import (
	"context"
)

// A Motor is a tacho-regulated wheel motor. Angles are wheel degrees, speeds are wheel degrees
// per second.
type Motor interface {
	// SetSpeed sets the speed used by Forward, Backward and Rotate.
	SetSpeed(ctx context.Context, degsPerSec float64) error

	// Forward runs the motor forward until another command arrives.
	Forward(ctx context.Context) error

	// Backward runs the motor backward until another command arrives.
	Backward(ctx context.Context) error

	// Rotate turns the motor by the given number of degrees. With async the call returns as soon
	// as the motion has started; otherwise it blocks until the motion completes.
	Rotate(ctx context.Context, degrees int, async bool) error

	// Stop stops the motor. With immediate the call returns without waiting for the motor to
	// come to rest.
	Stop(ctx context.Context, immediate bool) error

	// TachoCount returns the accumulated rotation in degrees.
	TachoCount(ctx context.Context) (float64, error)

	// IsMoving returns whether a command is still driving the motor.
	IsMoving(ctx context.Context) (bool, error)
}
