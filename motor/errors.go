package motor

import "github.com/pkg/errors"

// NewZeroSpeedError returns an error representing a request to move a motor at
// zero speed (i.e., moving the motor without moving the motor).
func NewZeroSpeedError() error {
	return errors.New("cannot move motor at a speed that is nearly 0")
}

// NewInvalidGeometryError returns an error for a drive whose wheel radius or track is not positive.
func NewInvalidGeometryError(wheelRadius, track float64) error {
	return errors.Errorf("drive needs a positive wheel radius and track, got radius %.2f and track %.2f",
		wheelRadius, track)
}

// NewMissingMotorError returns an error for a drive built without one of its wheels.
func NewMissingMotorError(side string) error {
	return errors.Errorf("drive is missing its %s motor", side)
}
