package localization

import (
	"github.com/pkg/errors"

	"go.viam.com/localizer/motor"
)

// State names a phase of a localization run.
type State int32

// The phases of a run, in the order the falling edge variant visits them. The rising edge variant
// visits SeekWall1, SeekOpen1, SeekWall2, SeekOpen2.
const (
	// SeekOpen1 spins counterclockwise until the robot faces open space.
	SeekOpen1 State = iota
	// SeekWall1 spins counterclockwise until the robot faces a wall.
	SeekWall1
	// SeekOpen2 spins clockwise until the robot faces open space.
	SeekOpen2
	// SeekWall2 spins clockwise until the robot faces a wall.
	SeekWall2
	// Done means no run is spinning the robot.
	Done
)

func (s State) String() string {
	switch s {
	case SeekOpen1:
		return "seek_open_1"
	case SeekWall1:
		return "seek_wall_1"
	case SeekOpen2:
		return "seek_open_2"
	case SeekWall2:
		return "seek_wall_2"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type capture int

const (
	captureNone capture = iota
	captureAlpha
	captureBeta
)

func (c capture) String() string {
	switch c {
	case captureAlpha:
		return "alpha"
	case captureBeta:
		return "beta"
	case captureNone:
	}
	return "none"
}

type target int

const (
	targetWall target = iota
	targetOpen
)

type phase struct {
	state     State
	direction motor.Direction
	target    target
	capture   capture
}

// reached reports whether the robot faces the phase's target. The band between threshold and
// threshold+margin satisfies neither target, so noise around the threshold cannot flip a phase.
func (ph phase) reached(distanceCm float64, cfg params) bool {
	if ph.target == targetWall {
		return distanceCm <= cfg.ThresholdCm
	}
	return distanceCm >= cfg.ThresholdCm+cfg.MarginCm
}

var (
	fallingPhases = sweepPhases([4]State{SeekOpen1, SeekWall1, SeekOpen2, SeekWall2}, targetOpen, targetWall)
	risingPhases  = sweepPhases([4]State{SeekWall1, SeekOpen1, SeekWall2, SeekOpen2}, targetWall, targetOpen)
)

// sweepPhases builds two sweeps, counterclockwise then clockwise. Each sweep seeks `from` and
// then `to`, capturing alpha on the first sweep and beta on the second.
func sweepPhases(states [4]State, from, to target) []phase {
	phases := make([]phase, 0, len(states))
	direction := motor.CounterClockwise
	for sweep, edge := range []capture{captureAlpha, captureBeta} {
		phases = append(phases,
			phase{states[2*sweep], direction, from, captureNone},
			phase{states[2*sweep+1], direction, to, edge},
		)
		direction = direction.Opposite()
	}
	return phases
}

func phasesFor(variant Variant) ([]phase, error) {
	switch variant {
	case Falling:
		return fallingPhases, nil
	case Rising:
		return risingPhases, nil
	default:
		return nil, errors.Errorf("unknown localization variant %d", int(variant))
	}
}
