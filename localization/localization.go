// Package localization finds the absolute heading of a robot standing in the corner of two
// perpendicular walls by spinning in place and detecting wall edges with a range sensor.
//
// A run spins counterclockwise until it records heading alpha at one edge, then clockwise until
// it records heading beta at the other, computes the error of the pose estimate's heading from the
// two and turns the robot to face true north, where the pose estimate is reset to (0, 0, 0).
//
// The falling edge variant detects the transition from open space to wall. The rising edge
// variant detects the transition from wall to open space.
package localization

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/odometer"
	"go.viam.com/localizer/operation"
	"go.viam.com/localizer/sensor"
	"go.viam.com/localizer/tone"
)

// Variant selects which kind of edge a run detects.
type Variant int

const (
	// Falling detects the robot turning from open space to a wall.
	Falling Variant = iota
	// Rising detects the robot turning from a wall to open space.
	Rising
)

func (v Variant) String() string {
	switch v {
	case Falling:
		return "falling"
	case Rising:
		return "rising"
	default:
		return "unknown"
	}
}

// VariantFromString parses "falling" or "rising".
func VariantFromString(s string) (Variant, error) {
	switch s {
	case "falling", "falling_edge":
		return Falling, nil
	case "rising", "rising_edge":
		return Rising, nil
	default:
		return 0, errors.Errorf("unknown localization variant %q", s)
	}
}

// Result describes one completed run.
type Result struct {
	RunID   uuid.UUID
	Variant Variant
	// Alpha and Beta are the pose estimate headings recorded at the two detected edges.
	Alpha float64
	Beta  float64
	// Heading is the pose estimate heading once both edges were found.
	Heading float64
	// Theta is the error of the pose estimate heading.
	Theta float64
	// AngleToTurn is the counterclockwise turn that brought the robot to true north.
	AngleToTurn float64
}

// String renders the result as a two column table.
func (r Result) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"run", r.RunID},
		{"variant", r.Variant},
		{"alpha", fmt.Sprintf("%.2f", r.Alpha)},
		{"beta", fmt.Sprintf("%.2f", r.Beta)},
		{"heading", fmt.Sprintf("%.2f", r.Heading)},
		{"theta", fmt.Sprintf("%.2f", r.Theta)},
		{"angle to turn", fmt.Sprintf("%.2f", r.AngleToTurn)},
	})
	return t.Render()
}

// A Localizer runs edge detection localization on one robot. Only one run is active at a time:
// starting a run cancels the run in flight and waits for it to stop the wheels.
type Localizer struct {
	drive   *motor.Drive
	sampler sensor.Sampler
	pose    odometer.PoseEstimate
	tone    tone.Emitter
	cfg     params
	logger  logging.Logger

	opMgr operation.SingleOperationManager
	runMu sync.Mutex
	state atomic.Int32
}

// New returns a Localizer. The pose estimate is expected to track the drive's wheels.
func New(
	drive *motor.Drive,
	sampler sensor.Sampler,
	pose odometer.PoseEstimate,
	emitter tone.Emitter,
	cfg Config,
	logger logging.Logger,
) (*Localizer, error) {
	if drive == nil {
		return nil, errors.New("localizer needs a drive")
	}
	if sampler == nil {
		return nil, errors.New("localizer needs a sampler")
	}
	if pose == nil {
		return nil, errors.New("localizer needs a pose estimate")
	}
	if err := cfg.Validate("localization"); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = tone.Logged{Logger: logger}
	}
	l := &Localizer{
		drive:   drive,
		sampler: sampler,
		pose:    pose,
		tone:    emitter,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
	l.state.Store(int32(Done))
	return l, nil
}

// FallingEdge localizes by detecting open space to wall transitions. It blocks until the robot
// faces true north.
func (l *Localizer) FallingEdge(ctx context.Context) (Result, error) {
	return l.Localize(ctx, Falling)
}

// RisingEdge localizes by detecting wall to open space transitions. It blocks until the robot
// faces true north.
func (l *Localizer) RisingEdge(ctx context.Context) (Result, error) {
	return l.Localize(ctx, Rising)
}

// State returns the phase the current run is in, or Done when idle.
func (l *Localizer) State() State {
	return State(l.state.Load())
}

// Localize runs one localization. On success the robot faces true north and the pose estimate
// reads (0, 0, 0). On failure the wheels are stopped and the pose estimate is left untouched.
func (l *Localizer) Localize(ctx context.Context, variant Variant) (Result, error) {
	phases, err := phasesFor(variant)
	if err != nil {
		return Result{}, err
	}

	ctx, done := l.opMgr.New(ctx, variant.String()+"_edge")
	defer done()
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	defer l.state.Store(int32(Done))

	res := Result{Variant: variant}
	if op := operation.Get(ctx); op != nil {
		res.RunID = op.ID
	}
	ctx = logging.WithRun(ctx, res.RunID.String())
	l.logger.CInfow(ctx, "localization started", "variant", variant)

	if err := l.drive.SetSpeed(ctx, l.cfg.RotationSpeed); err != nil {
		return res, l.abort(ctx, errors.Wrap(err, "setting rotation speed"))
	}

	for _, ph := range phases {
		l.state.Store(int32(ph.state))
		heading, err := l.runPhase(ctx, ph)
		if err != nil {
			return res, l.abort(ctx, err)
		}
		switch ph.capture {
		case captureAlpha:
			res.Alpha = heading
		case captureBeta:
			res.Beta = heading
		case captureNone:
		}
	}

	current, err := l.pose.Pose(ctx)
	if err != nil {
		return res, l.abort(ctx, errors.Wrap(err, "reading heading"))
	}
	res.Heading = current.Theta
	res.Theta, res.AngleToTurn = correction(variant, res.Alpha, res.Beta, res.Heading, l.cfg)
	l.logger.CInfow(ctx, "correcting heading",
		"alpha", res.Alpha, "beta", res.Beta, "heading", res.Heading,
		"theta", res.Theta, "angle_to_turn", res.AngleToTurn)

	if err := l.drive.TurnBy(ctx, res.AngleToTurn); err != nil {
		return res, l.abort(ctx, errors.Wrap(err, "turning to true north"))
	}
	if err := l.pose.SetPose(ctx, odometer.Pose{}); err != nil {
		return res, errors.Wrap(err, "resetting pose")
	}
	l.logger.CInfow(ctx, "localization done")
	return res, nil
}

// runPhase polls the sampler without pausing, spinning the robot until the phase's target is
// reached. It then records the heading when the phase captures one, stops the wheels and returns
// the heading.
func (l *Localizer) runPhase(ctx context.Context, ph phase) (float64, error) {
	var deadline <-chan time.Time
	if l.cfg.PhaseTimeout > 0 {
		timer := l.cfg.Clock.Timer(l.cfg.PhaseTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	spinning := false
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline:
			return 0, errors.Wrapf(ErrPhaseTimeout, "%s after %s", ph.state, l.cfg.PhaseTimeout)
		default:
		}

		distance, err := l.sampler.Sample(ctx)
		if err != nil {
			return 0, errors.Wrapf(err, "sampling during %s", ph.state)
		}
		if ph.reached(distance, l.cfg) {
			break
		}
		if !spinning {
			l.logger.CDebugw(ctx, "spinning", "state", ph.state, "direction", ph.direction, "distance", distance)
			if err := l.drive.Spin(ctx, ph.direction); err != nil {
				return 0, errors.Wrapf(err, "spinning %s during %s", ph.direction, ph.state)
			}
			spinning = true
		}
	}

	var heading float64
	if ph.capture != captureNone {
		pose, err := l.pose.Pose(ctx)
		if err != nil {
			return 0, errors.Wrapf(err, "reading heading at end of %s", ph.state)
		}
		heading = pose.Theta
		l.tone.Emit()
		l.logger.CDebugw(ctx, "edge detected", "state", ph.state, "capture", ph.capture, "heading", heading)
	}
	if err := l.drive.Stop(ctx); err != nil {
		return 0, errors.Wrapf(err, "stopping at end of %s", ph.state)
	}
	return heading, nil
}

// abort stops the wheels after a failed run. The stop is issued even when ctx is cancelled.
func (l *Localizer) abort(ctx context.Context, err error) error {
	l.logger.CWarnw(ctx, "localization aborted", "state", l.State(), "error", err)
	if stopErr := l.drive.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		return multierr.Combine(err, errors.Wrap(stopErr, "stopping wheels"))
	}
	return err
}

// correction returns the heading error theta and the counterclockwise turn that faces the robot
// to true north, given the edge headings alpha and beta and the current heading.
func correction(variant Variant, alpha, beta, heading float64, cfg params) (theta, angleToTurn float64) {
	theta = cfg.geometry().Theta(alpha, beta)
	spread := math.Abs(alpha - beta)
	switch variant {
	case Rising:
		theta += cfg.RisingOffsetDeg
		angleToTurn = theta + heading
		if spread > cfg.DisambiguationDeg {
			angleToTurn += cfg.TurnaroundDeg
		}
	default:
		angleToTurn = theta + heading
		if spread <= cfg.DisambiguationDeg {
			angleToTurn += cfg.TurnaroundDeg
		}
	}
	return theta, angleToTurn
}
