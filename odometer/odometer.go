// Package odometer integrates wheel rotation into a continuously updated (x, y, heading) pose.
//
// Headings are in degrees in [0, 360), growing clockwise, with 0 pointing along +y. Positions
// use the unit of the wheel radius and track.
package odometer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/utils"
)

// DefaultPeriod is how often a started odometer integrates the wheel tachos.
const DefaultPeriod = 10 * time.Millisecond

// Pose is a position and heading.
type Pose struct {
	X     float64
	Y     float64
	Theta float64
}

func (p Pose) String() string {
	return fmt.Sprintf("(x=%.2f, y=%.2f, theta=%.2f)", p.X, p.Y, p.Theta)
}

// A PoseEstimate is a shared pose that another subsystem keeps up to date. Every read returns a
// consistent triple and every write replaces the whole triple.
type PoseEstimate interface {
	Pose(ctx context.Context) (Pose, error)
	SetPose(ctx context.Context, pose Pose) error
}

// Error reports a misconfigured odometer.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "odometer: " + e.Msg
}

func newError(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Config describes the drive the odometer follows.
type Config struct {
	WheelRadius float64
	Track       float64
	// Period between integrations once started. Zero selects DefaultPeriod.
	Period time.Duration
	// Clock drives the integration ticker. Nil selects the wall clock.
	Clock clock.Clock
}

var _ PoseEstimate = (*Odometer)(nil)

// Odometer tracks the pose of a differential drive robot from its wheel tachos.
type Odometer struct {
	left, right motor.Motor
	radius      float64
	track       float64
	period      time.Duration
	clock       clock.Clock
	logger      logging.Logger

	// updateMu serializes integrations so tacho baselines advance in order.
	updateMu  sync.Mutex
	lastLeft  float64
	lastRight float64

	mu   sync.RWMutex
	pose Pose

	workersMu sync.Mutex
	workers   *utils.StoppableWorkers
}

// New returns an odometer at the zero pose, counting wheel motion from zero tacho counts. Call
// SetPose to count from the current tachos instead. It does not integrate until Start or Update
// is called.
func New(left, right motor.Motor, cfg Config, logger logging.Logger) (*Odometer, error) {
	if left == nil || right == nil {
		return nil, newError("both wheel motors are required")
	}
	if cfg.WheelRadius <= 0 {
		return nil, newError("wheel radius must be positive, got %.3f", cfg.WheelRadius)
	}
	if cfg.Track <= 0 {
		return nil, newError("track must be positive, got %.3f", cfg.Track)
	}
	if cfg.Period < 0 {
		return nil, newError("period cannot be negative, got %s", cfg.Period)
	}
	o := &Odometer{
		left:   left,
		right:  right,
		radius: cfg.WheelRadius,
		track:  cfg.Track,
		period: cfg.Period,
		clock:  cfg.Clock,
		logger: logger,
	}
	if o.period == 0 {
		o.period = DefaultPeriod
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o, nil
}

// Pose returns a consistent copy of the current pose.
func (o *Odometer) Pose(ctx context.Context) (Pose, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pose, nil
}

// SetPose overwrites the pose. Wheel motion before the call is not applied to the new pose.
func (o *Odometer) SetPose(ctx context.Context, pose Pose) error {
	o.updateMu.Lock()
	defer o.updateMu.Unlock()

	leftTacho, rightTacho, err := o.readTachos(ctx)
	if err != nil {
		return err
	}
	o.lastLeft, o.lastRight = leftTacho, rightTacho

	pose.Theta = utils.ModAngDeg(pose.Theta)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pose = pose
	o.logger.Debugf("pose set to %s", pose)
	return nil
}

func (o *Odometer) readTachos(ctx context.Context) (float64, float64, error) {
	_, tachos, err := utils.GetInParallel(ctx, []utils.FloatFunc{o.left.TachoCount, o.right.TachoCount})
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading wheel tachos")
	}
	return tachos[0], tachos[1], nil
}

// Update reads both tachos and folds the wheel motion since the previous Update or SetPose into
// the pose.
func (o *Odometer) Update(ctx context.Context) error {
	o.updateMu.Lock()
	defer o.updateMu.Unlock()

	leftTacho, rightTacho, err := o.readTachos(ctx)
	if err != nil {
		return err
	}
	dLeft := o.arc(leftTacho - o.lastLeft)
	dRight := o.arc(rightTacho - o.lastRight)
	o.lastLeft, o.lastRight = leftTacho, rightTacho
	if dLeft == 0 && dRight == 0 {
		return nil
	}

	distance := (dLeft + dRight) / 2
	dTheta := utils.RadToDeg((dLeft - dRight) / o.track)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pose.Theta = utils.ModAngDeg(o.pose.Theta + dTheta)
	heading := utils.DegToRad(o.pose.Theta)
	o.pose.X += distance * math.Sin(heading)
	o.pose.Y += distance * math.Cos(heading)
	return nil
}

// arc converts wheel degrees to rolled distance.
func (o *Odometer) arc(wheelDegs float64) float64 {
	return math.Pi * o.radius * wheelDegs / 180
}

// Start integrates in the background every period until Close. Calling Start twice is a no-op.
func (o *Odometer) Start() {
	o.workersMu.Lock()
	defer o.workersMu.Unlock()
	if o.workers != nil {
		return
	}
	o.workers = utils.NewStoppableWorkers()
	o.workers.AddTicker(o.clock, o.period, o.Update, func(err error) {
		o.logger.Warnw("odometer update failed", "error", err)
	})
}

// Close stops background integration.
func (o *Odometer) Close() error {
	o.workersMu.Lock()
	defer o.workersMu.Unlock()
	if o.workers != nil {
		o.workers.Stop()
		o.workers = nil
	}
	return nil
}

// Current integrates the latest wheel motion and returns the resulting pose.
func (o *Odometer) Current(ctx context.Context) (Pose, error) {
	if err := o.Update(ctx); err != nil {
		return Pose{}, err
	}
	return o.Pose(ctx)
}

// Synced is a PoseEstimate whose reads integrate the latest wheel motion first. It suits callers
// that must not see a pose older than the last wheel command, such as a simulated robot whose
// time runs faster than the background ticker.
type Synced struct {
	*Odometer
}

// Pose returns the pose after integrating the latest wheel motion.
func (s Synced) Pose(ctx context.Context) (Pose, error) {
	return s.Current(ctx)
}
