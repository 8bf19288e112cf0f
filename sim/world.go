// Package sim simulates a differential drive robot with an ultrasonic range sensor standing in the
// corner of two walls. Time is virtual: it advances as the sensor is read and as blocking wheel
// rotations complete, so a simulated localization run finishes as fast as the CPU allows.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/sensor"
	"go.viam.com/localizer/utils"
)

type segment struct {
	a, b r2.Point
}

var _ sensor.RangeSensor = (*World)(nil)

// World is the simulated arena and robot. It is the robot's range sensor; its wheels are Left and
// Right.
type World struct {
	cfg         Config
	wheelRadius float64
	track       float64
	walls       []segment
	logger      logging.Logger

	mu      sync.Mutex
	pos     r2.Point
	heading float64
	now     time.Duration
	samples int
	left    *Wheel
	right   *Wheel
}

// NewWorld returns a world whose robot stands at the configured start pose with idle wheels.
// Wheel radius and track are in centimeters.
func NewWorld(cfg Config, wheelRadius, track float64, logger logging.Logger) (*World, error) {
	if err := cfg.Validate("sim"); err != nil {
		return nil, err
	}
	if wheelRadius <= 0 || track <= 0 {
		return nil, errors.Errorf("simulated robot needs a positive wheel radius and track, got %.2f and %.2f",
			wheelRadius, track)
	}
	cfg = cfg.withDefaults()
	w := &World{
		cfg:         cfg,
		wheelRadius: wheelRadius,
		track:       track,
		logger:      logger,
		pos:         r2.Point{X: cfg.StartXCm, Y: cfg.StartYCm},
		heading:     utils.ModAngDeg(cfg.StartHeadingDeg),
		walls: append([]segment{
			{r2.Point{}, r2.Point{X: 0, Y: cfg.ArenaCm}},
			{r2.Point{}, r2.Point{X: cfg.ArenaCm, Y: 0}},
		}, lo.Map(cfg.Walls, func(wall Wall, _ int) segment {
			return segment{r2.Point{X: wall.X1, Y: wall.Y1}, r2.Point{X: wall.X2, Y: wall.Y2}}
		})...),
	}
	w.left = newWheel("left", w)
	w.right = newWheel("right", w)
	return w, nil
}

// Left returns the left wheel.
func (w *World) Left() *Wheel {
	return w.left
}

// Right returns the right wheel.
func (w *World) Right() *Wheel {
	return w.right
}

// Heading returns the true heading of the robot in degrees, clockwise from +y.
func (w *World) Heading() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.heading
}

// Position returns the true position of the robot.
func (w *World) Position() r2.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Now returns the virtual time elapsed since the world was made.
func (w *World) Now() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// FetchSample advances the world by one step and returns the distance, in meters, to the wall the
// robot faces. Open space reads as the sensor's maximum range.
func (w *World) FetchSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stepLocked(w.cfg.Step)
	w.samples++
	if w.cfg.SpikeEvery > 0 && w.samples%w.cfg.SpikeEvery == 0 {
		return w.cfg.MaxRangeCm / 100, nil
	}
	return w.rangeLocked() / 100, nil
}

// Range returns the true distance, in centimeters, to the wall the robot faces, clamped to the
// sensor's maximum range.
func (w *World) Range() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rangeLocked()
}

func (w *World) rangeLocked() float64 {
	rad := utils.DegToRad(w.heading)
	dir := r2.Point{X: math.Sin(rad), Y: math.Cos(rad)}
	nearest := w.cfg.MaxRangeCm
	for _, wall := range w.walls {
		if d, ok := castRay(w.pos, dir, wall); ok && d < nearest {
			nearest = d
		}
	}
	return nearest
}

// castRay returns the distance along the unit vector dir from origin to the wall, if the ray
// hits it.
func castRay(origin, dir r2.Point, wall segment) (float64, bool) {
	edge := wall.b.Sub(wall.a)
	denom := dir.Cross(edge)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	toWall := wall.a.Sub(origin)
	t := toWall.Cross(edge) / denom
	u := toWall.Cross(dir) / denom
	if t < 0 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// stepLocked moves both wheels for dt and the robot with them.
func (w *World) stepLocked(dt time.Duration) {
	w.now += dt
	dLeft := w.arc(w.left.advanceLocked(dt))
	dRight := w.arc(w.right.advanceLocked(dt))
	if dLeft == 0 && dRight == 0 {
		return
	}
	w.heading = utils.ModAngDeg(w.heading + utils.RadToDeg((dLeft-dRight)/w.track))
	distance := (dLeft + dRight) / 2
	rad := utils.DegToRad(w.heading)
	w.pos = w.pos.Add(r2.Point{X: math.Sin(rad), Y: math.Cos(rad)}.Mul(distance))
}

func (w *World) arc(wheelDegs float64) float64 {
	return math.Pi * w.wheelRadius * wheelDegs / 180
}
