// Package robot assembles a localizing robot, real or simulated, from a config.
package robot

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localizer/config"
	"go.viam.com/localizer/localization"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/motor/ev3dev"
	"go.viam.com/localizer/odometer"
	"go.viam.com/localizer/sensor"
	"go.viam.com/localizer/sensor/ultrasonic"
	"go.viam.com/localizer/sim"
	"go.viam.com/localizer/tone"
)

// Robot is the set of parts a localization run drives.
type Robot struct {
	Drive     *motor.Drive
	Odometer  *odometer.Odometer
	Sampler   *sensor.MedianFilter
	Localizer *localization.Localizer
	// World is the simulated arena, nil on hardware.
	World *sim.World

	logger logging.Logger
}

// NewSimulated builds a robot standing in the simulated arena described by cfg.Sim.
func NewSimulated(ctx context.Context, cfg *config.Config, emitter tone.Emitter, logger logging.Logger) (*Robot, error) {
	world, err := sim.NewWorld(cfg.Sim, cfg.Robot.WheelRadiusCm, cfg.Robot.TrackCm, logger.Sublogger("sim"))
	if err != nil {
		return nil, err
	}
	// Simulated time outruns any ticker, so pose reads integrate the wheels themselves.
	r, err := newRobot(ctx, cfg, world.Left(), world.Right(), world, emitter, true, logger)
	if err != nil {
		return nil, err
	}
	r.World = world
	return r, nil
}

// NewHardware builds a robot on ev3dev tacho motors and a GPIO ultrasonic sensor.
func NewHardware(ctx context.Context, cfg *config.Config, emitter tone.Emitter, logger logging.Logger) (*Robot, error) {
	if err := cfg.ValidateHardware(); err != nil {
		return nil, err
	}
	left, err := ev3dev.NewMotor("left", cfg.Robot.LeftMotor, logger.Sublogger("left"))
	if err != nil {
		return nil, errors.Wrap(err, "left motor")
	}
	right, err := ev3dev.NewMotor("right", cfg.Robot.RightMotor, logger.Sublogger("right"))
	if err != nil {
		return nil, errors.Wrap(err, "right motor")
	}
	us, err := ultrasonic.NewSensor(ctx, "ultrasonic", &cfg.Ultrasonic, logger.Sublogger("ultrasonic"))
	if err != nil {
		return nil, err
	}
	return newRobot(ctx, cfg, left, right, us, emitter, false, logger)
}

func newRobot(
	ctx context.Context,
	cfg *config.Config,
	left, right motor.Motor,
	rangeSensor sensor.RangeSensor,
	emitter tone.Emitter,
	syncedPose bool,
	logger logging.Logger,
) (*Robot, error) {
	drive, err := motor.NewDrive(left, right, cfg.Robot.WheelRadiusCm, cfg.Robot.TrackCm, logger.Sublogger("drive"))
	if err != nil {
		return nil, err
	}
	odo, err := odometer.New(left, right, odometer.Config{
		WheelRadius: cfg.Robot.WheelRadiusCm,
		Track:       cfg.Robot.TrackCm,
		Period:      cfg.Robot.OdometerPeriod,
	}, logger.Sublogger("odometer"))
	if err != nil {
		return nil, err
	}
	if err := odo.SetPose(ctx, odometer.Pose{}); err != nil {
		return nil, err
	}
	sampler, err := sensor.NewMedianFilter(rangeSensor, cfg.Localization.WindowSize)
	if err != nil {
		return nil, err
	}

	var pose odometer.PoseEstimate = odo
	if syncedPose {
		pose = odometer.Synced{Odometer: odo}
	} else {
		odo.Start()
	}
	l, err := localization.New(drive, sampler, pose, emitter, cfg.Localization, logger.Sublogger("localization"))
	if err != nil {
		return nil, multierr.Combine(err, odo.Close())
	}
	return &Robot{Drive: drive, Odometer: odo, Sampler: sampler, Localizer: l, logger: logger}, nil
}

// Close stops the wheels and the odometer.
func (r *Robot) Close(ctx context.Context) error {
	return multierr.Combine(r.Drive.Stop(ctx), r.Odometer.Close())
}
