// Package config reads the localizer's JSON configuration file.
package config

import (
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/localization"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/motor/ev3dev"
	"go.viam.com/localizer/sensor/ultrasonic"
	"go.viam.com/localizer/sim"
)

// Robot geometry defaults, in centimeters.
const (
	DefaultWheelRadiusCm = 2.1
	DefaultTrackCm       = 15.0
)

// Config describes the robot, its localization tuning and the simulated arena.
type Config struct {
	ConfigFilePath string `json:"-"`

	Log          LogConfig           `json:"log"`
	Robot        RobotConfig         `json:"robot"`
	Localization localization.Config `json:"localization"`
	Ultrasonic   ultrasonic.Config   `json:"ultrasonic"`
	Sim          sim.Config          `json:"sim"`
	Square       motor.SquarePath    `json:"square"`
}

// LogConfig sets the log level and an optional rotated log file.
type LogConfig struct {
	Level string              `json:"level"`
	File  *logging.FileConfig `json:"file,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *LogConfig) Validate(path string) error {
	if _, err := logging.LevelFromString(cfg.Level); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if cfg.File != nil && cfg.File.Path == "" {
		return goutils.NewConfigValidationFieldRequiredError(path+".file", "path")
	}
	return nil
}

// RobotConfig describes the drive.
type RobotConfig struct {
	WheelRadiusCm float64 `json:"wheel_radius_cm"`
	TrackCm       float64 `json:"track_cm"`
	// OdometerPeriod is how often the odometer integrates wheel motion in the background.
	OdometerPeriod time.Duration `json:"odometer_period"`
	LeftMotor      ev3dev.Config `json:"left_motor"`
	RightMotor     ev3dev.Config `json:"right_motor"`
}

// Validate ensures all parts of the config are valid. Motors are checked by ValidateHardware.
func (cfg *RobotConfig) Validate(path string) error {
	if cfg.WheelRadiusCm < 0 || cfg.TrackCm < 0 {
		return goutils.NewConfigValidationError(path, errors.New("\"wheel_radius_cm\" and \"track_cm\" cannot be negative"))
	}
	if cfg.OdometerPeriod < 0 {
		return goutils.NewConfigValidationError(path, errors.New("\"odometer_period\" cannot be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	if err := cfg.Log.Validate("log"); err != nil {
		return err
	}
	if err := cfg.Robot.Validate("robot"); err != nil {
		return err
	}
	if err := cfg.Localization.Validate("localization"); err != nil {
		return err
	}
	return cfg.Sim.Validate("sim")
}

// ValidateHardware checks the sections only needed to drive the real robot.
func (cfg *Config) ValidateHardware() error {
	if err := cfg.Robot.LeftMotor.Validate("robot.left_motor"); err != nil {
		return err
	}
	if err := cfg.Robot.RightMotor.Validate("robot.right_motor"); err != nil {
		return err
	}
	return cfg.Ultrasonic.Validate("ultrasonic")
}

func (cfg *Config) applyDefaults() {
	if cfg.Robot.WheelRadiusCm == 0 {
		cfg.Robot.WheelRadiusCm = DefaultWheelRadiusCm
	}
	if cfg.Robot.TrackCm == 0 {
		cfg.Robot.TrackCm = DefaultTrackCm
	}
	defaultPath := motor.DefaultSquarePath()
	if cfg.Square.SideCm == 0 {
		cfg.Square.SideCm = defaultPath.SideCm
	}
	if cfg.Square.Sides == 0 {
		cfg.Square.Sides = defaultPath.Sides
	}
	if cfg.Square.ForwardSpeed == 0 {
		cfg.Square.ForwardSpeed = defaultPath.ForwardSpeed
	}
	if cfg.Square.TurnSpeed == 0 {
		cfg.Square.TurnSpeed = defaultPath.TurnSpeed
	}
}

// Default returns the config used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
