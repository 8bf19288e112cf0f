package sim

import (
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Defaults describe a robot a tile's half width away from both corner walls.
const (
	DefaultStartCm    = 15.0
	DefaultArenaCm    = 300.0
	DefaultMaxRangeCm = 255.0
	DefaultStep       = 10 * time.Millisecond
)

// Wall is a straight wall between two points, in centimeters.
type Wall struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Config describes a simulated arena. The arena always has walls along x=0 and y=0 running
// ArenaCm from the corner at the origin.
type Config struct {
	StartXCm        float64 `json:"start_x_cm"`
	StartYCm        float64 `json:"start_y_cm"`
	StartHeadingDeg float64 `json:"start_heading_deg"`
	ArenaCm         float64 `json:"arena_cm"`
	MaxRangeCm      float64 `json:"max_range_cm"`
	// Step is the virtual time that passes per raw range reading.
	Step time.Duration `json:"step"`
	// SpikeEvery makes every n-th raw reading a spurious max range echo. Zero disables spikes.
	SpikeEvery int    `json:"spike_every"`
	Walls      []Wall `json:"walls"`
}

// Validate returns an error if the arena cannot be simulated.
func (cfg *Config) Validate(path string) error {
	if cfg.StartXCm < 0 || cfg.StartYCm < 0 {
		return goutils.NewConfigValidationError(path, errors.New("the robot must start inside the arena"))
	}
	if cfg.ArenaCm < 0 || cfg.MaxRangeCm < 0 {
		return goutils.NewConfigValidationError(path, errors.New("\"arena_cm\" and \"max_range_cm\" cannot be negative"))
	}
	if cfg.Step < 0 {
		return goutils.NewConfigValidationError(path, errors.New("\"step\" cannot be negative"))
	}
	if cfg.SpikeEvery < 0 {
		return goutils.NewConfigValidationError(path, errors.New("\"spike_every\" cannot be negative"))
	}
	return nil
}

func (cfg Config) withDefaults() Config {
	if cfg.StartXCm == 0 {
		cfg.StartXCm = DefaultStartCm
	}
	if cfg.StartYCm == 0 {
		cfg.StartYCm = DefaultStartCm
	}
	if cfg.ArenaCm == 0 {
		cfg.ArenaCm = DefaultArenaCm
	}
	if cfg.MaxRangeCm == 0 {
		cfg.MaxRangeCm = DefaultMaxRangeCm
	}
	if cfg.Step == 0 {
		cfg.Step = DefaultStep
	}
	return cfg
}
