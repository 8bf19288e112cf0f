package localization

import (
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/kinematics"
)

// Defaults for a robot in the corner of a 30 cm fixture.
const (
	DefaultThresholdCm       = 22.0
	DefaultMarginCm          = 2.0
	DefaultDisambiguationDeg = 100.0
	DefaultRisingOffsetDeg   = 180.0
	DefaultTurnaroundDeg     = 180.0
	DefaultRotationSpeed     = 75.0
)

// Config tunes a Localizer. Nil tunables and a zero RotationSpeed select the defaults; an
// explicit zero is kept.
type Config struct {
	// ThresholdCm is the filtered distance at or below which the robot faces a wall.
	ThresholdCm *float64 `json:"threshold_cm,omitempty"`
	// MarginCm widens the threshold into a hysteresis band: the robot faces open space at or
	// beyond ThresholdCm+MarginCm.
	MarginCm *float64 `json:"margin_cm,omitempty"`
	// WindowSize is the median window of the sampler built for the localizer.
	WindowSize int `json:"window_size"`
	// DisambiguationDeg splits |alpha-beta| into the two cases that need a turnaround.
	DisambiguationDeg *float64 `json:"disambiguation_deg,omitempty"`
	// RisingOffsetDeg is added to the rising edge correction.
	RisingOffsetDeg *float64 `json:"rising_offset_deg,omitempty"`
	// TurnaroundDeg is folded into the final turn when disambiguation calls for it.
	TurnaroundDeg *float64 `json:"turnaround_deg,omitempty"`
	// AscendingOffsetDeg and DescendingOffsetDeg describe the corner geometry.
	AscendingOffsetDeg  *float64 `json:"ascending_offset_deg,omitempty"`
	DescendingOffsetDeg *float64 `json:"descending_offset_deg,omitempty"`
	// RotationSpeed is the wheel speed, in degrees per second, of every spin and of the final turn.
	RotationSpeed float64 `json:"rotation_speed"`
	// PhaseTimeout bounds each of the four phases. Zero waits forever.
	PhaseTimeout time.Duration `json:"phase_timeout"`

	// Clock times phases. Nil selects the wall clock.
	Clock clock.Clock `json:"-"`
}

// params is a Config with every default resolved.
type params struct {
	ThresholdCm         float64
	MarginCm            float64
	DisambiguationDeg   float64
	RisingOffsetDeg     float64
	TurnaroundDeg       float64
	AscendingOffsetDeg  float64
	DescendingOffsetDeg float64
	RotationSpeed       float64
	PhaseTimeout        time.Duration
	Clock               clock.Clock
}

// Validate returns an error if the config cannot drive a localization run.
func (cfg *Config) Validate(path string) error {
	if cfg.ThresholdCm != nil && *cfg.ThresholdCm < 0 {
		return goutils.NewConfigValidationError(path, errNegative("threshold_cm"))
	}
	if cfg.MarginCm != nil && *cfg.MarginCm < 0 {
		return goutils.NewConfigValidationError(path, errNegative("margin_cm"))
	}
	if cfg.WindowSize < 0 || (cfg.WindowSize > 0 && cfg.WindowSize%2 == 0) {
		return goutils.NewConfigValidationError(path, errOddWindow(cfg.WindowSize))
	}
	if d := cfg.DisambiguationDeg; d != nil && (*d < 0 || *d > 360) {
		return goutils.NewConfigValidationError(path, errOutOfRange("disambiguation_deg", 0, 360))
	}
	if cfg.RotationSpeed < 0 {
		return goutils.NewConfigValidationError(path, errNegative("rotation_speed"))
	}
	if cfg.PhaseTimeout < 0 {
		return goutils.NewConfigValidationError(path, errNegative("phase_timeout"))
	}
	return nil
}

// withDefaults resolves cfg into the parameters a run uses.
func (cfg Config) withDefaults() params {
	geometry := kinematics.DefaultGeometry()
	p := params{
		ThresholdCm:         valueOr(cfg.ThresholdCm, DefaultThresholdCm),
		MarginCm:            valueOr(cfg.MarginCm, DefaultMarginCm),
		DisambiguationDeg:   valueOr(cfg.DisambiguationDeg, DefaultDisambiguationDeg),
		RisingOffsetDeg:     valueOr(cfg.RisingOffsetDeg, DefaultRisingOffsetDeg),
		TurnaroundDeg:       valueOr(cfg.TurnaroundDeg, DefaultTurnaroundDeg),
		AscendingOffsetDeg:  valueOr(cfg.AscendingOffsetDeg, geometry.AscendingOffset),
		DescendingOffsetDeg: valueOr(cfg.DescendingOffsetDeg, geometry.DescendingOffset),
		RotationSpeed:       cfg.RotationSpeed,
		PhaseTimeout:        cfg.PhaseTimeout,
		Clock:               cfg.Clock,
	}
	if p.RotationSpeed == 0 {
		p.RotationSpeed = DefaultRotationSpeed
	}
	if p.Clock == nil {
		p.Clock = clock.New()
	}
	return p
}

func (p params) geometry() kinematics.Geometry {
	return kinematics.Geometry{AscendingOffset: p.AscendingOffsetDeg, DescendingOffset: p.DescendingOffsetDeg}
}

func valueOr(field *float64, def float64) float64 {
	if field == nil {
		return def
	}
	return *field
}
