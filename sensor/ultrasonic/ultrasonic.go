// Package ultrasonic implements an HC-SR04 style ultrasonic range sensor over periph GPIO.
package ultrasonic

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/sensor"
)

const (
	speedOfSoundMPS  = 343.0
	triggerPulse     = 10 * time.Microsecond
	defaultTimeoutMs = 1000
	// DefaultMaxRangeM is what the sensor reports when nothing echoes back in range.
	DefaultMaxRangeM = 2.55
)

// Config is used for converting config attributes.
type Config struct {
	TriggerPin string  `json:"trigger_pin"`
	EchoPin    string  `json:"echo_pin"`
	TimeoutMs  uint    `json:"timeout_ms,omitempty"`
	MaxRangeM  float64 `json:"max_range_m,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.TriggerPin == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "trigger_pin")
	}
	if cfg.EchoPin == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "echo_pin")
	}
	if cfg.MaxRangeM < 0 {
		return goutils.NewConfigValidationError(path, errors.New("max_range_m cannot be negative"))
	}
	return nil
}

// pin is the part of gpio.PinIO the sensor drives.
type pin interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
}

var _ sensor.RangeSensor = (*Sensor)(nil)

// Sensor is an ultrasonic range sensor. It reports distances in meters.
type Sensor struct {
	mu        sync.Mutex
	name      string
	trigger   pin
	echo      pin
	timeout   time.Duration
	maxRangeM float64
	logger    logging.Logger
}

// NewSensor initializes the periph host drivers and claims the configured pins. Pin names are
// whatever gpioreg.ByName accepts, e.g. "GPIO23" on a Raspberry Pi.
func NewSensor(ctx context.Context, name string, cfg *Config, logger logging.Logger) (*Sensor, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "ultrasonic: cannot initialize periph host drivers")
	}
	trigger := gpioreg.ByName(cfg.TriggerPin)
	if trigger == nil {
		return nil, errors.Errorf("ultrasonic: no gpio trigger pin named %q", cfg.TriggerPin)
	}
	echo := gpioreg.ByName(cfg.EchoPin)
	if echo == nil {
		return nil, errors.Errorf("ultrasonic: no gpio echo pin named %q", cfg.EchoPin)
	}
	return newSensor(name, trigger, echo, cfg, logger)
}

func newSensor(name string, trigger, echo pin, cfg *Config, logger logging.Logger) (*Sensor, error) {
	s := &Sensor{
		name:      name,
		trigger:   trigger,
		echo:      echo,
		timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
		maxRangeM: cfg.MaxRangeM,
		logger:    logger,
	}
	if s.timeout == 0 {
		s.timeout = defaultTimeoutMs * time.Millisecond
	}
	if s.maxRangeM == 0 {
		s.maxRangeM = DefaultMaxRangeM
	}
	if err := s.trigger.Out(gpio.Low); err != nil {
		return nil, s.namedError(errors.Wrap(err, "cannot set trigger pin to low"))
	}
	logger.Debugf("ultrasonic %s ready, timeout %s, max range %.2fm", name, s.timeout, s.maxRangeM)
	return s, nil
}

func (s *Sensor) namedError(err error) error {
	return errors.Wrapf(err, "error in ultrasonic sensor with name %s", s.name)
}

// FetchSample triggers one ping and returns the distance to the nearest echo in meters. Echoes
// beyond the maximum range are reported as the maximum range.
func (s *Sensor) FetchSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// clear stale edges before arming on the rising edge of the echo
	if err := s.echo.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return 0, s.namedError(errors.Wrap(err, "cannot arm echo pin"))
	}

	// a 10µs high pulse on the trigger pin starts a ping
	if err := s.trigger.Out(gpio.High); err != nil {
		return 0, s.namedError(errors.Wrap(err, "cannot set trigger pin to high"))
	}
	goutils.SelectContextOrWait(ctx, triggerPulse)
	if err := s.trigger.Out(gpio.Low); err != nil {
		return 0, s.namedError(errors.Wrap(err, "cannot set trigger pin to low"))
	}

	if !s.echo.WaitForEdge(s.timeout) {
		return 0, s.namedError(errors.New("timed out waiting for signal that sound pulse was emitted"))
	}
	start := time.Now()

	if err := s.echo.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return 0, s.namedError(errors.Wrap(err, "cannot arm echo pin"))
	}
	if !s.echo.WaitForEdge(s.timeout) {
		// the echo line stays high when nothing reflects the pulse
		return s.maxRangeM, nil
	}
	return s.clamp(timeOfFlightToMeters(time.Since(start))), nil
}

func (s *Sensor) clamp(meters float64) float64 {
	if meters > s.maxRangeM {
		return s.maxRangeM
	}
	return meters
}

// timeOfFlightToMeters converts a round trip time into the one way distance.
func timeOfFlightToMeters(tof time.Duration) float64 {
	return tof.Seconds() * speedOfSoundMPS / 2.0
}
