// Package ev3dev drives LEGO tacho motors through the ev3dev tacho-motor sysfs class.
//
// Each motor is a directory of attribute files such as /sys/class/tacho-motor/motor0/position.
// Speeds and positions are in tacho counts, which are degrees for the EV3 motors.
package ev3dev

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
	"go.viam.com/localizer/operation"
)

// DefaultSysfsRoot is where ev3dev lists tacho motors.
const DefaultSysfsRoot = "/sys/class/tacho-motor"

const (
	defaultSpeed = 360
	pollInterval = 5 * time.Millisecond
)

// Config is used for converting motor config attributes.
type Config struct {
	// Port is the output port, either "outA" or the full address "ev3-ports:outA".
	Port       string `json:"port"`
	SysfsRoot  string `json:"sysfs_root,omitempty"`
	Inverted   bool   `json:"inverted,omitempty"`
	StopAction string `json:"stop_action,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Port == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "port")
	}
	switch cfg.StopAction {
	case "", "coast", "brake", "hold":
	default:
		return goutils.NewConfigValidationError(path,
			errors.Errorf("\"stop_action\" must be coast, brake or hold, got %q", cfg.StopAction))
	}
	return nil
}

var _ motor.Motor = (*Motor)(nil)

// Motor is one tacho motor.
type Motor struct {
	name   string
	dir    string
	logger logging.Logger
	opMgr  operation.SingleOperationManager

	mu    sync.Mutex
	speed float64
}

// NewMotor finds the motor on the configured port, applies its polarity and stop action and
// resets its tacho count to zero.
func NewMotor(name string, cfg Config, logger logging.Logger) (*Motor, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	root := cfg.SysfsRoot
	if root == "" {
		root = DefaultSysfsRoot
	}
	dir, err := findPort(root, cfg.Port)
	if err != nil {
		return nil, err
	}

	m := &Motor{name: name, dir: dir, logger: logger, speed: defaultSpeed}
	polarity := "normal"
	if cfg.Inverted {
		polarity = "inversed"
	}
	stopAction := cfg.StopAction
	if stopAction == "" {
		stopAction = "brake"
	}
	for _, attr := range [][2]string{{"command", "reset"}, {"polarity", polarity}, {"stop_action", stopAction}} {
		if err := m.write(attr[0], attr[1]); err != nil {
			return nil, err
		}
	}
	logger.Debugw("tacho motor ready", "name", name, "dir", dir, "polarity", polarity)
	return m, nil
}

func findPort(root, port string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", errors.Wrap(err, "listing tacho motors")
	}
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		address, err := readAttr(dir, "address")
		if err != nil {
			continue
		}
		if address == port || strings.HasSuffix(address, ":"+port) {
			return dir, nil
		}
	}
	return "", errors.Errorf("no tacho motor on port %q under %s", port, root)
}

func readAttr(dir, attr string) (string, error) {
	buf, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}

func (m *Motor) write(attr, value string) error {
	if err := os.WriteFile(filepath.Join(m.dir, attr), []byte(value), 0o644); err != nil {
		return errors.Wrapf(err, "motor %s: writing %s", m.name, attr)
	}
	return nil
}

func (m *Motor) read(attr string) (string, error) {
	value, err := readAttr(m.dir, attr)
	if err != nil {
		return "", errors.Wrapf(err, "motor %s: reading %s", m.name, attr)
	}
	return value, nil
}

func (m *Motor) speedSetpoint(sign float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strconv.Itoa(int(math.Round(sign * m.speed)))
}

// SetSpeed sets the speed used by later motions.
func (m *Motor) SetSpeed(ctx context.Context, degsPerSec float64) error {
	if math.Abs(degsPerSec) < 0.0001 {
		return motor.NewZeroSpeedError()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = math.Abs(degsPerSec)
	return nil
}

// Forward runs the motor forward until another command arrives.
func (m *Motor) Forward(ctx context.Context) error {
	return m.runForever(ctx, 1)
}

// Backward runs the motor backward until another command arrives.
func (m *Motor) Backward(ctx context.Context) error {
	return m.runForever(ctx, -1)
}

func (m *Motor) runForever(ctx context.Context, sign float64) error {
	m.opMgr.CancelRunning(ctx)
	if err := m.write("speed_sp", m.speedSetpoint(sign)); err != nil {
		return err
	}
	return m.write("command", "run-forever")
}

// Rotate turns the motor by degrees relative to where it is.
func (m *Motor) Rotate(ctx context.Context, degrees int, async bool) error {
	if async {
		m.opMgr.CancelRunning(ctx)
		return m.startRotation(degrees)
	}
	ctx, done := m.opMgr.New(ctx, "rotate")
	defer done()
	if err := m.startRotation(degrees); err != nil {
		return err
	}
	if err := m.waitStopped(ctx); err != nil {
		return multierr.Combine(err, m.write("command", "stop"))
	}
	return nil
}

func (m *Motor) startRotation(degrees int) error {
	if err := m.write("speed_sp", m.speedSetpoint(1)); err != nil {
		return err
	}
	if err := m.write("position_sp", strconv.Itoa(degrees)); err != nil {
		return err
	}
	return m.write("command", "run-to-rel-pos")
}

// Stop stops the motor with its stop action.
func (m *Motor) Stop(ctx context.Context, immediate bool) error {
	m.opMgr.CancelRunning(ctx)
	if err := m.write("command", "stop"); err != nil {
		return err
	}
	if immediate {
		return nil
	}
	return m.waitStopped(ctx)
}

// TachoCount returns the position in tacho counts.
func (m *Motor) TachoCount(ctx context.Context) (float64, error) {
	value, err := m.read("position")
	if err != nil {
		return 0, err
	}
	position, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "motor %s: bad position %q", m.name, value)
	}
	return float64(position), nil
}

// IsMoving returns whether the motor reports itself running.
func (m *Motor) IsMoving(ctx context.Context) (bool, error) {
	state, err := m.read("state")
	if err != nil {
		return false, err
	}
	for _, flag := range strings.Fields(state) {
		if flag == "running" {
			return true, nil
		}
	}
	return false, nil
}

func (m *Motor) waitStopped(ctx context.Context) error {
	for {
		moving, err := m.IsMoving(ctx)
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		if !goutils.SelectContextOrWait(ctx, pollInterval) {
			return ctx.Err()
		}
	}
}
