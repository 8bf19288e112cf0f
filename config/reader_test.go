package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"go.viam.com/test"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/motor"
)

const fullConfig = `{
	"log": {"level": "debug", "file": {"path": "${LOCALIZER_LOG_DIR}/localizer.log", "max_backups": 2}},
	"robot": {
		"wheel_radius_cm": 2.13,
		"track_cm": 15.6,
		"odometer_period": "20ms",
		"left_motor": {"port": "outA"},
		"right_motor": {"port": "outD", "inverted": true}
	},
	"localization": {
		"threshold_cm": 30,
		"margin_cm": 3,
		"window_size": 7,
		"phase_timeout": "45s"
	},
	"ultrasonic": {"trigger_pin": "GPIO23", "echo_pin": "GPIO24", "timeout_ms": 50},
	"sim": {"start_heading_deg": 42, "spike_every": 9, "step": "5ms"},
	"square": {"sides": 3}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localizer.json")
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

func TestRead(t *testing.T) {
	t.Setenv("LOCALIZER_LOG_DIR", "/var/log/robot")
	logger := logging.NewTestLogger(t)
	path := writeConfig(t, fullConfig)

	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)

	test.That(t, cfg.Log.Level, test.ShouldEqual, "debug")
	test.That(t, cfg.Log.File, test.ShouldNotBeNil)
	test.That(t, cfg.Log.File.Path, test.ShouldEqual, "/var/log/robot/localizer.log")
	test.That(t, cfg.Log.File.MaxBackups, test.ShouldEqual, 2)

	test.That(t, cfg.Robot.WheelRadiusCm, test.ShouldEqual, 2.13)
	test.That(t, cfg.Robot.TrackCm, test.ShouldEqual, 15.6)
	test.That(t, cfg.Robot.OdometerPeriod, test.ShouldEqual, 20*time.Millisecond)
	test.That(t, cfg.Robot.LeftMotor.Port, test.ShouldEqual, "outA")
	test.That(t, cfg.Robot.RightMotor.Inverted, test.ShouldBeTrue)

	test.That(t, cfg.Localization.ThresholdCm, test.ShouldResemble, lo.ToPtr(30.0))
	test.That(t, cfg.Localization.MarginCm, test.ShouldResemble, lo.ToPtr(3.0))
	test.That(t, cfg.Localization.TurnaroundDeg, test.ShouldBeNil)
	test.That(t, cfg.Localization.WindowSize, test.ShouldEqual, 7)
	test.That(t, cfg.Localization.PhaseTimeout, test.ShouldEqual, 45*time.Second)

	test.That(t, cfg.Ultrasonic.TriggerPin, test.ShouldEqual, "GPIO23")
	test.That(t, cfg.Ultrasonic.TimeoutMs, test.ShouldEqual, uint(50))

	test.That(t, cfg.Sim.StartHeadingDeg, test.ShouldEqual, 42.0)
	test.That(t, cfg.Sim.SpikeEvery, test.ShouldEqual, 9)
	test.That(t, cfg.Sim.Step, test.ShouldEqual, 5*time.Millisecond)

	test.That(t, cfg.Square.Sides, test.ShouldEqual, 3)
	test.That(t, cfg.Square.SideCm, test.ShouldAlmostEqual, motor.DefaultSquarePath().SideCm)

	test.That(t, cfg.ValidateHardware(), test.ShouldBeNil)
}

func TestReadDefaults(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	cfg, err := FromReader(context.Background(), "inline", strings.NewReader(`{"unknown": 1}`), logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.Robot.WheelRadiusCm, test.ShouldEqual, DefaultWheelRadiusCm)
	test.That(t, cfg.Robot.TrackCm, test.ShouldEqual, DefaultTrackCm)
	test.That(t, cfg.Square, test.ShouldResemble, motor.DefaultSquarePath())
	test.That(t, observed.FilterMessage("ignoring unknown config keys").Len(), test.ShouldEqual, 1)

	test.That(t, Default(), test.ShouldResemble, &Config{
		Robot:  RobotConfig{WheelRadiusCm: DefaultWheelRadiusCm, TrackCm: DefaultTrackCm},
		Square: motor.DefaultSquarePath(),
	})

	err = cfg.ValidateHardware()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "robot.left_motor")
}

func TestReadExplicitZeros(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "inline", strings.NewReader(`{"localization": {
		"margin_cm": 0, "turnaround_deg": 0, "rising_offset_deg": 0,
		"disambiguation_deg": 0, "ascending_offset_deg": 0
	}}`), logger)
	test.That(t, err, test.ShouldBeNil)

	loc := cfg.Localization
	for _, field := range []*float64{
		loc.MarginCm, loc.TurnaroundDeg, loc.RisingOffsetDeg, loc.DisambiguationDeg, loc.AscendingOffsetDeg,
	} {
		test.That(t, field, test.ShouldResemble, lo.ToPtr(0.0))
	}
	test.That(t, loc.ThresholdCm, test.ShouldBeNil)
	test.That(t, loc.DescendingOffsetDeg, test.ShouldBeNil)

	_, err = FromReader(context.Background(), "inline",
		strings.NewReader(`{"localization": {"margin_cm": -0.5}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "margin_cm")
}

func TestReadErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	_, err := Read(ctx, filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	for _, tc := range []struct {
		name    string
		content string
		substr  string
	}{
		{"not json", `{"log": `, "cannot parse config"},
		{"wrong type", `{"robot": {"track_cm": "wide"}}`, "cannot decode config"},
		{"bad duration", `{"localization": {"phase_timeout": "soon"}}`, "cannot decode config"},
		{"bad level", `{"log": {"level": "chatty"}}`, "log"},
		{"file without path", `{"log": {"file": {"max_backups": 1}}}`, "path"},
		{"negative radius", `{"robot": {"wheel_radius_cm": -1}}`, "robot"},
		{"even window", `{"localization": {"window_size": 4}}`, "window_size"},
		{"bad arena", `{"sim": {"spike_every": -2}}`, "sim"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(ctx, writeConfig(t, tc.content), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.substr)
		})
	}
}
