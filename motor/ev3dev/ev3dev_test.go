package ev3dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/localizer/logging"
)

// fakeSysfs lays out two tacho motors under a temporary directory and returns the root and the
// directory of the motor on outA.
func fakeSysfs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	for name, address := range map[string]string{"motor0": "ev3-ports:outB", "motor1": "ev3-ports:outA"} {
		dir := filepath.Join(root, name)
		test.That(t, os.MkdirAll(dir, 0o755), test.ShouldBeNil)
		for attr, value := range map[string]string{
			"address":  address + "\n",
			"position": "0\n",
			"state":    "\n",
		} {
			test.That(t, os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644), test.ShouldBeNil)
		}
	}
	return root, filepath.Join(root, "motor1")
}

func attr(t *testing.T, dir, name string) string {
	t.Helper()
	value, err := readAttr(dir, name)
	test.That(t, err, test.ShouldBeNil)
	return value
}

func setAttr(t *testing.T, dir, name, value string) {
	t.Helper()
	test.That(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644), test.ShouldBeNil)
}

func TestNewMotor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	root, dir := fakeSysfs(t)

	m, err := NewMotor("left", Config{Port: "outA", SysfsRoot: root, Inverted: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.dir, test.ShouldEqual, dir)
	test.That(t, attr(t, dir, "command"), test.ShouldEqual, "reset")
	test.That(t, attr(t, dir, "polarity"), test.ShouldEqual, "inversed")
	test.That(t, attr(t, dir, "stop_action"), test.ShouldEqual, "brake")

	_, err = NewMotor("left", Config{Port: "ev3-ports:outB", SysfsRoot: root, StopAction: "hold"}, logger)
	test.That(t, err, test.ShouldBeNil)

	_, err = NewMotor("left", Config{Port: "outD", SysfsRoot: root}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "outD")

	_, err = NewMotor("left", Config{SysfsRoot: root}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewMotor("left", Config{Port: "outA", SysfsRoot: root, StopAction: "float"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	root, dir := fakeSysfs(t)
	m, err := NewMotor("left", Config{Port: "outA", SysfsRoot: root}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.SetSpeed(ctx, -75), test.ShouldBeNil)

	test.That(t, m.Forward(ctx), test.ShouldBeNil)
	test.That(t, attr(t, dir, "speed_sp"), test.ShouldEqual, "75")
	test.That(t, attr(t, dir, "command"), test.ShouldEqual, "run-forever")

	test.That(t, m.Backward(ctx), test.ShouldBeNil)
	test.That(t, attr(t, dir, "speed_sp"), test.ShouldEqual, "-75")

	test.That(t, m.Rotate(ctx, -321, true), test.ShouldBeNil)
	test.That(t, attr(t, dir, "speed_sp"), test.ShouldEqual, "75")
	test.That(t, attr(t, dir, "position_sp"), test.ShouldEqual, "-321")
	test.That(t, attr(t, dir, "command"), test.ShouldEqual, "run-to-rel-pos")

	test.That(t, m.Stop(ctx, true), test.ShouldBeNil)
	test.That(t, attr(t, dir, "command"), test.ShouldEqual, "stop")

	setAttr(t, dir, "position", "-321\n")
	tacho, err := m.TachoCount(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tacho, test.ShouldEqual, -321.0)

	setAttr(t, dir, "state", "running ramping\n")
	moving, err := m.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeTrue)

	test.That(t, m.SetSpeed(ctx, 0), test.ShouldNotBeNil)
}

func TestRotateBlocksUntilStopped(t *testing.T) {
	ctx := context.Background()
	root, dir := fakeSysfs(t)
	m, err := NewMotor("right", Config{Port: "outA", SysfsRoot: root}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	setAttr(t, dir, "state", "running\n")
	done := make(chan error, 1)
	go func() {
		done <- m.Rotate(ctx, 90, false)
	}()

	select {
	case <-done:
		t.Fatal("rotation returned while the motor was running")
	case <-time.After(50 * time.Millisecond):
	}
	setAttr(t, dir, "state", "holding\n")
	test.That(t, <-done, test.ShouldBeNil)
	test.That(t, attr(t, dir, "position_sp"), test.ShouldEqual, "90")

	t.Run("cancelled rotation stops the motor", func(t *testing.T) {
		setAttr(t, dir, "state", "running\n")
		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		err := m.Rotate(cancelCtx, 90, false)
		test.That(t, err, test.ShouldEqual, context.Canceled)
		test.That(t, attr(t, dir, "command"), test.ShouldEqual, "stop")
	})
}
