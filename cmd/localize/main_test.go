package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"localize"}, args...))
	return out.String(), err
}

func TestRunSimulated(t *testing.T) {
	out, err := runApp(t, "run", "--sim", "--variant", "rising", "--trace")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "rising")
	test.That(t, out, test.ShouldContainSubstring, "angle to turn")
	test.That(t, out, test.ShouldContainSubstring, "true heading:")

	_, err = runApp(t, "run", "--sim", "--variant", "sideways")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.json")
	logPath := filepath.Join(t.TempDir(), "localize.log")
	contents := `{
		"log": {"level": "debug", "file": {"path": "` + logPath + `"}},
		"sim": {"start_heading_deg": 90}
	}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "--config", path, "run", "--sim")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "falling")

	logged, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logged), test.ShouldContainSubstring, "beep")
}

func TestRangeSimulated(t *testing.T) {
	out, err := runApp(t, "range", "--sim", "--samples", "3")
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	test.That(t, lines, test.ShouldHaveLength, 3)
	for _, line := range lines {
		test.That(t, line, test.ShouldEndWith, " cm")
	}

	_, err = runApp(t, "range", "--sim", "--samples", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSquareSimulated(t *testing.T) {
	out, err := runApp(t, "square", "--sim")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "odometer pose:")
	test.That(t, out, test.ShouldContainSubstring, "true pose:")
}
