package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestLevelFiltering(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(WARN)

	logger.Debug("dropped")
	logger.Infof("dropped %d", 1)
	logger.Warnw("kept", "phase", "seek_wall_1")
	logger.Errorf("kept %s", "too")

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].Message, test.ShouldEqual, "kept")
	test.That(t, entries[0].ContextMap()["phase"], test.ShouldEqual, "seek_wall_1")
	test.That(t, entries[1].Message, test.ShouldEqual, "kept too")
}

func TestContextDebugMode(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(INFO)

	logger.CDebugf(context.Background(), "quiet")
	test.That(t, observed.Len(), test.ShouldEqual, 0)

	ctx := EnableDebugMode(context.Background())
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	test.That(t, IsDebugMode(context.Background()), test.ShouldBeFalse)
	logger.CDebugw(ctx, "loud", "distance", 21.5)
	logger.Debugw("still quiet")
	test.That(t, observed.Len(), test.ShouldEqual, 1)
	test.That(t, observed.All()[0].Message, test.ShouldEqual, "loud")
}

func TestRunField(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)

	_, ok := RunFromContext(context.Background())
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = RunFromContext(WithRun(context.Background(), ""))
	test.That(t, ok, test.ShouldBeFalse)

	ctx := WithRun(context.Background(), "run-1")
	run, ok := RunFromContext(ctx)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, run, test.ShouldEqual, "run-1")

	logger.CInfow(ctx, "started", "variant", "falling")
	logger.CWarnw(ctx, "aborted")
	logger.CInfow(context.Background(), "untagged")
	logger.Infow("unpaired", "key")

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 4)
	test.That(t, entries[0].ContextMap(), test.ShouldResemble, map[string]interface{}{
		"run": "run-1", "variant": "falling",
	})
	test.That(t, entries[1].ContextMap()["run"], test.ShouldEqual, "run-1")
	test.That(t, entries[2].ContextMap(), test.ShouldBeEmpty)
	test.That(t, entries[3].ContextMap()["key"], test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("localizer")
	logger.AddAppender(NewWriterAppender(&buf))

	sub := logger.Sublogger("odometer")
	sub.Infow("pose reset", "theta", 0.0)

	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "localizer.odometer")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "pose reset")

	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields["theta"], test.ShouldEqual, 0.0)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"", INFO},
		{"Warn", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localizer.log")
	appender, closer := NewFileAppender(FileConfig{Path: path})

	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.Info("written to disk")
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "written to disk")
}
