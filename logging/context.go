package logging

import "context"

type contextKey int

const (
	runKey contextKey = iota
	debugKey
)

// WithRun tags ctx with a run identifier. Every C* line logged with the returned context carries
// it as the "run" field.
func WithRun(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey, id)
}

// RunFromContext returns the run identifier attached by WithRun.
func RunFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runKey).(string)
	return id, ok && id != ""
}

// EnableDebugMode returns a context for which CDebug* lines are emitted whatever the logger's
// level is. Used to trace a single run without turning on debug logs everywhere.
func EnableDebugMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, debugKey, true)
}

// IsDebugMode returns whether the input context has debug logging enabled.
func IsDebugMode(ctx context.Context) bool {
	on, _ := ctx.Value(debugKey).(bool)
	return on
}
