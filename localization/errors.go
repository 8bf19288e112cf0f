package localization

import (
	"github.com/pkg/errors"
)

// ErrPhaseTimeout is returned when a phase runs longer than the configured PhaseTimeout.
var ErrPhaseTimeout = errors.New("localization phase timed out")

func errNegative(field string) error {
	return errors.Errorf("%q cannot be negative", field)
}

func errOddWindow(size int) error {
	return errors.Errorf("\"window_size\" must be a positive odd number, got %d", size)
}

func errOutOfRange(field string, lo, hi float64) error {
	return errors.Errorf("%q must be between %.0f and %.0f", field, lo, hi)
}
