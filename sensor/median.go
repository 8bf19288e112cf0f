package sensor

import (
	"context"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

const (
	// DefaultWindowSize is the number of raw readings reduced to one filtered distance.
	DefaultWindowSize = 5

	metersToCentimeters = 100.0
)

// MedianFilter draws a fresh window of raw readings on every call and returns their median.
// A window of 5 rejects up to 2 outliers (specular reflections, cross-talk) per call.
type MedianFilter struct {
	sensor     RangeSensor
	windowSize int
}

// NewMedianFilter wraps a range sensor. A windowSize of 0 selects DefaultWindowSize; other sizes
// must be odd so the median is a real reading.
func NewMedianFilter(rs RangeSensor, windowSize int) (*MedianFilter, error) {
	if rs == nil {
		return nil, errors.New("median filter needs a range sensor")
	}
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	if windowSize < 0 || windowSize%2 == 0 {
		return nil, errors.Errorf("median filter window must be a positive odd number, got %d", windowSize)
	}
	return &MedianFilter{sensor: rs, windowSize: windowSize}, nil
}

// WindowSize returns the number of raw readings drawn per Sample.
func (f *MedianFilter) WindowSize() int {
	return f.windowSize
}

// Sample draws WindowSize consecutive readings, scales them to centimeters and returns the
// median. A sensor failure aborts the window and is returned.
func (f *MedianFilter) Sample(ctx context.Context) (float64, error) {
	window := make([]float64, f.windowSize)
	for i := range window {
		raw, err := f.sensor.FetchSample(ctx)
		if err != nil {
			return 0, errors.Wrapf(err, "fetching range sample %d/%d", i+1, f.windowSize)
		}
		window[i] = raw * metersToCentimeters
	}
	// stats.Median sorts a copy and returns the middle element for odd sizes.
	return stats.Median(window)
}
