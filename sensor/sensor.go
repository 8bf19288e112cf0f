// Package sensor defines the range sensor sampled by the localizer and the median filter that
// denoises its readings.
package sensor

import (
	"context"
)

// A RangeSensor returns one raw distance reading per call, in meters. A call blocks for as long
// as the hardware needs to produce a sample.
type RangeSensor interface {
	FetchSample(ctx context.Context) (float64, error)
}

// RangeSensorFunc adapts a function to a RangeSensor.
type RangeSensorFunc func(ctx context.Context) (float64, error)

// FetchSample calls f.
func (f RangeSensorFunc) FetchSample(ctx context.Context) (float64, error) {
	return f(ctx)
}

// A Sampler produces one denoised distance, in centimeters, per call.
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}
