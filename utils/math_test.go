package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestModAngDeg(t *testing.T) {
	test.That(t, ModAngDeg(0), test.ShouldEqual, 0.0)
	test.That(t, ModAngDeg(360), test.ShouldEqual, 0.0)
	test.That(t, ModAngDeg(-90), test.ShouldEqual, 270.0)
	test.That(t, ModAngDeg(725), test.ShouldEqual, 5.0)
	test.That(t, ModAngDeg(-1e-15), test.ShouldBeLessThan, 360.0)
}

func TestAngleDiffDeg(t *testing.T) {
	test.That(t, AngleDiffDeg(350, 10), test.ShouldAlmostEqual, 20.0)
	test.That(t, AngleDiffDeg(10, 350), test.ShouldAlmostEqual, 20.0)
	test.That(t, AngleDiffDeg(-10, 10), test.ShouldAlmostEqual, 20.0)
	test.That(t, AngleDiffDeg(0, 180), test.ShouldAlmostEqual, 180.0)
}

func TestDegRad(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.0)
}
