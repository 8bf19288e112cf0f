// Package utils contains small angle helpers and goroutine plumbing shared by the localizer
// packages.
package utils

import (
	"math"
)

// OneTurnDeg is a full revolution in degrees.
const OneTurnDeg = 360.0

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return float64(180) - math.Abs(math.Abs(ModAngDeg(a1)-ModAngDeg(a2))-float64(180))
}

// ModAngDeg maps any angle into [0, 360).
func ModAngDeg(ang float64) float64 {
	ang = math.Mod(math.Mod(ang, OneTurnDeg)+OneTurnDeg, OneTurnDeg)
	// math.Mod of a tiny negative angle can round back up to exactly 360.
	if ang >= OneTurnDeg {
		return 0
	}
	return ang
}
