// Package kinematics converts robot displacements into wheel rotations and recorded wall
// headings into a heading correction.
package kinematics

import "math"

// DistanceToWheelRotation returns how many degrees a wheel of the given radius has to turn to
// roll the given linear distance. Radius and distance share a unit. The result is truncated
// towards zero, matching what a tacho-regulated motor accepts.
func DistanceToWheelRotation(wheelRadius, distance float64) int {
	return int((180.0 * distance) / (math.Pi * wheelRadius))
}

// AngleToWheelRotation returns how many degrees each wheel of a differential drive has to turn,
// in opposite directions, for the robot to spin robotAngle degrees in place. Each wheel covers
// the arc π·track·angle/360.
func AngleToWheelRotation(wheelRadius, track, robotAngle float64) int {
	return DistanceToWheelRotation(wheelRadius, math.Pi*track*robotAngle/360.0)
}

// Geometry holds the fixture offsets used to turn two wall headings into a correction. The
// defaults describe a robot in the corner of two perpendicular walls.
type Geometry struct {
	// AscendingOffset applies when alpha < beta.
	AscendingOffset float64 `json:"ascending_offset_deg"`
	// DescendingOffset applies when alpha > beta.
	DescendingOffset float64 `json:"descending_offset_deg"`
}

// DefaultGeometry returns the 45°/225° corner geometry.
func DefaultGeometry() Geometry {
	return Geometry{AscendingOffset: 45, DescendingOffset: 225}
}

// Theta returns the angle to add to the heading reported by the pose estimate to get the true
// heading, given the headings alpha and beta recorded at the two detected edges.
func (g Geometry) Theta(alpha, beta float64) float64 {
	switch {
	case alpha < beta:
		return g.AscendingOffset - (alpha+beta)/2
	case alpha > beta:
		return g.DescendingOffset - (alpha+beta)/2
	default:
		return 0
	}
}

// CalculateTheta is Theta on the default corner geometry.
func CalculateTheta(alpha, beta float64) float64 {
	return DefaultGeometry().Theta(alpha, beta)
}
