package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNormalizeAngle(t *testing.T) {
	epsilon := 1e-9

	test.That(t, NormalizeAngle(0), test.ShouldAlmostEqual, 0, epsilon)
	test.That(t, NormalizeAngle(math.Pi), test.ShouldAlmostEqual, math.Pi, epsilon)
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldAlmostEqual, math.Pi, epsilon)
	test.That(t, NormalizeAngle(3*math.Pi), test.ShouldAlmostEqual, math.Pi, epsilon)
	test.That(t, NormalizeAngle(2*math.Pi), test.ShouldAlmostEqual, 0, epsilon)
	test.That(t, NormalizeAngle(-3*math.Pi/2), test.ShouldAlmostEqual, math.Pi/2, epsilon)
	test.That(t, NormalizeAngle(5*math.Pi/2), test.ShouldAlmostEqual, math.Pi/2, epsilon)

	// symmetric bucketing around the discontinuity
	test.That(t, NormalizeAngle(math.Pi-1e-6), test.ShouldAlmostEqual, math.Pi-1e-6, epsilon)
	test.That(t, NormalizeAngle(-math.Pi-1e-6), test.ShouldAlmostEqual, math.Pi-1e-6, epsilon)
}

func TestAngleDiff(t *testing.T) {
	epsilon := 1e-9

	test.That(t, AngleDiff(math.Pi-0.1, -math.Pi+0.1), test.ShouldAlmostEqual, -0.2, epsilon)
	test.That(t, AngleDiff(0.3, 0.1), test.ShouldAlmostEqual, 0.2, epsilon)
}
