package motionplan

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestGenerateSpeedAcceleration(t *testing.T) {
	planner := newTestPlanner(t, nil)

	result, err := planner.Plan(0, 0, 0, 5, 0, 0, []float64{-10, 10, -10, 10}, nil)
	test.That(t, err, test.ShouldBeNil)

	xSize := len(result.X)
	test.That(t, len(result.V), test.ShouldEqual, xSize)
	test.That(t, len(result.A), test.ShouldEqual, xSize-1)
	test.That(t, len(result.Steer), test.ShouldEqual, xSize-1)
	test.That(t, result.V[xSize-1], test.ShouldEqual, 0)

	deltaT := planner.opts.DeltaT
	for i := 0; i+1 < xSize; i++ {
		// velocity is the heading-projected position difference
		expectedV := ((result.X[i+1]-result.X[i])/deltaT)*math.Cos(result.Phi[i]) +
			((result.Y[i+1]-result.Y[i])/deltaT)*math.Sin(result.Phi[i])
		test.That(t, result.V[i], test.ShouldAlmostEqual, expectedV, 1e-9)
		// acceleration is the velocity difference
		test.That(t, result.A[i], test.ShouldAlmostEqual, (result.V[i+1]-result.V[i])/deltaT, 1e-9)
	}

	// driving straight forward keeps positive velocity until the final stop
	for i := 0; i+1 < xSize; i++ {
		test.That(t, result.V[i], test.ShouldBeGreaterThanOrEqualTo, 0)
	}
}

func TestGenerateSCurveSpeedAcceleration(t *testing.T) {
	opts := NewDefaultPlannerOptions()
	opts.UseSCurveSpeedSmooth = true
	planner := newTestPlanner(t, opts)

	result, err := planner.Plan(0, 0, 0, 5, 0, 0, []float64{-10, 10, -10, 10}, nil)
	test.That(t, err, test.ShouldBeNil)

	xSize := len(result.X)
	test.That(t, len(result.V), test.ShouldEqual, xSize)
	test.That(t, len(result.A), test.ShouldEqual, xSize-1)
	test.That(t, len(result.Steer), test.ShouldEqual, xSize-1)
	test.That(t, len(result.AccumulatedS), test.ShouldEqual, xSize)

	// the arc coordinate tracks the straight 5 m shot and never runs backward
	for i := 0; i+1 < len(result.AccumulatedS); i++ {
		test.That(t, result.AccumulatedS[i+1]-result.AccumulatedS[i],
			test.ShouldBeGreaterThan, -1e-3)
	}
	last := len(result.AccumulatedS) - 1
	test.That(t, math.Abs(result.AccumulatedS[last]-5), test.ShouldBeLessThan, defaultXYGridResolution)

	// pinned terminal state: stopped with no acceleration
	test.That(t, math.Abs(result.V[xSize-1]), test.ShouldBeLessThan, 1e-2)
	// the dropped knot is pinned to zero, so the last kept acceleration sits
	// within one jerk step of it
	test.That(t, math.Abs(result.A[len(result.A)-1]), test.ShouldBeLessThan,
		planner.opts.LongitudinalJerkBound*planner.opts.DeltaT+1e-2)

	// acceleration envelope and jerk bound
	deltaT := planner.opts.DeltaT
	for i, a := range result.A {
		test.That(t, a, test.ShouldBeLessThanOrEqualTo, sCurveMaxAcceleration+1e-2)
		test.That(t, a, test.ShouldBeGreaterThanOrEqualTo, sCurveMinAcceleration-1e-2)
		if i+1 < len(result.A) {
			jerk := (result.A[i+1] - result.A[i]) / deltaT
			test.That(t, math.Abs(jerk), test.ShouldBeLessThanOrEqualTo,
				planner.opts.LongitudinalJerkBound+1e-2)
		}
	}
}
