package motionplan

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/popov1212/apollo/spatialmath"
)

func newTestPlanner(t *testing.T, opts *PlannerOptions) *HybridAStar {
	t.Helper()
	if opts == nil {
		opts = NewDefaultPlannerOptions()
	}
	planner, err := NewHybridAStar(NewDefaultVehicleConfig(), opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return planner
}

// checkResultClear asserts that no pose of the result puts the vehicle
// footprint onto any obstacle segment.
func checkResultClear(t *testing.T, planner *HybridAStar, result *HybridAStarResult, obstacles [][]r2.Point) {
	t.Helper()
	for _, vertices := range obstacles {
		for i := 0; i+1 < len(vertices); i++ {
			segment := spatialmath.NewLineSegment(vertices[i], vertices[i+1])
			for k := range result.X {
				box := BoundingBox(planner.vehicle, result.X[k], result.Y[k], result.Phi[k])
				test.That(t, box.HasOverlap(segment), test.ShouldBeFalse)
			}
		}
	}
}

func TestPlanFreeSpaceStraight(t *testing.T) {
	planner := newTestPlanner(t, nil)

	result, err := planner.Plan(0, 0, 0, 5, 0, 0, []float64{-10, 10, -10, 10}, nil)
	test.That(t, err, test.ShouldBeNil)

	// state and control sequence invariants
	test.That(t, len(result.X), test.ShouldEqual, len(result.Y))
	test.That(t, len(result.X), test.ShouldEqual, len(result.Phi))
	test.That(t, len(result.X), test.ShouldEqual, len(result.V))
	test.That(t, len(result.A), test.ShouldEqual, len(result.X)-1)
	test.That(t, len(result.Steer), test.ShouldEqual, len(result.X)-1)
	test.That(t, result.V[len(result.V)-1], test.ShouldEqual, 0)

	// start and goal poses
	test.That(t, result.X[0], test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, result.Y[0], test.ShouldAlmostEqual, 0, 1e-9)
	last := len(result.X) - 1
	test.That(t, math.Abs(result.X[last]-5), test.ShouldBeLessThan, defaultXYGridResolution)
	test.That(t, math.Abs(result.Y[last]), test.ShouldBeLessThan, defaultXYGridResolution)

	// a straight shot needs no steering
	for _, steer := range result.Steer {
		test.That(t, math.Abs(steer), test.ShouldBeLessThan, 1e-6)
	}
}

func TestPlanReverseParking(t *testing.T) {
	planner := newTestPlanner(t, nil)

	result, err := planner.Plan(0, 0, 0, 0, -2, math.Pi/2, []float64{-5, 5, -5, 5}, nil)
	test.That(t, err, test.ShouldBeNil)

	last := len(result.X) - 1
	test.That(t, math.Abs(result.X[last]), test.ShouldBeLessThan, defaultXYGridResolution)
	test.That(t, math.Abs(result.Y[last]+2), test.ShouldBeLessThan, defaultXYGridResolution)

	// the maneuver is tighter than the turning radius, so it must change gear
	hasForward := false
	hasReverse := false
	for _, v := range result.V {
		if v > 1e-6 {
			hasForward = true
		}
		if v < -1e-6 {
			hasReverse = true
		}
	}
	test.That(t, hasForward, test.ShouldBeTrue)
	test.That(t, hasReverse, test.ShouldBeTrue)
}

func TestPlanBlockedDirect(t *testing.T) {
	// Test Map:
	//      - bounds are from (-10, -8) to (20, 8)
	//      - obstacle from (4, -1) to (6, 1), closed polyline
	// --------------------------------
	// |                              |
	// |                              |
	// | *start     ----     goal+    |
	// |            ----              |
	// |                              |
	// |                              |
	// --------------------------------
	planner := newTestPlanner(t, nil)
	obstacles := [][]r2.Point{{
		{X: 4, Y: -1}, {X: 6, Y: -1}, {X: 6, Y: 1}, {X: 4, Y: 1}, {X: 4, Y: -1},
	}}

	result, err := planner.Plan(0, 0, 0, 10, 0, 0, []float64{-10, 20, -8, 8}, obstacles)
	test.That(t, err, test.ShouldBeNil)

	last := len(result.X) - 1
	test.That(t, math.Abs(result.X[last]-10), test.ShouldBeLessThan, defaultXYGridResolution)
	test.That(t, math.Abs(result.Y[last]), test.ShouldBeLessThan, defaultXYGridResolution)

	checkResultClear(t, planner, result, obstacles)
}

func TestPlanStartInCollision(t *testing.T) {
	planner := newTestPlanner(t, nil)
	// a box under the start footprint
	obstacles := [][]r2.Point{{
		{X: 0.5, Y: -0.5}, {X: 1.5, Y: -0.5}, {X: 1.5, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: -0.5},
	}}

	result, err := planner.Plan(0, 0, 0, 8, 8, 0, []float64{-10, 10, -10, 10}, obstacles)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)
}

func TestPlanUnreachableGoal(t *testing.T) {
	// a small vehicle so the ring can stay tight and the search space small
	vehicle := &VehicleConfig{
		Length:           1.0,
		Width:            0.6,
		BackEdgeToCenter: 0.25,
		WheelBase:        0.5,
		MaxSteerAngle:    8.0,
		SteerRatio:       16.0,
	}
	opts := NewDefaultPlannerOptions()
	planner, err := NewHybridAStar(vehicle, opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// goal enclosed by a closed square ring
	ring := [][]r2.Point{{
		{X: -1.5, Y: -1.5}, {X: 1.5, Y: -1.5}, {X: 1.5, Y: 1.5}, {X: -1.5, Y: 1.5}, {X: -1.5, Y: -1.5},
	}}

	result, err := planner.Plan(-3, 0, 0, 0, 0, 0, []float64{-4, 4, -4, 4}, ring)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldBeNil)
}

func TestPlanIdempotence(t *testing.T) {
	planner := newTestPlanner(t, nil)
	bounds := []float64{-10, 20, -8, 8}
	obstacles := [][]r2.Point{{
		{X: 4, Y: -1}, {X: 6, Y: -1}, {X: 6, Y: 1}, {X: 4, Y: 1}, {X: 4, Y: -1},
	}}

	first, err := planner.Plan(0, 0, 0, 10, 0, 0, bounds, obstacles)
	test.That(t, err, test.ShouldBeNil)
	second, err := planner.Plan(0, 0, 0, 10, 0, 0, bounds, obstacles)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, second.X, test.ShouldResemble, first.X)
	test.That(t, second.Y, test.ShouldResemble, first.Y)
	test.That(t, second.Phi, test.ShouldResemble, first.Phi)
	test.That(t, second.V, test.ShouldResemble, first.V)
	test.That(t, second.A, test.ShouldResemble, first.A)
	test.That(t, second.Steer, test.ShouldResemble, first.Steer)
}

func TestNextNodeGeneratorKinematics(t *testing.T) {
	planner := newTestPlanner(t, nil)
	planner.xyBounds = []float64{-10, 10, -10, 10}

	current, err := NewNode3dFromPose(0, 0, 0, planner.xyBounds, planner.opts)
	test.That(t, err, test.ShouldBeNil)

	maxHeadingChange := planner.opts.StepSize*math.Tan(planner.maxSteerAngle)/planner.vehicle.WheelBase + 1e-9
	for i := 0; i < planner.opts.NextNodeNum; i++ {
		next := planner.nextNodeGenerator(current, i)
		test.That(t, next, test.ShouldNotBeNil)

		xs, ys, phis := next.Xs(), next.Ys(), next.Phis()
		test.That(t, len(xs), test.ShouldEqual, len(ys))
		test.That(t, len(xs), test.ShouldEqual, len(phis))
		test.That(t, len(xs), test.ShouldBeGreaterThan, 1)

		// the primitive starts at the current pose
		test.That(t, xs[0], test.ShouldEqual, current.X())
		test.That(t, ys[0], test.ShouldEqual, current.Y())

		forward := i < planner.opts.NextNodeNum/2
		test.That(t, next.Direction(), test.ShouldEqual, forward)

		sign := 1.0
		if !forward {
			sign = -1.0
		}
		for k := 0; k+1 < len(xs); k++ {
			test.That(t, xs[k+1]-xs[k], test.ShouldAlmostEqual,
				sign*planner.opts.StepSize*math.Cos(phis[k]), 1e-9)
			test.That(t, ys[k+1]-ys[k], test.ShouldAlmostEqual,
				sign*planner.opts.StepSize*math.Sin(phis[k]), 1e-9)
			test.That(t, math.Abs(spatialmath.AngleDiff(phis[k+1], phis[k])),
				test.ShouldBeLessThanOrEqualTo, maxHeadingChange)
		}
	}

	// steering sweeps symmetrically from full right to full left
	rightMost := planner.nextNodeGenerator(current, 0)
	leftMost := planner.nextNodeGenerator(current, planner.opts.NextNodeNum/2-1)
	test.That(t, rightMost.Steer(), test.ShouldAlmostEqual, -planner.maxSteerAngle, 1e-9)
	test.That(t, leftMost.Steer(), test.ShouldAlmostEqual, planner.maxSteerAngle, 1e-9)
}
