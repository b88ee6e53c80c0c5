package motionplan

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/popov1212/apollo/spatialmath"
)

func newTestReedShepp(t *testing.T) (*ReedShepp, *PlannerOptions, []float64) {
	t.Helper()
	opts := NewDefaultPlannerOptions()
	rs := NewReedShepp(NewDefaultVehicleConfig(), opts, golog.NewTestLogger(t))
	return rs, opts, []float64{-100, 100, -100, 100}
}

func rsNode(t *testing.T, x, y, phi float64, bounds []float64, opts *PlannerOptions) *Node3d {
	t.Helper()
	node, err := NewNode3dFromPose(x, y, phi, bounds, opts)
	test.That(t, err, test.ShouldBeNil)
	return node
}

// checkRSPath asserts the structural invariants every sampled curve must
// satisfy: equal sequence lengths, endpoints on the query poses, and step
// increments bounded by the sampling resolution.
func checkRSPath(t *testing.T, path *ReedSheppPath, opts *PlannerOptions, from, to *Node3d) {
	t.Helper()
	test.That(t, len(path.X), test.ShouldEqual, len(path.Y))
	test.That(t, len(path.X), test.ShouldEqual, len(path.Phi))
	test.That(t, len(path.X), test.ShouldEqual, len(path.Gear))

	test.That(t, path.X[0], test.ShouldAlmostEqual, from.X(), 1e-9)
	test.That(t, path.Y[0], test.ShouldAlmostEqual, from.Y(), 1e-9)
	last := len(path.X) - 1
	test.That(t, path.X[last], test.ShouldAlmostEqual, to.X(), 1e-3)
	test.That(t, path.Y[last], test.ShouldAlmostEqual, to.Y(), 1e-3)
	test.That(t, math.Abs(spatialmath.AngleDiff(path.Phi[last], to.Phi())), test.ShouldBeLessThan, 1e-3)

	for i := 0; i+1 < len(path.X); i++ {
		ds := math.Hypot(path.X[i+1]-path.X[i], path.Y[i+1]-path.Y[i])
		test.That(t, ds, test.ShouldBeLessThanOrEqualTo, opts.StepSize+1e-9)
	}
}

func TestShortestRSPStraight(t *testing.T) {
	rs, opts, bounds := newTestReedShepp(t)

	from := rsNode(t, 0, 0, 0, bounds, opts)
	to := rsNode(t, 5, 0, 0, bounds, opts)
	path, err := rs.ShortestRSP(from, to)
	test.That(t, err, test.ShouldBeNil)
	checkRSPath(t, path, opts, from, to)

	test.That(t, path.TotalLength, test.ShouldAlmostEqual, 5, 1e-6)
	for _, gear := range path.Gear {
		test.That(t, gear, test.ShouldBeTrue)
	}
	for _, phi := range path.Phi {
		test.That(t, math.Abs(phi), test.ShouldBeLessThan, 1e-9)
	}
}

func TestShortestRSPStraightReverse(t *testing.T) {
	rs, opts, bounds := newTestReedShepp(t)

	from := rsNode(t, 0, 0, 0, bounds, opts)
	to := rsNode(t, -5, 0, 0, bounds, opts)
	path, err := rs.ShortestRSP(from, to)
	test.That(t, err, test.ShouldBeNil)
	checkRSPath(t, path, opts, from, to)

	test.That(t, path.TotalLength, test.ShouldAlmostEqual, 5, 1e-6)
	for _, gear := range path.Gear {
		test.That(t, gear, test.ShouldBeFalse)
	}
}

func TestShortestRSPGeneralPoses(t *testing.T) {
	rs, opts, bounds := newTestReedShepp(t)

	cases := []struct {
		name                   string
		sx, sy, sphi           float64
		ex, ey, ephi           float64
	}{
		{"quarter turn", 0, 0, 0, 4, 4, math.Pi / 2},
		{"offset heading", 1, -2, 0.3, 12, 5, -1.2},
		{"behind", 0, 0, 0, -6, 2, 0.5},
		{"half turn", 0, 0, 0, 3, 0, math.Pi},
		{"start not at origin", -4, 7, 2.5, 6, -3, -2.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from := rsNode(t, tc.sx, tc.sy, tc.sphi, bounds, opts)
			to := rsNode(t, tc.ex, tc.ey, tc.ephi, bounds, opts)
			path, err := rs.ShortestRSP(from, to)
			test.That(t, err, test.ShouldBeNil)
			checkRSPath(t, path, opts, from, to)

			// never shorter than the straight-line distance
			straight := math.Hypot(tc.ex-tc.sx, tc.ey-tc.sy)
			test.That(t, path.TotalLength, test.ShouldBeGreaterThanOrEqualTo, straight-1e-6)
		})
	}
}

func TestShortestRSPTightManeuver(t *testing.T) {
	rs, opts, bounds := newTestReedShepp(t)

	// a lateral displacement well inside the turning radius forces direction
	// changes
	from := rsNode(t, 0, 0, 0, bounds, opts)
	to := rsNode(t, 0, -2, math.Pi/2, bounds, opts)
	path, err := rs.ShortestRSP(from, to)
	test.That(t, err, test.ShouldBeNil)
	checkRSPath(t, path, opts, from, to)

	hasForward := false
	hasReverse := false
	for _, gear := range path.Gear {
		if gear {
			hasForward = true
		} else {
			hasReverse = true
		}
	}
	test.That(t, hasForward, test.ShouldBeTrue)
	test.That(t, hasReverse, test.ShouldBeTrue)
}

func TestShortestRSPSymmetry(t *testing.T) {
	rs, opts, bounds := newTestReedShepp(t)

	from := rsNode(t, 0, 0, 0, bounds, opts)
	to := rsNode(t, 6, 3, 1.1, bounds, opts)
	forward, err := rs.ShortestRSP(from, to)
	test.That(t, err, test.ShouldBeNil)
	backward, err := rs.ShortestRSP(to, from)
	test.That(t, err, test.ShouldBeNil)

	// reversing the query keeps the optimal length
	test.That(t, forward.TotalLength, test.ShouldAlmostEqual, backward.TotalLength, 1e-6)
}
