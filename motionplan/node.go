package motionplan

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/popov1212/apollo/spatialmath"
)

// Node3d is a hybrid A* search state. It is defined by the final pose of the
// edge arriving at it and carries the ordered intermediate poses traversed
// along that edge; the last pose of the sequences is the representative pose
// used for indexing and priority.
type Node3d struct {
	xs   []float64
	ys   []float64
	phis []float64

	xGrid   int
	yGrid   int
	phiGrid int
	index   string

	direction bool // true = forward, false = reverse
	steer     float64
	trajCost  float64
	heuCost   float64

	preNode *Node3d
}

// NewNode3d creates a node from equal-length pose sequences. The sequences
// must hold at least one pose; headings are normalized into (-pi, pi].
func NewNode3d(xs, ys, phis, xyBounds []float64, opts *PlannerOptions) (*Node3d, error) {
	if len(xs) == 0 || len(xs) != len(ys) || len(xs) != len(phis) {
		return nil, errors.Errorf("pose sequences must be non-empty and of equal length, got %d/%d/%d", len(xs), len(ys), len(phis))
	}
	if len(xyBounds) != 4 {
		return nil, errors.Errorf("xyBounds must hold [xmin, xmax, ymin, ymax], got %d values", len(xyBounds))
	}
	n := &Node3d{
		xs:        xs,
		ys:        ys,
		phis:      phis,
		direction: true,
	}
	for i := range phis {
		phis[i] = spatialmath.NormalizeAngle(phis[i])
	}
	last := len(xs) - 1
	n.xGrid = int(math.Floor((xs[last] - xyBounds[0]) / opts.XYGridResolution))
	n.yGrid = int(math.Floor((ys[last] - xyBounds[2]) / opts.XYGridResolution))
	n.phiGrid = int(math.Floor(phis[last] / opts.PhiGridResolution))
	n.index = fmt.Sprintf("%d_%d_%d", n.xGrid, n.yGrid, n.phiGrid)
	return n, nil
}

// NewNode3dFromPose creates a single-pose node, used for the start and end
// seeds of a search.
func NewNode3dFromPose(x, y, phi float64, xyBounds []float64, opts *PlannerOptions) (*Node3d, error) {
	return NewNode3d([]float64{x}, []float64{y}, []float64{phi}, xyBounds, opts)
}

// X returns the representative x coordinate.
func (n *Node3d) X() float64 { return n.xs[len(n.xs)-1] }

// Y returns the representative y coordinate.
func (n *Node3d) Y() float64 { return n.ys[len(n.ys)-1] }

// Phi returns the representative heading.
func (n *Node3d) Phi() float64 { return n.phis[len(n.phis)-1] }

// Xs returns the traversed x sequence of the incoming edge.
func (n *Node3d) Xs() []float64 { return n.xs }

// Ys returns the traversed y sequence of the incoming edge.
func (n *Node3d) Ys() []float64 { return n.ys }

// Phis returns the traversed heading sequence of the incoming edge.
func (n *Node3d) Phis() []float64 { return n.phis }

// StepSize returns the number of poses along the incoming edge.
func (n *Node3d) StepSize() int { return len(n.xs) }

// Index returns the discrete grid key of the representative pose.
func (n *Node3d) Index() string { return n.index }

// Direction reports whether the incoming edge drives forward.
func (n *Node3d) Direction() bool { return n.direction }

// Steer returns the steering angle of the incoming edge.
func (n *Node3d) Steer() float64 { return n.steer }

// TrajCost returns the accumulated edge cost from the start node.
func (n *Node3d) TrajCost() float64 { return n.trajCost }

// HeuCost returns the holonomic heuristic cost to the goal.
func (n *Node3d) HeuCost() float64 { return n.heuCost }

// Cost returns the search priority, trajectory cost plus heuristic.
func (n *Node3d) Cost() float64 { return n.trajCost + n.heuCost }

// PreNode returns the predecessor, nil for the start seed.
func (n *Node3d) PreNode() *Node3d { return n.preNode }

// SetPre links the predecessor node.
func (n *Node3d) SetPre(pre *Node3d) { n.preNode = pre }

// SetDirection records the travel direction of the incoming edge.
func (n *Node3d) SetDirection(forward bool) { n.direction = forward }

// SetSteer records the steering of the incoming edge.
func (n *Node3d) SetSteer(steer float64) { n.steer = steer }

// SetTrajCost sets the accumulated trajectory cost.
func (n *Node3d) SetTrajCost(cost float64) { n.trajCost = cost }

// SetHeuCost sets the heuristic cost.
func (n *Node3d) SetHeuCost(cost float64) { n.heuCost = cost }

// BoundingBox returns the oriented rectangle enclosing the vehicle footprint
// at the given pose. (x, y) lies BackEdgeToCenter ahead of the back edge, so
// the geometric center sits Length/2 - BackEdgeToCenter ahead of (x, y)
// along the heading.
func BoundingBox(vehicle *VehicleConfig, x, y, phi float64) spatialmath.Box2d {
	shift := vehicle.Length/2 - vehicle.BackEdgeToCenter
	center := r2.Point{
		X: x + shift*math.Cos(phi),
		Y: y + shift*math.Sin(phi),
	}
	return spatialmath.NewBox2d(center, phi, vehicle.Length, vehicle.Width)
}
