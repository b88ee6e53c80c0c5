package motionplan

import (
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/popov1212/apollo/spatialmath"
)

// HybridAStarResult is the timed trajectory produced by a successful plan.
// X, Y, Phi, and V run over all path points; A and Steer are one shorter, one
// entry per transition. AccumulatedS is populated by the s-curve profile.
type HybridAStarResult struct {
	X            []float64 `json:"x"`
	Y            []float64 `json:"y"`
	Phi          []float64 `json:"phi"`
	V            []float64 `json:"v"`
	A            []float64 `json:"a"`
	Steer        []float64 `json:"steer"`
	AccumulatedS []float64 `json:"accumulated_s,omitempty"`
}

// HybridAStar searches a 3d discretization of SE(2) with constant-steering
// motion primitives, short-circuiting to the goal with Reeds-Shepp curves.
// An instance is not safe for concurrent Plan calls; all search state is
// cleared on entry to Plan.
type HybridAStar struct {
	vehicle       *VehicleConfig
	opts          *PlannerOptions
	logger        golog.Logger
	reedShepp     *ReedShepp
	gridSearch    *GridSearch
	maxSteerAngle float64

	xyBounds         []float64
	obstacleSegments [][]spatialmath.LineSegment
	startNode        *Node3d
	endNode          *Node3d
	finalNode        *Node3d
	openSet          map[string]*Node3d
	closeSet         map[string]*Node3d
	openPQ           *nodeQueue
}

// NewHybridAStar creates a planner for the given vehicle and options.
func NewHybridAStar(vehicle *VehicleConfig, opts *PlannerOptions, logger golog.Logger) (*HybridAStar, error) {
	if err := multierr.Combine(vehicle.Validate(), opts.Validate()); err != nil {
		return nil, errors.Wrap(err, "invalid planner configuration")
	}
	return &HybridAStar{
		vehicle:       vehicle,
		opts:          opts,
		logger:        logger,
		reedShepp:     NewReedShepp(vehicle, opts, logger),
		gridSearch:    NewGridSearch(opts, logger),
		maxSteerAngle: vehicle.MaxSteerAngle / vehicle.SteerRatio,
	}, nil
}

// analyticExpansion attempts to connect the current node straight to the end
// configuration with a collision-free Reeds-Shepp curve. On success the whole
// curve is loaded as the final node and the search ends.
func (h *HybridAStar) analyticExpansion(current *Node3d) bool {
	path, err := h.reedShepp.ShortestRSP(current, h.endNode)
	if err != nil {
		return false
	}
	if !h.rspCheck(path) {
		return false
	}
	h.finalNode = h.loadRSPinCS(path, current)
	return true
}

func (h *HybridAStar) rspCheck(path *ReedSheppPath) bool {
	node, err := NewNode3d(path.X, path.Y, path.Phi, h.xyBounds, h.opts)
	if err != nil {
		return false
	}
	return h.validityCheck(node)
}

// loadRSPinCS inserts a terminal node holding the entire analytic curve into
// the closed set.
func (h *HybridAStar) loadRSPinCS(path *ReedSheppPath, current *Node3d) *Node3d {
	endNode, err := NewNode3d(path.X, path.Y, path.Phi, h.xyBounds, h.opts)
	if err != nil {
		return nil
	}
	endNode.SetPre(current)
	h.closeSet[endNode.Index()] = endNode
	return endNode
}

// validityCheck reports whether the node's traversed poses stay in bounds and
// keep the vehicle footprint clear of every obstacle segment. The pose shared
// with the predecessor node is skipped; the predecessor checked it as its own
// final pose. Single-pose seeds check their one pose.
func (h *HybridAStar) validityCheck(node *Node3d) bool {
	stepSize := node.StepSize()
	firstCheckIndex := 1
	if stepSize == 1 {
		firstCheckIndex = 0
	}
	xs, ys, phis := node.Xs(), node.Ys(), node.Phis()
	for i := stepSize - 1; i >= firstCheckIndex; i-- {
		if xs[i] > h.xyBounds[1] || xs[i] < h.xyBounds[0] ||
			ys[i] > h.xyBounds[3] || ys[i] < h.xyBounds[2] {
			return false
		}
		if len(h.obstacleSegments) == 0 {
			continue
		}
		boundingBox := BoundingBox(h.vehicle, xs[i], ys[i], phis[i])
		for _, segments := range h.obstacleSegments {
			for _, segment := range segments {
				if boundingBox.HasOverlap(segment) {
					return false
				}
			}
		}
	}
	return true
}

// nextNodeGenerator integrates the i-th constant-steering motion primitive
// from the current node. The first half of the primitive indices drive
// forward, the second half reverse; steering sweeps uniformly from full right
// (-max) to full left (+max) within each half. Returns nil when the primitive leaves the
// workspace.
func (h *HybridAStar) nextNodeGenerator(current *Node3d, nextNodeIndex int) *Node3d {
	half := float64(h.opts.NextNodeNum) / 2
	var steering, traveledDistance float64
	if float64(nextNodeIndex) < half {
		steering = -h.maxSteerAngle + (2*h.maxSteerAngle/(half-1))*float64(nextNodeIndex)
		traveledDistance = h.opts.StepSize
	} else {
		index := float64(nextNodeIndex) - half
		steering = -h.maxSteerAngle + (2*h.maxSteerAngle/(half-1))*index
		traveledDistance = -h.opts.StepSize
	}

	// drive the primitive far enough to land in a different grid cell
	arc := math.Sqrt2 * h.opts.XYGridResolution
	lastX, lastY, lastPhi := current.X(), current.Y(), current.Phi()
	intermediateX := []float64{lastX}
	intermediateY := []float64{lastY}
	intermediatePhi := []float64{lastPhi}
	for i := 0; i < int(arc/h.opts.StepSize); i++ {
		nextX := lastX + traveledDistance*math.Cos(lastPhi)
		nextY := lastY + traveledDistance*math.Sin(lastPhi)
		nextPhi := spatialmath.NormalizeAngle(
			lastPhi + traveledDistance/h.vehicle.WheelBase*math.Tan(steering))
		intermediateX = append(intermediateX, nextX)
		intermediateY = append(intermediateY, nextY)
		intermediatePhi = append(intermediatePhi, nextPhi)
		lastX, lastY, lastPhi = nextX, nextY, nextPhi
	}
	if intermediateX[len(intermediateX)-1] > h.xyBounds[1] ||
		intermediateX[len(intermediateX)-1] < h.xyBounds[0] ||
		intermediateY[len(intermediateY)-1] > h.xyBounds[3] ||
		intermediateY[len(intermediateY)-1] < h.xyBounds[2] {
		return nil
	}
	nextNode, err := NewNode3d(intermediateX, intermediateY, intermediatePhi, h.xyBounds, h.opts)
	if err != nil {
		return nil
	}
	nextNode.SetPre(current)
	nextNode.SetDirection(traveledDistance > 0)
	nextNode.SetSteer(steering)
	return nextNode
}

func (h *HybridAStar) calculateNodeCost(current, next *Node3d) {
	next.SetTrajCost(current.TrajCost() + h.trajCost(current, next))
	next.SetHeuCost(h.holoObstacleHeuristic(next))
}

// trajCost is the edge cost of reaching next from current: traveled distance
// weighted by direction, a gear switch penalty, and steering magnitude and
// steering change penalties. A start seed has no incoming edge, so its first
// expansion never pays the gear switch.
func (h *HybridAStar) trajCost(current, next *Node3d) float64 {
	piecewiseCost := 0.0
	if next.Direction() {
		piecewiseCost += float64(next.StepSize()-1) * h.opts.StepSize * h.opts.TrajForwardPenalty
	} else {
		piecewiseCost += float64(next.StepSize()-1) * h.opts.StepSize * h.opts.TrajBackPenalty
	}
	if current.PreNode() != nil && current.Direction() != next.Direction() {
		piecewiseCost += h.opts.TrajGearSwitchPenalty
	}
	piecewiseCost += h.opts.TrajSteerPenalty * math.Abs(next.Steer())
	piecewiseCost += h.opts.TrajSteerChangePenalty * math.Abs(next.Steer()-current.Steer())
	return piecewiseCost
}

func (h *HybridAStar) holoObstacleHeuristic(next *Node3d) float64 {
	return h.gridSearch.CheckDpMap(next.X(), next.Y())
}

// Plan searches for a trajectory from the start pose to the end pose inside
// xyBounds ([xmin, xmax, ymin, ymax]), avoiding the given obstacles. Each
// obstacle is an ordered vertex list consumed as an open polyline: n vertices
// contribute n-1 segments, so closed shapes must repeat their first vertex.
func (h *HybridAStar) Plan(
	sx, sy, sphi, ex, ey, ephi float64,
	xyBounds []float64,
	obstaclesVertices [][]r2.Point,
) (*HybridAStarResult, error) {
	// clear containers
	h.openSet = make(map[string]*Node3d)
	h.closeSet = make(map[string]*Node3d)
	h.openPQ = newNodeQueue()
	h.finalNode = nil

	if len(xyBounds) != 4 {
		return nil, errors.Errorf("xyBounds must hold [xmin, xmax, ymin, ymax], got %d values", len(xyBounds))
	}
	h.xyBounds = append([]float64(nil), xyBounds...)

	obstacleSegments := make([][]spatialmath.LineSegment, 0, len(obstaclesVertices))
	for _, vertices := range obstaclesVertices {
		segments := make([]spatialmath.LineSegment, 0)
		for i := 0; i+1 < len(vertices); i++ {
			segments = append(segments, spatialmath.NewLineSegment(vertices[i], vertices[i+1]))
		}
		obstacleSegments = append(obstacleSegments, segments)
	}
	h.obstacleSegments = obstacleSegments

	startNode, err := NewNode3dFromPose(sx, sy, sphi, h.xyBounds, h.opts)
	if err != nil {
		return nil, err
	}
	endNode, err := NewNode3dFromPose(ex, ey, ephi, h.xyBounds, h.opts)
	if err != nil {
		return nil, err
	}
	h.startNode = startNode
	h.endNode = endNode
	if !h.validityCheck(startNode) {
		h.logger.Debug("start node in collision with obstacles")
		return nil, NewInvalidSeedError("start")
	}
	if !h.validityCheck(endNode) {
		h.logger.Debug("end node in collision with obstacles")
		return nil, NewInvalidSeedError("end")
	}

	mapStart := time.Now()
	if err := h.gridSearch.GenerateDpMap(ex, ey, h.xyBounds, obstacleSegments); err != nil {
		return nil, errors.Wrap(err, "building holonomic heuristic")
	}
	h.logger.Debugf("map time %s", time.Since(mapStart))

	h.openSet[startNode.Index()] = startNode
	h.openPQ.push(startNode.Index(), startNode.Cost())

	exploredNodeNum := 0
	astarStart := time.Now()
	var heuristicTime, rsTime time.Duration
	for !h.openPQ.empty() {
		entry := h.openPQ.pop()
		if _, ok := h.closeSet[entry.index]; ok {
			// stale entry, node already closed
			continue
		}
		currentNode := h.openSet[entry.index]
		rsStart := time.Now()
		expanded := h.analyticExpansion(currentNode)
		rsTime += time.Since(rsStart)
		if expanded {
			break
		}
		h.closeSet[currentNode.Index()] = currentNode
		for i := 0; i < h.opts.NextNodeNum; i++ {
			nextNode := h.nextNodeGenerator(currentNode, i)
			if nextNode == nil {
				continue
			}
			if _, ok := h.closeSet[nextNode.Index()]; ok {
				continue
			}
			if !h.validityCheck(nextNode) {
				continue
			}
			if _, ok := h.openSet[nextNode.Index()]; !ok {
				exploredNodeNum++
				heuStart := time.Now()
				h.calculateNodeCost(currentNode, nextNode)
				heuristicTime += time.Since(heuStart)
				h.openSet[nextNode.Index()] = nextNode
				h.openPQ.push(nextNode.Index(), nextNode.Cost())
			}
		}
	}
	if h.finalNode == nil {
		h.logger.Debug("hybrid A* searching returned no path, open set ran out")
		return nil, NewPlannerFailedError()
	}
	result, err := h.getResult()
	if err != nil {
		return nil, err
	}
	h.logger.Debugf("explored node num is %d", exploredNodeNum)
	h.logger.Debugf("heuristic time is %s", heuristicTime)
	h.logger.Debugf("reeds-shepp time is %s", rsTime)
	h.logger.Debugf("hybrid A* total time is %s", time.Since(astarStart))
	return result, nil
}

// getResult walks the parent chain from the final node back to the start,
// concatenating each node's traversal sequence without the pose it shares
// with its predecessor, then reverses the whole path to run start to goal
// and derives the speed profile.
func (h *HybridAStar) getResult() (*HybridAStarResult, error) {
	currentNode := h.finalNode
	var hybridAX, hybridAY, hybridAPhi []float64
	for currentNode.PreNode() != nil {
		xs, ys, phis := currentNode.Xs(), currentNode.Ys(), currentNode.Phis()
		if len(xs) == 0 || len(ys) == 0 || len(phis) == 0 {
			return nil, errors.New("result size check failed, node with empty pose sequence")
		}
		for i := len(xs) - 1; i >= 1; i-- {
			hybridAX = append(hybridAX, xs[i])
			hybridAY = append(hybridAY, ys[i])
			hybridAPhi = append(hybridAPhi, phis[i])
		}
		currentNode = currentNode.PreNode()
	}
	hybridAX = append(hybridAX, currentNode.X())
	hybridAY = append(hybridAY, currentNode.Y())
	hybridAPhi = append(hybridAPhi, currentNode.Phi())
	reverseFloats(hybridAX)
	reverseFloats(hybridAY)
	reverseFloats(hybridAPhi)

	result := &HybridAStarResult{X: hybridAX, Y: hybridAY, Phi: hybridAPhi}
	if h.opts.UseSCurveSpeedSmooth {
		if err := h.generateSCurveSpeedAcceleration(result); err != nil {
			return nil, errors.Wrap(err, "generating s-curve speed profile")
		}
	} else {
		if err := h.generateSpeedAcceleration(result); err != nil {
			return nil, errors.Wrap(err, "generating speed profile")
		}
	}

	if len(result.X) != len(result.Y) ||
		len(result.X) != len(result.Phi) ||
		len(result.X) != len(result.V) {
		h.logger.Debugf("state sizes not equal: x %d y %d phi %d v %d",
			len(result.X), len(result.Y), len(result.Phi), len(result.V))
		return nil, NewResultSizeError()
	}
	if len(result.A) != len(result.Steer) || len(result.X)-len(result.A) != 1 {
		h.logger.Debugf("control sizes not equal or not right: a %d steer %d x %d",
			len(result.A), len(result.Steer), len(result.X))
		return nil, NewResultSizeError()
	}
	return result, nil
}

func reverseFloats(values []float64) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}
