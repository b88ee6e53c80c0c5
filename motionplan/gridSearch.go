package motionplan

import (
	"fmt"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/popov1212/apollo/spatialmath"
)

// Node2d is a cell of the holonomic heuristic grid.
type Node2d struct {
	gridX    int
	gridY    int
	index    string
	pathCost float64
	preNode  *Node2d
}

func newNode2d(gridX, gridY int) *Node2d {
	return &Node2d{
		gridX:    gridX,
		gridY:    gridY,
		index:    fmt.Sprintf("%d_%d", gridX, gridY),
		pathCost: math.Inf(1),
	}
}

// GridSearch builds and queries a 2d shortest-path cost field over the
// workspace. The field is a Dijkstra expansion from the goal over an
// 8-connected uniform grid with obstacle cells blocked, yielding an
// admissible holonomic-with-obstacles heuristic for the hybrid A* search.
type GridSearch struct {
	xyResolution float64
	xyBounds     []float64
	maxGridX     int
	maxGridY     int
	dpMap        map[string]*Node2d
	logger       golog.Logger
}

// NewGridSearch creates a heuristic generator with the planner's grid
// resolution.
func NewGridSearch(opts *PlannerOptions, logger golog.Logger) *GridSearch {
	return &GridSearch{
		xyResolution: opts.XYGridResolution,
		logger:       logger,
	}
}

func (gs *GridSearch) gridIndex(x, y float64) (int, int) {
	gx := int(math.Floor((x - gs.xyBounds[0]) / gs.xyResolution))
	gy := int(math.Floor((y - gs.xyBounds[2]) / gs.xyResolution))
	return gx, gy
}

func (gs *GridSearch) inGrid(gx, gy int) bool {
	return gx >= 0 && gx <= gs.maxGridX && gy >= 0 && gy <= gs.maxGridY
}

// cellBlocked reports whether any obstacle segment touches the cell's
// axis-aligned box.
func (gs *GridSearch) cellBlocked(gx, gy int, obstacleSegments [][]spatialmath.LineSegment) bool {
	center := r2.Point{
		X: gs.xyBounds[0] + (float64(gx)+0.5)*gs.xyResolution,
		Y: gs.xyBounds[2] + (float64(gy)+0.5)*gs.xyResolution,
	}
	cell := spatialmath.NewBox2d(center, 0, gs.xyResolution, gs.xyResolution)
	for _, segments := range obstacleSegments {
		for _, segment := range segments {
			if cell.HasOverlap(segment) {
				return true
			}
		}
	}
	return false
}

// GenerateDpMap computes the cost field from the goal cell to every reachable
// free cell inside the bounds.
func (gs *GridSearch) GenerateDpMap(
	ex, ey float64,
	xyBounds []float64,
	obstacleSegments [][]spatialmath.LineSegment,
) error {
	if len(xyBounds) != 4 {
		return errors.Errorf("xyBounds must hold [xmin, xmax, ymin, ymax], got %d values", len(xyBounds))
	}
	gs.xyBounds = xyBounds
	gs.maxGridX = int(math.Floor((xyBounds[1] - xyBounds[0]) / gs.xyResolution))
	gs.maxGridY = int(math.Floor((xyBounds[3] - xyBounds[2]) / gs.xyResolution))
	gs.dpMap = make(map[string]*Node2d)

	gx, gy := gs.gridIndex(ex, ey)
	if !gs.inGrid(gx, gy) {
		return errors.Errorf("goal (%.3f, %.3f) outside the workspace bounds", ex, ey)
	}

	blocked := make(map[string]bool)
	goal := newNode2d(gx, gy)
	goal.pathCost = 0
	gs.dpMap[goal.index] = goal

	openPQ := newNodeQueue()
	openPQ.push(goal.index, 0)

	expanded := 0
	for !openPQ.empty() {
		entry := openPQ.pop()
		current := gs.dpMap[entry.index]
		if entry.cost > current.pathCost {
			// stale entry from a later relaxation
			continue
		}
		expanded++
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := current.gridX+dx, current.gridY+dy
				if !gs.inGrid(nx, ny) {
					continue
				}
				index := fmt.Sprintf("%d_%d", nx, ny)
				isBlocked, known := blocked[index]
				if !known {
					isBlocked = gs.cellBlocked(nx, ny, obstacleSegments)
					blocked[index] = isBlocked
				}
				if isBlocked {
					continue
				}
				next, ok := gs.dpMap[index]
				if !ok {
					next = newNode2d(nx, ny)
					gs.dpMap[index] = next
				}
				edgeCost := 1.0
				if dx != 0 && dy != 0 {
					edgeCost = math.Sqrt2
				}
				if current.pathCost+edgeCost < next.pathCost {
					next.pathCost = current.pathCost + edgeCost
					next.preNode = current
					openPQ.push(next.index, next.pathCost)
				}
			}
		}
	}
	gs.logger.Debugf("dp map expanded %d cells", expanded)
	return nil
}

// CheckDpMap returns the holonomic cost-to-goal of the cell containing
// (x, y), or +Inf when the cell is unreachable or outside the bounds.
func (gs *GridSearch) CheckDpMap(x, y float64) float64 {
	gx, gy := gs.gridIndex(x, y)
	if !gs.inGrid(gx, gy) {
		return math.Inf(1)
	}
	node, ok := gs.dpMap[fmt.Sprintf("%d_%d", gx, gy)]
	if !ok {
		return math.Inf(1)
	}
	return node.pathCost * gs.xyResolution
}
