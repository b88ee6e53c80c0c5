// Package piecewisejerk formulates and solves the jerk-bounded speed
// smoothing problem: a quadratic program over a path position variable and
// its first two derivatives at uniformly spaced knots, with piecewise-linear
// acceleration between knots.
package piecewisejerk

import (
	"math"

	"github.com/pkg/errors"
)

// Problem is a piecewise-jerk QP over n knots spaced dt apart. The decision
// variables are x (position), dx (velocity), and ddx (acceleration) at each
// knot; jerk is the finite difference of ddx.
type Problem struct {
	n  int
	dt float64

	// objective weights: x, dx, ddx, jerk, reference tracking
	weights [5]float64

	initState [3]float64
	endState  [3]float64

	xLower, xUpper     float64
	dxLower, dxUpper   float64
	ddxLower, ddxUpper float64
	dddxBound          float64

	xRef []float64

	solX   []float64
	solDx  []float64
	solDdx []float64
}

// NewProblem creates a problem with fixed initial and terminal states.
// Weights order matches the s-curve configuration: position, velocity,
// acceleration, jerk, reference.
func NewProblem(n int, dt float64, weights [5]float64, initState, endState [3]float64) *Problem {
	return &Problem{
		n:         n,
		dt:        dt,
		weights:   weights,
		initState: initState,
		endState:  endState,
		xLower:    math.Inf(-1),
		xUpper:    math.Inf(1),
		dxLower:   math.Inf(-1),
		dxUpper:   math.Inf(1),
		ddxLower:  math.Inf(-1),
		ddxUpper:  math.Inf(1),
		dddxBound: math.Inf(1),
	}
}

// SetZeroOrderBounds bounds the position variable.
func (p *Problem) SetZeroOrderBounds(lower, upper float64) {
	p.xLower, p.xUpper = lower, upper
}

// SetFirstOrderBounds bounds the velocity variable.
func (p *Problem) SetFirstOrderBounds(lower, upper float64) {
	p.dxLower, p.dxUpper = lower, upper
}

// SetSecondOrderBounds bounds the acceleration variable.
func (p *Problem) SetSecondOrderBounds(lower, upper float64) {
	p.ddxLower, p.ddxUpper = lower, upper
}

// SetThirdOrderBound caps the jerk magnitude.
func (p *Problem) SetThirdOrderBound(bound float64) {
	p.dddxBound = bound
}

// SetZeroOrderReference sets the position tracking reference, one value per
// knot.
func (p *Problem) SetZeroOrderReference(ref []float64) {
	p.xRef = ref
}

// Optimize assembles and solves the QP. It returns an error when the
// formulation is inconsistent or the solver fails to converge.
func (p *Problem) Optimize() error {
	n := p.n
	if n < 2 {
		return errors.Errorf("need at least 2 knots, got %d", n)
	}
	if p.xRef != nil && len(p.xRef) != n {
		return errors.Errorf("reference length %d does not match knot count %d", len(p.xRef), n)
	}
	dt := p.dt
	dim := 3 * n

	// quadratic cost: 0.5 x'Px + q'x
	pDiag := make([]float64, dim)
	qVec := make([]float64, dim)
	trackWeight := p.weights[0] + p.weights[4]
	for i := 0; i < n; i++ {
		pDiag[i] = trackWeight
		pDiag[n+i] = p.weights[1]
		pDiag[2*n+i] = p.weights[2]
		if p.xRef != nil {
			qVec[i] = -trackWeight * p.xRef[i]
		}
	}
	// jerk term couples consecutive accelerations
	jerkWeight := p.weights[3] / (dt * dt)
	offDiag := make([]float64, dim) // offDiag[i] couples variable i with i+1
	for i := 0; i+1 < n; i++ {
		pDiag[2*n+i] += jerkWeight
		pDiag[2*n+i+1] += jerkWeight
		offDiag[2*n+i] = -jerkWeight
	}

	// linear constraints l <= Ax <= u, assembled sparsely as row triplets
	var rows []constraintRow
	addRow := func(lower, upper float64, cols []int, coeffs []float64) {
		rows = append(rows, constraintRow{lower: lower, upper: upper, cols: cols, coeffs: coeffs})
	}
	// variable bounds
	for i := 0; i < n; i++ {
		addRow(p.xLower, p.xUpper, []int{i}, []float64{1})
		addRow(p.dxLower, p.dxUpper, []int{n + i}, []float64{1})
		addRow(p.ddxLower, p.ddxUpper, []int{2*n + i}, []float64{1})
	}
	// jerk bounds
	for i := 0; i+1 < n; i++ {
		addRow(-p.dddxBound*dt, p.dddxBound*dt,
			[]int{2*n + i, 2*n + i + 1}, []float64{-1, 1})
	}
	// velocity continuity: dx[i+1] = dx[i] + (ddx[i] + ddx[i+1]) dt / 2
	for i := 0; i+1 < n; i++ {
		addRow(0, 0,
			[]int{n + i + 1, n + i, 2*n + i, 2*n + i + 1},
			[]float64{1, -1, -dt / 2, -dt / 2})
	}
	// position continuity: x[i+1] = x[i] + dx[i] dt + ddx[i] dt^2/3 + ddx[i+1] dt^2/6
	for i := 0; i+1 < n; i++ {
		addRow(0, 0,
			[]int{i + 1, i, n + i, 2*n + i, 2*n + i + 1},
			[]float64{1, -1, -dt, -dt * dt / 3, -dt * dt / 6})
	}
	// pinned initial and terminal states
	addRow(p.initState[0], p.initState[0], []int{0}, []float64{1})
	addRow(p.initState[1], p.initState[1], []int{n}, []float64{1})
	addRow(p.initState[2], p.initState[2], []int{2 * n}, []float64{1})
	addRow(p.endState[0], p.endState[0], []int{n - 1}, []float64{1})
	addRow(p.endState[1], p.endState[1], []int{2*n - 1}, []float64{1})
	addRow(p.endState[2], p.endState[2], []int{3*n - 1}, []float64{1})

	// warm start on the reference
	warm := make([]float64, dim)
	if p.xRef != nil {
		copy(warm, p.xRef)
	}

	solution, err := solveBoxQP(dim, pDiag, offDiag, qVec, rows, warm)
	if err != nil {
		return err
	}
	p.solX = solution[:n]
	p.solDx = solution[n : 2*n]
	p.solDdx = solution[2*n:]
	return nil
}

// X returns the optimized positions.
func (p *Problem) X() []float64 { return p.solX }

// XDerivative returns the optimized velocities.
func (p *Problem) XDerivative() []float64 { return p.solDx }

// XSecondDerivative returns the optimized accelerations.
func (p *Problem) XSecondDerivative() []float64 { return p.solDdx }
