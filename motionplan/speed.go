package motionplan

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/popov1212/apollo/motionplan/piecewisejerk"
)

// Longitudinal acceleration envelope applied in the s-curve profile, m/s^2.
const (
	sCurveMinAcceleration = -4.4
	sCurveMaxAcceleration = 10.0
)

// generateSpeedAcceleration derives velocity, acceleration, and steering from
// the geometric path by finite differencing at the output interval.
func (h *HybridAStar) generateSpeedAcceleration(result *HybridAStarResult) error {
	if len(result.X) < 2 || len(result.Y) < 2 || len(result.Phi) < 2 {
		return errors.New("result size check when generating speed and acceleration failed")
	}
	deltaT := h.opts.DeltaT
	xSize := len(result.X)

	// load velocity from position
	for i := 0; i+1 < xSize; i++ {
		discreteV := ((result.X[i+1]-result.X[i])/deltaT)*math.Cos(result.Phi[i]) +
			((result.Y[i+1]-result.Y[i])/deltaT)*math.Sin(result.Phi[i])
		result.V = append(result.V, discreteV)
	}
	result.V = append(result.V, 0)

	// load acceleration from velocity
	for i := 0; i+1 < xSize; i++ {
		result.A = append(result.A, (result.V[i+1]-result.V[i])/deltaT)
	}

	// load steering from phi
	for i := 0; i+1 < xSize; i++ {
		discreteSteer := (result.Phi[i+1] - result.Phi[i]) *
			h.vehicle.WheelBase / h.opts.StepSize
		if result.V[i] > 0 {
			discreteSteer = math.Atan(discreteSteer)
		} else {
			discreteSteer = math.Atan(-discreteSteer)
		}
		result.Steer = append(result.Steer, discreteSteer)
	}
	return nil
}

// generateSCurveSpeedAcceleration fits a jerk-bounded speed profile over the
// geometric path with a piecewise-jerk QP, using the finite-difference
// accumulated arc as the tracking reference.
func (h *HybridAStar) generateSCurveSpeedAcceleration(result *HybridAStarResult) error {
	if len(result.X) < 2 || len(result.Y) < 2 || len(result.Phi) < 2 {
		return errors.New("result size check when generating speed and acceleration failed")
	}
	deltaT := h.opts.DeltaT
	xSize := len(result.X)

	accumulatedS := 0.0
	result.AccumulatedS = append(result.AccumulatedS, 0)
	result.V = append(result.V, 0)
	for i := 0; i+1 < xSize; i++ {
		discreteV := ((result.X[i+1]-result.X[i])/deltaT)*math.Cos(result.Phi[i]) +
			((result.Y[i+1]-result.Y[i])/deltaT)*math.Sin(result.Phi[i])
		accumulatedS += discreteV * deltaT
		result.V = append(result.V, discreteV)
		result.AccumulatedS = append(result.AccumulatedS, accumulatedS)
	}
	result.V[xSize-1] = 0

	w := [5]float64{
		h.opts.SCurve.SWeight,
		h.opts.SCurve.VelocityWeight,
		h.opts.SCurve.AccWeight,
		h.opts.SCurve.JerkWeight,
		h.opts.SCurve.RefWeight,
	}
	initS := [3]float64{
		result.AccumulatedS[0],
		result.V[0],
		(result.V[1] - result.V[0]) / deltaT,
	}
	endS := [3]float64{result.AccumulatedS[xSize-1], 0, 0}

	problem := piecewisejerk.NewProblem(xSize, deltaT, w, initS, endS)
	problem.SetZeroOrderBounds(
		floats.Min(result.AccumulatedS)-10, floats.Max(result.AccumulatedS)+10)
	problem.SetFirstOrderBounds(floats.Min(result.V)-10, floats.Max(result.V)+10)
	problem.SetSecondOrderBounds(sCurveMinAcceleration, sCurveMaxAcceleration)
	problem.SetThirdOrderBound(h.opts.LongitudinalJerkBound)
	problem.SetZeroOrderReference(result.AccumulatedS)

	if err := problem.Optimize(); err != nil {
		return errors.Wrap(err, "piecewise jerk speed optimizer failed")
	}

	result.AccumulatedS = problem.X()
	result.V = problem.XDerivative()
	acc := problem.XSecondDerivative()
	result.A = acc[:len(acc)-1]

	// load steering from phi with the optimized velocity signs
	for i := 0; i+1 < xSize; i++ {
		discreteSteer := (result.Phi[i+1] - result.Phi[i]) *
			h.vehicle.WheelBase / h.opts.StepSize
		if result.V[i] > 0 {
			discreteSteer = math.Atan(discreteSteer)
		} else {
			discreteSteer = math.Atan(-discreteSteer)
		}
		result.Steer = append(result.Steer, discreteSteer)
	}
	return nil
}
