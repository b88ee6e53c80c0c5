package piecewisejerk

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// solver parameters. Equality rows get a much stiffer penalty, the usual
// ADMM treatment for mixed equality/inequality constraint sets.
const (
	admmSigma   = 1e-6
	admmRho     = 0.1
	admmRhoEq   = 1e3 * admmRho
	admmEps     = 1e-4
	admmMaxIter = 5000
)

// constraintRow is one sparse row of the constraint matrix with its bounds.
type constraintRow struct {
	lower  float64
	upper  float64
	cols   []int
	coeffs []float64
}

// solveBoxQP minimizes 0.5 x'Px + q'x subject to l <= Ax <= u with ADMM.
// P is symmetric tridiagonal, given by its diagonal and superdiagonal; A is
// given row-sparse. A single Cholesky factorization of P + sigma I +
// A' diag(rho) A is reused across iterations.
func solveBoxQP(
	dim int,
	pDiag, pOffDiag, q []float64,
	rows []constraintRow,
	warm []float64,
) ([]float64, error) {
	m := len(rows)
	rho := make([]float64, m)
	for r, row := range rows {
		if row.lower == row.upper {
			rho[r] = admmRhoEq
		} else {
			rho[r] = admmRho
		}
	}

	kkt := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		kkt.SetSym(i, i, pDiag[i]+admmSigma)
	}
	for i := 0; i+1 < dim; i++ {
		if pOffDiag[i] != 0 {
			kkt.SetSym(i, i+1, pOffDiag[i])
		}
	}
	for r, row := range rows {
		for a, ca := range row.cols {
			for b, cb := range row.cols {
				if ca > cb {
					continue
				}
				kkt.SetSym(ca, cb, kkt.At(ca, cb)+rho[r]*row.coeffs[a]*row.coeffs[b])
			}
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(kkt); !ok {
		return nil, errors.New("piecewise jerk kkt matrix is not positive definite")
	}

	mulA := func(x []float64, out []float64) {
		for r, row := range rows {
			v := 0.0
			for k, c := range row.cols {
				v += row.coeffs[k] * x[c]
			}
			out[r] = v
		}
	}

	x := make([]float64, dim)
	copy(x, warm)
	ax := make([]float64, m)
	mulA(x, ax)
	z := make([]float64, m)
	zOld := make([]float64, m)
	y := make([]float64, m)
	for r, row := range rows {
		z[r] = math.Min(math.Max(ax[r], row.lower), row.upper)
	}

	rhs := mat.NewVecDense(dim, nil)
	sol := mat.NewVecDense(dim, nil)
	atW := make([]float64, dim)

	for iter := 0; iter < admmMaxIter; iter++ {
		// x-update
		for i := range atW {
			atW[i] = 0
		}
		for r, row := range rows {
			w := rho[r]*z[r] - y[r]
			for k, c := range row.cols {
				atW[c] += row.coeffs[k] * w
			}
		}
		for i := 0; i < dim; i++ {
			rhs.SetVec(i, admmSigma*x[i]-q[i]+atW[i])
		}
		if err := chol.SolveVecTo(sol, rhs); err != nil {
			return nil, errors.Wrap(err, "piecewise jerk kkt solve failed")
		}
		for i := 0; i < dim; i++ {
			x[i] = sol.AtVec(i)
		}

		// z-update and dual update
		mulA(x, ax)
		copy(zOld, z)
		primal := 0.0
		for r, row := range rows {
			z[r] = math.Min(math.Max(ax[r]+y[r]/rho[r], row.lower), row.upper)
			y[r] += rho[r] * (ax[r] - z[r])
			if res := math.Abs(ax[r] - z[r]); res > primal {
				primal = res
			}
		}

		dual := 0.0
		for i := range atW {
			atW[i] = 0
		}
		for r, row := range rows {
			dz := rho[r] * (z[r] - zOld[r])
			for k, c := range row.cols {
				atW[c] += row.coeffs[k] * dz
			}
		}
		for i := 0; i < dim; i++ {
			if res := math.Abs(atW[i]); res > dual {
				dual = res
			}
		}

		if math.IsNaN(primal) || math.IsNaN(dual) {
			return nil, errors.New("piecewise jerk solver diverged")
		}
		if primal < admmEps && dual < admmEps {
			return x, nil
		}
	}
	return nil, errors.New("piecewise jerk solver did not converge within the iteration limit")
}
