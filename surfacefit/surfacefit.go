// Package surfacefit computes least-squares bivariate polynomial
// coefficients from scattered probe samples, solving the normal-equations
// linear system by Gauss-Jordan elimination to reduced row-echelon form.
//
// The elimination deliberately uses no partial pivoting: the first row
// with a non-zero value in the pivot column is accepted outright. This is
// a known numerical-robustness weakness of the source this package
// reproduces — ill-conditioned systems (near-collinear samples, too few
// samples for the requested degree) can yield large error. See DESIGN.md.
package surfacefit

import "gonum.org/v1/gonum/mat"

// Sample is a single calibration probe reading: z is the signed surface
// offset from nominal at (x, y).
type Sample struct {
	X, Y, Z float64
}

// Fit computes the (xDeg+1)x(yDeg+1) coefficient matrix C of the bivariate
// polynomial
//
//	z(x,y) = sum_i sum_j C[i][j] * x^i * y^j
//
// that least-squares fits samples, for i in [0,xDeg] and j in [0,yDeg].
// The caller must supply at least (xDeg+1)*(yDeg+1) samples; fewer samples,
// or samples degenerate for the requested degree (e.g. collinear points for
// a 2-D fit), yield a finite but mathematically undefined result rather
// than an error — there is no numeric precondition this package enforces.
func Fit(samples []Sample, xDeg, yDeg int) *mat.Dense {
	yCombo := yDeg + 1
	k := (xDeg + 1) * yCombo

	// Power sums sigma(p,q) = sum_n x_n^p * y_n^q are reused across many
	// (i1,j1,i2,j2) combinations, so they are precomputed once up to the
	// maximum exponent either side of the normal equations needs.
	maxPow := 2 * xDeg
	maxPowY := 2 * yDeg
	sigma := make([][]float64, maxPow+1)
	for p := range sigma {
		sigma[p] = make([]float64, maxPowY+1)
	}
	// sigmaZ(i,j) = sum_n x_n^i * y_n^j * z_n, needed only up to degree xDeg/yDeg.
	sigmaZ := make([][]float64, xDeg+1)
	for i := range sigmaZ {
		sigmaZ[i] = make([]float64, yDeg+1)
	}

	xPow := make([]float64, maxPow+1)
	yPow := make([]float64, maxPowY+1)
	for _, s := range samples {
		xPow[0] = 1
		for p := 1; p <= maxPow; p++ {
			xPow[p] = xPow[p-1] * s.X
		}
		yPow[0] = 1
		for q := 1; q <= maxPowY; q++ {
			yPow[q] = yPow[q-1] * s.Y
		}
		for p := 0; p <= maxPow; p++ {
			row := sigma[p]
			xp := xPow[p]
			for q := 0; q <= maxPowY; q++ {
				row[q] += xp * yPow[q]
			}
		}
		for i := 0; i <= xDeg; i++ {
			row := sigmaZ[i]
			xp := xPow[i]
			for j := 0; j <= yDeg; j++ {
				row[j] += xp * yPow[j] * s.Z
			}
		}
	}

	// Augmented matrix: K rows, K+1 columns (last column is b).
	aug := mat.NewDense(k, k+1, nil)
	for t1 := 0; t1 < k; t1++ {
		i1, j1 := t1/yCombo, t1%yCombo
		for t2 := 0; t2 < k; t2++ {
			i2, j2 := t2/yCombo, t2%yCombo
			aug.Set(t1, t2, sigma[i1+i2][j1+j2])
		}
		aug.Set(t1, k, sigmaZ[i1][j1])
	}

	c := gaussJordan(aug, k)

	coeffs := mat.NewDense(xDeg+1, yCombo, nil)
	for t := 0; t < k; t++ {
		i, j := t/yCombo, t%yCombo
		coeffs.Set(i, j, c[t])
	}
	return coeffs
}

// gaussJordan reduces the k-row, k+1-column augmented matrix aug to
// reduced row-echelon form in place and returns the solution vector
// extracted from the rightmost column of each row whose pivot lands in
// column t. A column with no non-zero candidate row is a free column: it
// is skipped, and the corresponding entry of the returned vector is left
// at its zero value (§4.2's elimination policy, §9 point 6).
func gaussJordan(aug *mat.Dense, k int) []float64 {
	for col := 0; col < k; col++ {
		pivot := -1
		for row := col; row < k; row++ {
			if aug.At(row, col) != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			continue
		}

		if pivot != col {
			swapRows(aug, pivot, col, k+1)
		}

		lead := aug.At(col, col)
		for c := 0; c <= k; c++ {
			aug.Set(col, c, aug.At(col, c)/lead)
		}

		for row := 0; row < k; row++ {
			if row == col {
				continue
			}
			factor := aug.At(row, col)
			if factor == 0 {
				continue
			}
			for c := 0; c <= k; c++ {
				aug.Set(row, c, aug.At(row, c)-factor*aug.At(col, c))
			}
		}
	}

	out := make([]float64, k)
	for row := 0; row < k; row++ {
		for col := 0; col < k; col++ {
			if aug.At(row, col) == 1 {
				out[col] = aug.At(row, k)
				break
			}
		}
	}
	return out
}

func swapRows(m *mat.Dense, r1, r2, cols int) {
	for c := 0; c < cols; c++ {
		a, b := m.At(r1, c), m.At(r2, c)
		m.Set(r1, c, b)
		m.Set(r2, c, a)
	}
}
