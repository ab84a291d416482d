// Package surfacemodel evaluates a fitted bivariate polynomial surface and
// its gradient. Both functions are pure: they take the coefficient matrix
// produced by surfacefit.Fit (or any mat.Matrix of the same shape) and
// return a value with no retained state.
package surfacemodel

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Evaluate returns z_surface(x,y) = sum_i sum_j C[i][j] * x^i * y^j for the
// (xDeg+1)x(yDeg+1) coefficient matrix c.
func Evaluate(x, y float64, c mat.Matrix) float64 {
	rows, cols := c.Dims()
	z := 0.0
	xp := 1.0
	for i := 0; i < rows; i++ {
		yp := 1.0
		for j := 0; j < cols; j++ {
			z += c.At(i, j) * xp * yp
			yp *= y
		}
		xp *= x
	}
	return z
}

// Gradient returns (dz/dx, dz/dy, 0) of the surface at (x,y):
//
//	dz/dx = sum_{i>0} sum_j  C[i][j] * i * x^(i-1) * y^j
//	dz/dy = sum_i sum_{j>0}  C[i][j] * j * x^i     * y^(j-1)
func Gradient(x, y float64, c mat.Matrix) r3.Vec {
	rows, cols := c.Dims()
	var dx, dy float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			coeff := c.At(i, j)
			if coeff == 0 {
				continue
			}
			if i > 0 {
				dx += coeff * float64(i) * math.Pow(x, float64(i-1)) * math.Pow(y, float64(j))
			}
			if j > 0 {
				dy += coeff * math.Pow(x, float64(i)) * float64(j) * math.Pow(y, float64(j-1))
			}
		}
	}
	return r3.Vec{dx, dy, 0}
}
