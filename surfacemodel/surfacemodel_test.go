package surfacemodel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tol = 1e-9

func TestEvaluateConstant(t *testing.T) {
	c := mat.NewDense(1, 1, []float64{1.0})
	if got := Evaluate(5, -3, c); math.Abs(got-1) > tol {
		t.Errorf("Evaluate = %v, want 1", got)
	}
}

func TestEvaluateLinearInX(t *testing.T) {
	// z = 0.01x
	c := mat.NewDense(2, 1, []float64{0, 0.01})
	if got := Evaluate(100, 0, c); math.Abs(got-1) > tol {
		t.Errorf("Evaluate(100,0) = %v, want 1", got)
	}
	if got := Evaluate(0, 50, c); math.Abs(got-0) > tol {
		t.Errorf("Evaluate(0,50) = %v, want 0", got)
	}
}

func TestGradientQuadratic(t *testing.T) {
	// z = 0.01x^2: dz/dx = 0.02x, dz/dy = 0
	c := mat.NewDense(3, 1, []float64{0, 0, 0.01})
	g := Gradient(10, 3, c)
	if math.Abs(g.X()-0.2) > tol {
		t.Errorf("dz/dx = %v, want 0.2", g.X())
	}
	if math.Abs(g.Y()) > tol {
		t.Errorf("dz/dy = %v, want 0", g.Y())
	}
	if g.Z() != 0 {
		t.Errorf("dz/dz = %v, want 0", g.Z())
	}
}

func TestGradientMixed(t *testing.T) {
	// z = 2*x*y: dz/dx = 2y, dz/dy = 2x
	c := mat.NewDense(2, 2, []float64{0, 0, 0, 2})
	g := Gradient(3, 4, c)
	if math.Abs(g.X()-8) > tol {
		t.Errorf("dz/dx = %v, want 8", g.X())
	}
	if math.Abs(g.Y()-6) > tol {
		t.Errorf("dz/dy = %v, want 6", g.Y())
	}
}
