package gcode

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/willmac16/gcodeleveling/surfacemodel"
	"github.com/willmac16/gcodeleveling/vecmath"
)

// Numerical constants of the subdivider (§9): surfaced for clarity, not
// for tuning — an implementation is not expected to expose these.
const (
	minDer     = 1e-4
	minDev     = 0.25
	telo       = 0.01
	stepBail   = 1000
	stepScaler = 0.1
	numProbes  = 10
)

// pathFunc returns the (x,y,z) point at progress t along a move; dpath
// returns dp/dt at t. Both are supplied per path kind by linePos/lineDPos
// or arcPos/arcDPos below.
type pathFunc func(t float64) r3.Vec

// deviation returns D(t) = (z_surface(p(t)) - h(t))^2 and its derivative,
// per §4.4's subdivision formula: h(t) is the linear interpolation of the
// two endpoints' cached modelHeight, and D'(t) uses the surface gradient
// dotted with dp/dt against the constant rate of change of h.
func deviation(t float64, pos, dpos pathFunc, h0, h1 float64, c mat.Matrix) (d, der float64) {
	p := pos(t)
	z := surfacemodel.Evaluate(p.X(), p.Y(), c)
	h := h0 + t*(h1-h0)
	diff := z - h

	grad := surfacemodel.Gradient(p.X(), p.Y(), c)
	dzdt := vecmath.Dot(grad, dpos(t)) - (h1 - h0)

	return diff * diff, 2 * diff * dzdt
}

// worstPoint implements §4.4's subdivision procedure: a 10-probe initial
// sample followed by bounded gradient ascent on D(t), accepting the
// result only if it lands strictly inside the interior band (telo, 1-telo)
// and its deviation exceeds minDev. ok is false when no such point exists
// and the move should be emitted as a single segment.
func worstPoint(pos, dpos pathFunc, h0, h1 float64, c mat.Matrix) (t, d float64, ok bool) {
	bestT, bestD := 0.0, math.Inf(-1)
	for p := 0; p < numProbes; p++ {
		probe := float64(p) / numProbes
		pd, _ := deviation(probe, pos, dpos, h0, h1, c)
		if pd > bestD {
			bestD, bestT = pd, probe
		}
	}

	t = bestT
	for step := 0; step < stepBail; step++ {
		_, der := deviation(t, pos, dpos, h0, h1, c)
		if math.Abs(der) < minDer {
			break
		}
		t += stepScaler * der
		if t <= telo || t >= 1-telo {
			break
		}
	}

	d, _ = deviation(t, pos, dpos, h0, h1, c)
	if t > telo && t < 1-telo && d > minDev {
		return t, d, true
	}
	return 0, 0, false
}

// linePos and lineDPos give the straight-line path and its (constant)
// derivative between current.absPos and next.absPos, z forced to 0 in
// the derivative per §4.4.
func linePos(cur, next *MachineState) pathFunc {
	start := cur.absPos
	delta := next.absPos.Sub(cur.absPos)
	return func(t float64) r3.Vec { return start.Add(delta.Scale(t)) }
}

func lineDPos(cur, next *MachineState) pathFunc {
	delta := next.absPos.Sub(cur.absPos)
	d := r3.Vec{delta.X(), delta.Y(), 0}
	return func(float64) r3.Vec { return d }
}

// arcPos returns the point at progress t along the resolved arc.
func arcPos(cur *MachineState, geo arcGeometry) pathFunc {
	radiusVec := cur.absPos.Sub(geo.center)
	return func(t float64) r3.Vec {
		return geo.center.Add(vecmath.Rotate(radiusVec, t*geo.angle))
	}
}

// arcDPos returns the subdivider's tangent-direction heuristic: the
// current-to-center radius vector rotated by progress angle then by
// ±π/4, sign from the commanded direction. Per §9 point 3 this is not the
// true tangent (±π/2) — it is reproduced exactly, not corrected, since
// gradient ascent on a scalar objective still converges with a skewed
// step direction.
func arcDPos(cur *MachineState, geo arcGeometry, moveMode int) pathFunc {
	radiusVec := cur.absPos.Sub(geo.center)
	quarter := math.Pi / 4
	if moveMode == MoveModeCWArc {
		quarter = -quarter
	}
	return func(t float64) r3.Vec {
		return vecmath.Rotate(radiusVec, t*geo.angle+quarter)
	}
}

// splitLine builds the intermediate state at progress t of a linear move
// and shrinks next to cover only the remainder, per §4.4's construction
// rules. extraArgs transfers to the first (earlier) half; next's clears.
func splitLine(t float64, cur, next *MachineState, c mat.Matrix) MachineState {
	worst := *next

	if next.extruderMode == ExtruderRelative {
		worst.e = next.e * t
		next.e *= 1 - t
	} else {
		worst.e = cur.e + t*(next.e-cur.e)
	}

	worst.absPos = cur.absPos.Add(next.absPos.Sub(cur.absPos).Scale(t))
	switch next.moveMode {
	case MoveModeRapid:
		worst.pos = next.pos.Scale(t)
		next.pos = next.pos.Scale(1 - t)
	case MoveModeLinear:
		worst.pos = worst.absPos.Sub(worst.posOffset)
	}

	worst.extraArgs = next.extraArgs
	next.extraArgs = ""

	worst.computeModelHeight(c)
	return worst
}

// splitArc builds the intermediate state at progress t of an arc move.
// If the arc is IJ mode, next's I/J are adjusted to again point from the
// new starting point (the split point) to the (unchanged) center.
func splitArc(t float64, cur, next *MachineState, geo arcGeometry, c mat.Matrix) MachineState {
	worst := *next

	if next.extruderMode == ExtruderRelative {
		worst.e = next.e * t
		next.e *= 1 - t
	} else {
		worst.e = cur.e + t*(next.e-cur.e)
	}

	radiusVec := cur.absPos.Sub(geo.center)
	worst.absPos = geo.center.Add(vecmath.Rotate(radiusVec, t*geo.angle))

	if next.arcMode == ArcModeIJ {
		toCenter := geo.center.Sub(worst.absPos)
		next.i = toCenter.X()
		next.j = toCenter.Y()
	}

	worst.arcAngle = t * geo.angle
	next.arcAngle = (1 - t) * geo.angle

	worst.extraArgs = next.extraArgs
	next.extraArgs = ""

	worst.computeModelHeight(c)
	return worst
}
