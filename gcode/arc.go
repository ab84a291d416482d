package gcode

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/willmac16/gcodeleveling/vecmath"
)

// arcGeometry is the fully resolved circular path between current and
// next: its center, signed swept angle (radians; negative is clockwise,
// per §4.4), and radius. ok is false only for an R-mode arc whose chord
// was geometrically impossible (§7 GeometryImpossible) — callers must
// pass the input line through unchanged in that case.
type arcGeometry struct {
	center r3.Vec
	angle  float64
	radius float64
	ok     bool
}

// resolveArc dispatches on next.arcMode. IJ mode always succeeds; R mode
// can report a geometrically impossible chord.
func resolveArc(cur, next *MachineState, logger Logger) arcGeometry {
	var geo arcGeometry
	if next.arcMode == ArcModeR {
		geo = arcCenterR(cur, next, logger)
	} else {
		geo = arcCenterIJ(cur, next)
	}
	if geo.ok {
		next.arcCenter = geo.center
	}
	return geo
}

// sweptAngle returns the signed angle from toCur to toNext about their
// shared origin (the arc center), resolving the short-way/long-way
// ambiguity by the commanded direction (§4.4): the cross product's Z sign
// gives the geometric (counter-clockwise-positive) turn; if that
// disagrees with the commanded direction (G3 = CCW), the long way around
// is taken instead. The final sign is negative for G2, positive for G3.
func sweptAngle(toCur, toNext r3.Vec, moveMode int) float64 {
	dot := vecmath.Dot(toCur, toNext)
	cross := vecmath.Cross(toCur, toNext)
	beta := math.Atan2(vecmath.Magnitude(cross), dot)

	crossIsClockwise := cross.Z() < 0
	commandedCCW := moveMode == MoveModeCCWArc
	if crossIsClockwise == commandedCCW {
		beta = 2*math.Pi - beta
	}
	if moveMode == MoveModeCWArc {
		beta = -beta
	}
	return beta
}

// arcCenterIJ computes the IJ-mode arc center. Per SUPPLEMENTED FEATURES
// point 2, its Z is the midpoint of the two endpoints' absolute Z, not
// current's alone — Z is never read back out of the center by any
// consumer, but the construction follows the source faithfully. The swept
// angle and the radius are computed from the XY-plane projection of the two
// radius vectors (parse.cpp's own radius/arm vectors are built with Z forced
// to 0) so that a helical move — endpoints differing in Z, which the spec's
// Non-goals don't exclude — doesn't inflate the cross product and skew the
// angle.
func arcCenterIJ(cur, next *MachineState) arcGeometry {
	center := r3.Vec{
		cur.absPos.X() + next.i,
		cur.absPos.Y() + next.j,
		(cur.absPos.Z() + next.absPos.Z()) / 2,
	}
	toCur := cur.absPos.Sub(center)
	toNext := next.absPos.Sub(center)

	flatCur := r3.Vec{toCur.X(), toCur.Y(), 0}
	flatNext := r3.Vec{toNext.X(), toNext.Y(), 0}

	return arcGeometry{
		center: center,
		angle:  sweptAngle(flatCur, flatNext, next.moveMode),
		radius: vecmath.Magnitude(flatCur),
		ok:     true,
	}
}

// arcCenterR computes the R-mode arc center from the chord between
// current and next. Per SUPPLEMENTED FEATURES point 3, the chord is
// flipped by the commanded direction (rotModify) *before* taking its
// perpendicular, reproducing the original's sign-flip-then-perpendicular
// order. Perp and Normalize both commute with negation, so this picks the
// same center as choosing the perpendicular's sign directly.
func arcCenterR(cur, next *MachineState, logger Logger) arcGeometry {
	chord := next.absPos.Sub(cur.absPos)
	d := vecmath.Magnitude(chord)
	r := next.r

	// Compared against the signed r, not abs(r): a negative R with any
	// positive chord length is impossible too, since 2r is negative.
	if d == 0 || d > 2*r {
		logger.Info("R-mode arc chord geometrically impossible, passing through unchanged")
		return arcGeometry{ok: false}
	}

	rotModify := 1.0
	if next.moveMode == MoveModeCWArc {
		rotModify = -1.0
	}
	perp := vecmath.Perp(chord.Scale(rotModify))
	qLen := math.Sqrt(r*r - (d*d)/4)
	q := vecmath.Normalize(perp).Scale(qLen)

	center := cur.absPos.Add(chord.Scale(0.5)).Add(q)
	toCur := cur.absPos.Sub(center)
	toNext := next.absPos.Sub(center)

	return arcGeometry{
		center: center,
		angle:  sweptAngle(toCur, toNext, next.moveMode),
		radius: math.Abs(r),
		ok:     true,
	}
}
