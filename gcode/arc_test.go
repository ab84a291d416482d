package gcode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const arcTol = 1e-9

// A quarter turn from (1,0,0) to (0,1,0) around the origin, commanded as
// a G3 (CCW), resolves to a +90 degree swept angle without needing the
// long-way-around flip.
func TestArcCenterIJQuarterTurnCCW(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{1, 0, 0}
	next := newMachineState()
	next.absPos = r3.Vec{0, 1, 0}
	next.moveMode = MoveModeCCWArc
	next.i, next.j = -1, 0

	geo := arcCenterIJ(&cur, &next)
	require.True(t, geo.ok)
	require.InDelta(t, 0.0, geo.center.X(), arcTol)
	require.InDelta(t, 0.0, geo.center.Y(), arcTol)
	require.InDelta(t, 1.0, geo.radius, arcTol)
	require.InDelta(t, math.Pi/2, geo.angle, arcTol)
}

// The same two endpoints commanded as G2 (CW) disagree with the
// geometric (CCW) turn between them, so the long way around is taken
// and the final sign is forced negative.
func TestArcCenterIJQuarterTurnCWTakesLongWay(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{1, 0, 0}
	next := newMachineState()
	next.absPos = r3.Vec{0, 1, 0}
	next.moveMode = MoveModeCWArc
	next.i, next.j = -1, 0

	geo := arcCenterIJ(&cur, &next)
	require.True(t, geo.ok)
	require.InDelta(t, -3*math.Pi/2, geo.angle, arcTol)
}

// A helical IJ arc — endpoints differing in Z, which the spec's Non-goals
// don't exclude — must not have its swept angle skewed by the nonzero Z
// component of the radius vectors: the angle comes out the same as the
// flat (same-Z) quarter turn above.
func TestArcCenterIJDifferingZDoesNotInflateAngle(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{1, 0, 5}
	next := newMachineState()
	next.absPos = r3.Vec{0, 1, 0}
	next.moveMode = MoveModeCCWArc
	next.i, next.j = -1, 0

	geo := arcCenterIJ(&cur, &next)
	require.True(t, geo.ok)
	require.InDelta(t, math.Pi/2, geo.angle, arcTol)
}

// R-mode arc center for a half-turn: chord length equals 2r exactly, the
// boundary of validity, so the center sits at the chord midpoint.
func TestArcCenterRHalfTurn(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{-1, 0, 0}
	next := newMachineState()
	next.absPos = r3.Vec{1, 0, 0}
	next.moveMode = MoveModeCCWArc
	next.r = 1
	next.arcMode = ArcModeR

	geo := resolveArc(&cur, &next, NewNoopLogger())
	require.True(t, geo.ok)
	require.InDelta(t, 0.0, geo.center.X(), arcTol)
	require.InDelta(t, 0.0, geo.center.Y(), arcTol)
}

// A chord longer than 2r is geometrically impossible (§7); resolveArc
// reports it rather than panicking or fabricating a center.
func TestArcCenterRInvalidChordTooLong(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{0, 0, 0}
	next := newMachineState()
	next.absPos = r3.Vec{10, 0, 0}
	next.moveMode = MoveModeCCWArc
	next.r = 1
	next.arcMode = ArcModeR

	geo := resolveArc(&cur, &next, NewNoopLogger())
	require.False(t, geo.ok)
}

// A negative R is compared against its signed value, not its magnitude: any
// positive chord length exceeds 2r once r is negative, so this is
// impossible too, not a mirrored valid arc.
func TestArcCenterRInvalidNegativeRadiusWithPositiveChord(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{0, 0, 0}
	next := newMachineState()
	next.absPos = r3.Vec{1, 0, 0}
	next.moveMode = MoveModeCCWArc
	next.r = -1
	next.arcMode = ArcModeR

	geo := resolveArc(&cur, &next, NewNoopLogger())
	require.False(t, geo.ok)
}

// A zero-length chord is likewise impossible.
func TestArcCenterRInvalidZeroChord(t *testing.T) {
	cur := newMachineState()
	cur.absPos = r3.Vec{3, 3, 0}
	next := newMachineState()
	next.absPos = r3.Vec{3, 3, 0}
	next.moveMode = MoveModeCCWArc
	next.r = 1
	next.arcMode = ArcModeR

	geo := resolveArc(&cur, &next, NewNoopLogger())
	require.False(t, geo.ok)
}
