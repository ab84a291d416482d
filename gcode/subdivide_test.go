package gcode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// steepParabola is z = 0.1*x^2: a scaled-up instance of the S5 scenario
// (spec.md §8), steep enough that the mid-segment deviation clears
// minDev for a 10-unit move, unlike the gentler 0.01*x^2 illustration.
func steepParabola() *mat.Dense {
	return mat.NewDense(3, 1, []float64{0, 0, 0.1})
}

func TestWorstPointFindsMidpointOfSteepParabola(t *testing.T) {
	c := steepParabola()
	cur := &MachineState{absPos: r3.Vec{0, 0, 0}}
	next := &MachineState{absPos: r3.Vec{10, 0, 0}}
	cur.computeModelHeight(c)
	next.computeModelHeight(c)

	pos := linePos(cur, next)
	dpos := lineDPos(cur, next)
	tBest, d, ok := worstPoint(pos, dpos, cur.modelHeight, next.modelHeight, c)

	require.True(t, ok)
	require.InDelta(t, 0.5, tBest, 1e-6)
	require.Greater(t, d, minDev)
}

func TestWorstPointRejectsFlatSurface(t *testing.T) {
	c := mat.NewDense(1, 1, []float64{0})
	cur := &MachineState{absPos: r3.Vec{0, 0, 0}}
	next := &MachineState{absPos: r3.Vec{10, 0, 0}}

	pos := linePos(cur, next)
	dpos := lineDPos(cur, next)
	_, _, ok := worstPoint(pos, dpos, 0, 0, c)
	require.False(t, ok, "a flat surface has zero deviation everywhere")
}

func TestSplitLineAbsoluteFeedInterpolatesAbsPos(t *testing.T) {
	c := steepParabola()
	cur := &MachineState{
		absPos: r3.Vec{0, 0, 0}, pos: r3.Vec{0, 0, 0},
		extruderMode: ExtruderAbsolute, e: 0,
	}
	next := &MachineState{
		absPos: r3.Vec{10, 0, 0}, pos: r3.Vec{10, 0, 0},
		moveMode: MoveModeLinear, extruderMode: ExtruderAbsolute, e: 2,
		extraArgs: "; note",
	}

	worst := splitLine(0.5, cur, next, c)

	require.InDelta(t, 5.0, worst.absPos.X(), 1e-9)
	require.InDelta(t, 1.0, worst.e, 1e-9, "absolute-mode E lerps between endpoints")
	require.Equal(t, 2.0, next.e, "absolute mode leaves next.e untouched")
	require.Equal(t, "; note", worst.extraArgs, "extraArgs transfers to the first half")
	require.Empty(t, next.extraArgs, "second half's extraArgs is cleared")
}

func TestSplitLineRelativeExtruderSplitsE(t *testing.T) {
	c := steepParabola()
	cur := &MachineState{absPos: r3.Vec{0, 0, 0}, extruderMode: ExtruderRelative}
	next := &MachineState{
		absPos: r3.Vec{10, 0, 0}, pos: r3.Vec{10, 0, 0},
		moveMode: MoveModeRapid, extruderMode: ExtruderRelative, e: 4,
	}

	worst := splitLine(0.25, cur, next, c)

	require.InDelta(t, 1.0, worst.e, 1e-9, "relative E: worst.e = next.e * t")
	require.InDelta(t, 3.0, next.e, 1e-9, "relative E: next.e *= (1-t)")
	require.InDelta(t, 2.5, worst.pos.X(), 1e-9, "rapid mode: worst.pos = next.pos * t")
	require.InDelta(t, 7.5, next.pos.X(), 1e-9, "rapid mode: next.pos *= (1-t)")
}

func TestSplitArcAdjustsIJForContinuation(t *testing.T) {
	c := mat.NewDense(1, 1, []float64{0})
	cur := &MachineState{absPos: r3.Vec{1, 0, 0}}
	next := &MachineState{
		absPos: r3.Vec{0, 1, 0}, moveMode: MoveModeCCWArc,
		arcMode: ArcModeIJ, i: -1, j: 0,
	}
	geo := arcGeometry{center: r3.Vec{0, 0, 0}, angle: math.Pi / 2, radius: 1, ok: true}

	worst := splitArc(0.5, cur, next, geo, c)

	require.InDelta(t, math.Pi/4, worst.arcAngle, 1e-9)
	require.InDelta(t, math.Pi/4, next.arcAngle, 1e-9, "next.arcAngle *= (1-t)")
	// worst.absPos is 45 degrees around the unit circle from (1,0): (cos45, sin45).
	require.InDelta(t, math.Sqrt2/2, worst.absPos.X(), 1e-9)
	require.InDelta(t, math.Sqrt2/2, worst.absPos.Y(), 1e-9)
	// next.i/j must point from the new start (worst.absPos) to the center.
	require.InDelta(t, -math.Sqrt2/2, next.i, 1e-9)
	require.InDelta(t, -math.Sqrt2/2, next.j, 1e-9)
}
