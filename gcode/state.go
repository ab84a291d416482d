package gcode

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/willmac16/gcodeleveling/surfacemodel"
)

// Move modes, spec.md §3.
const (
	MoveModeRapid = 0
	MoveModeLinear = 1
	MoveModeCWArc  = 2
	MoveModeCCWArc = 3
	MoveModeDwell  = 4
)

// Workspace planes, spec.md §3. Only PlaneXY is consulted by motion
// generation; the others are parsed and carried but otherwise inert, per
// spec.md §3's "parsed but only XY is supported in motion generation".
const (
	PlaneXY = 0
	PlaneZX = 1
	PlaneYZ = 2
)

// Positioning modes.
const (
	PositioningRelative = 0
	PositioningAbsolute = 1
)

// Extruder modes.
const (
	ExtruderDisabled = -1
	ExtruderRelative = 0
	ExtruderAbsolute = 1
)

// Arc modes.
const (
	ArcModeDisabled = -1
	ArcModeR        = 0
	ArcModeIJ        = 1
)

// absLock bits, spec.md §3.
const (
	lockX = 1 << 0
	lockY = 1 << 1
	lockZ = 1 << 2
	lockAll = lockX | lockY | lockZ
)

// MachineState is the motion-state entity described in spec.md §3. A
// StreamRewriter holds exactly one "current" and one "next" MachineState
// at a time; both exist for the full pass over a job (spec.md §3
// Lifecycle) and are passed by exclusive reference through the pipeline
// (spec.md §9).
type MachineState struct {
	pos       r3.Vec
	absPos    r3.Vec
	posOffset r3.Vec
	absLock   int

	positioningMode int
	extruderMode    int
	moveMode        int
	workspacePlane  int

	arcMode   int
	i, j, r   float64
	arcCenter r3.Vec
	arcAngle  float64

	e float64

	absZ float64

	modelHeight float64

	extraArgs string

	interpNeeded bool
}

// newMachineState returns the zero-value initial state of a job, matching
// the C++ GcodeState default constructor: absolute positioning, extruder
// disabled until the first E-bearing command, arc mode disabled.
func newMachineState() MachineState {
	return MachineState{
		positioningMode: PositioningAbsolute,
		extruderMode:    ExtruderDisabled,
		arcMode:         ArcModeDisabled,
	}
}

// reset prepares a state to become the new "next" after a motion has been
// emitted, per spec.md §3's invariant: extraArgs, arc mode/params and
// arcAngle/arcCenter are cleared; pos is zeroed only in relative mode;
// positioningMode, extruderMode, workspacePlane, absLock, absPos, posOffset
// carry forward unchanged (they are simply not touched here).
func (s *MachineState) reset() {
	s.extraArgs = ""
	s.arcMode = ArcModeDisabled
	if s.positioningMode == PositioningRelative {
		s.pos = r3.Vec{}
	}
	s.i, s.j, s.r = 0, 0, 0
	s.arcAngle = 0
	s.arcCenter = r3.Vec{}
	if s.extruderMode == ExtruderRelative {
		s.e = 0
	}
	s.interpNeeded = false
}

// computeModelHeight caches z_surface(absPos.x, absPos.y) for use by the
// subdivision optimizer. Must be called after absPos is finalized for the
// line (spec.md §4.4: "modelHeight... cached once per endpoint").
func (s *MachineState) computeModelHeight(c mat.Matrix) {
	s.modelHeight = surfacemodel.Evaluate(s.absPos.X(), s.absPos.Y(), c)
}
