package gcode

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// lineEvent is parseLine's verdict on one input line: a motion command the
// rewriter must Z-correct and possibly subdivide (verbatim == false, drop ==
// false), a mode command or anything else passed through as-is (verbatim ==
// true, text holds the exact original line), or a line the original dialect
// silently swallows from its output entirely (drop == true).
type lineEvent struct {
	verbatim bool
	drop     bool
	text     string
}

// smallestNormalFloat64 is the isnormal() threshold the original dialect
// gates axis updates on (§4.4, §9 point 1): a parsed value only updates
// state when it is finite, non-zero, and at or above this magnitude. A
// legitimate "X0" is therefore silently a no-op — reproduced, not fixed.
const smallestNormalFloat64 = 2.2250738585072014e-308

func isNormalNonZero(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return false
	}
	return math.Abs(v) >= smallestNormalFloat64
}

// parsedArgs is the result of scanning one line's argument tokens.
type parsedArgs struct {
	x, y, z, i, j, r, e                   float64
	hasX, hasY, hasZ, hasI, hasJ, hasR, hasE bool
	extra                                  string
}

// parseArgs scans s token by token: a recognized axis letter (X Y Z I J R
// E, case-insensitive) is followed greedily by a real number; a `(` opens
// a parenthetical comment captured verbatim through its closing `)`; a
// `;` captures the remainder of the line verbatim and ends scanning.
// Anything else (an unrecognized letter and its number, e.g. F or P) is
// preserved token-for-token in extra, space separated (§4.4).
func parseArgs(s string) parsedArgs {
	var a parsedArgs
	var extra []string
	n := len(s)
	i := 0
	for i < n {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '(':
			start := i
			i++
			for i < n && s[i] != ')' {
				i++
			}
			if i < n {
				i++
			}
			extra = append(extra, s[start:i])
		case ch == ';':
			extra = append(extra, s[i:])
			i = n
		case isAlpha(ch):
			letter := upperByte(ch)
			tokStart := i
			i++
			val, next := scanNumber(s, i)
			i = next
			tok := s[tokStart:i]
			switch letter {
			case 'X':
				if isNormalNonZero(val) {
					a.x, a.hasX = val, true
				}
			case 'Y':
				if isNormalNonZero(val) {
					a.y, a.hasY = val, true
				}
			case 'Z':
				if isNormalNonZero(val) {
					a.z, a.hasZ = val, true
				}
			case 'I':
				if isNormalNonZero(val) {
					a.i, a.hasI = val, true
				}
			case 'J':
				if isNormalNonZero(val) {
					a.j, a.hasJ = val, true
				}
			case 'R':
				if isNormalNonZero(val) {
					a.r, a.hasR = val, true
				}
			case 'E':
				if isNormalNonZero(val) {
					a.e, a.hasE = val, true
				}
			default:
				extra = append(extra, tok)
			}
		default:
			i++
		}
	}
	a.extra = strings.Join(extra, " ")
	return a
}

// scanNumber scans a real number (optional sign, digits, optional single
// decimal point and more digits) starting at i and returns its value and
// the index just past it. An empty or sign-only token yields NaN, which
// isNormalNonZero then rejects — the original parseFloat's empty-token
// behavior (§9's SUPPLEMENTED FEATURES point 4).
func scanNumber(s string, i int) (val float64, next int) {
	start := i
	n := len(s)
	if i < n && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for i < n && isDigit(s[i]) {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && isDigit(s[i]) {
			i++
		}
	}
	tok := s[start:i]
	if tok == "" || tok == "-" || tok == "+" {
		return math.NaN(), i
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return math.NaN(), i
	}
	return v, i
}

func isAlpha(ch byte) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }
func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
func upperByte(ch byte) byte {
	if ch >= 'a' && ch <= 'z' {
		return ch - ('a' - 'A')
	}
	return ch
}

// applyAxisArgs writes every parsed axis value into next (which, on entry,
// already carries current's values forward — see MachineState.reset). Only
// letters actually present in a overwrite the corresponding component;
// everything else keeps its carried-forward value, which is how an
// absolute G-code line may omit Y and still keep the previous Y.
func applyAxisArgs(a parsedArgs, next *MachineState) {
	p := next.pos
	if a.hasX {
		p = r3.Vec{a.x, p.Y(), p.Z()}
	}
	if a.hasY {
		p = r3.Vec{p.X(), a.y, p.Z()}
	}
	if a.hasZ {
		p = r3.Vec{p.X(), p.Y(), a.z}
	}
	next.pos = p

	if a.hasI {
		next.i = a.i
		next.arcMode = ArcModeIJ
	}
	if a.hasJ {
		next.j = a.j
		next.arcMode = ArcModeIJ
	}
	if a.hasR {
		next.r = a.r
		next.arcMode = ArcModeR
	}
	if a.hasE {
		next.e = a.e
		if next.extruderMode == ExtruderDisabled {
			next.extruderMode = ExtruderAbsolute
		}
	}
}

// updateAbsLock marks the axes this line touched, per §3 — a bit is set
// whenever the axis token parsed to an isnormal value, regardless of
// positioningMode: a relative-mode line that touches all three axes locks
// them just as readily as an absolute one does.
func updateAbsLock(a parsedArgs, next *MachineState) {
	if a.hasX {
		next.absLock |= lockX
	}
	if a.hasY {
		next.absLock |= lockY
	}
	if a.hasZ {
		next.absLock |= lockZ
	}
}

// updateAbsPos recomputes next.absPos per §4.4: absolute mode derives it
// from pos + posOffset; relative mode accumulates the commanded delta
// (next.pos, zeroed at reset and then set only for the axes this line
// touched) onto the prior absPos, once all three axes are locked.
func updateAbsPos(next *MachineState) {
	if next.positioningMode == PositioningAbsolute {
		next.absPos = next.pos.Add(next.posOffset)
		return
	}
	if next.absLock == lockAll {
		next.absPos = next.absPos.Add(next.pos)
	}
}

// applyG92 implements the origin-reset command. Per SUPPLEMENTED FEATURES
// point 1, next.absPos is first pinned to current.absPos, args are parsed
// into next.pos, and posOffset is derived from that pinned absPos — not
// recomputed from whatever next.absPos would otherwise become.
func applyG92(rest string, cur, next *MachineState) parsedArgs {
	a := parseArgs(rest)
	next.absPos = cur.absPos
	applyAxisArgs(a, next)
	next.posOffset = next.pos.Sub(next.absPos)
	return a
}

// moveModeWords maps the recognized G0-G4 command words to MachineState's
// moveMode constants.
var moveModeWords = map[string]int{
	"G0": MoveModeRapid,
	"G1": MoveModeLinear,
	"G2": MoveModeCWArc,
	"G3": MoveModeCCWArc,
	"G4": MoveModeDwell,
}

// splitWord extracts the leading command word (a run of letters followed
// by a run of digits, e.g. "G1", "M82") from s and returns it upper-cased
// along with the remainder of the line.
func splitWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return strings.ToUpper(s[:j]), s[j:]
}

// parseLine tokenizes one input line and mutates cur/next per §4.4's
// command table, returning how the rewriter should treat it.
func parseLine(line string, cur, next *MachineState) lineEvent {
	s := strings.TrimLeft(line, " \t")
	if s == "" {
		return lineEvent{verbatim: true, text: line}
	}

	first := upperByte(s[0])
	if first == 'X' || first == 'Y' || first == 'Z' || first == 'I' || first == 'J' {
		next.moveMode = cur.moveMode
		a := parseArgs(s)
		applyAxisArgs(a, next)
		updateAbsLock(a, next)
		updateAbsPos(next)
		next.extraArgs = a.extra
		next.interpNeeded = true
		return lineEvent{}
	}

	word, rest := splitWord(s)
	switch word {
	case "G0", "G1", "G2", "G3", "G4":
		next.moveMode = moveModeWords[word]
		a := parseArgs(rest)
		applyAxisArgs(a, next)
		updateAbsLock(a, next)
		updateAbsPos(next)
		next.extraArgs = a.extra
		next.interpNeeded = true
		return lineEvent{}
	case "G17":
		next.workspacePlane = PlaneXY
		return lineEvent{drop: true}
	case "G18":
		next.workspacePlane = PlaneZX
		return lineEvent{drop: true}
	case "G19":
		next.workspacePlane = PlaneYZ
		return lineEvent{drop: true}
	case "G90":
		next.positioningMode = PositioningAbsolute
		return lineEvent{verbatim: true, text: line}
	case "G91":
		next.positioningMode = PositioningRelative
		return lineEvent{verbatim: true, text: line}
	case "G92":
		applyG92(rest, cur, next)
		return lineEvent{verbatim: true, text: line}
	case "M82":
		next.extruderMode = ExtruderAbsolute
		return lineEvent{verbatim: true, text: line}
	case "M83":
		next.extruderMode = ExtruderRelative
		return lineEvent{verbatim: true, text: line}
	default:
		return lineEvent{verbatim: true, text: line}
	}
}
