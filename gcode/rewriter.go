// Package gcode implements the StreamRewriter: a line-oriented G-code
// parser that maintains machine state across a motion stream, corrects
// the Z coordinate of every linear and circular move against a fitted
// surface, and adaptively subdivides moves where the surface curves
// significantly between endpoints.
package gcode

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/willmac16/gcodeleveling/surfacemodel"
	"github.com/willmac16/gcodeleveling/vecmath"
)

// outputPathPattern is the first-occurrence substitution the Level API's
// output-path convention is built on (§6).
var outputPathPattern = regexp.MustCompile(`\.g(co)*(de)*`)

// Params is the Level API's parameter tuple (§6).
type Params struct {
	InvertZ bool
	MaxLine float64
	MaxArc  float64
	MinZ    float64
	MaxZ    float64
	Version string
}

// Job is a unit of Level work: an input file path, a fitted coefficient
// matrix, and the parameter tuple. MinZ/MaxZ are carried through Params
// but never consulted (§9 point 4) — the clamp is a known, reproduced gap.
type Job struct {
	InputPath string
	Coeffs    mat.Matrix
	Params    Params
}

// rewriter holds the per-job collaborators the free functions in parse.go,
// arc.go and subdivide.go need: the coefficient matrix, the parameter
// tuple, the logger, and the output sink.
type rewriter struct {
	coeffs mat.Matrix
	params Params
	logger Logger
	out    *bufio.Writer
	ending string
}

// Level runs one job end-to-end (§6): it reads job.InputPath line by
// line, rewrites every motion command's Z to follow the surface
// described by job.Coeffs, and writes the result to a derived output
// path. The returned string is that path. IOFailure — a missing input
// file or an unwritable output path — is the only error class Level
// returns; malformed motion does not abort the job (§7): an unparseable
// real after an axis letter is silently ignored, and a geometrically
// impossible R-mode arc is logged and passed through unchanged.
func Level(job Job, logger Logger) (string, error) {
	in, err := os.Open(job.InputPath)
	if err != nil {
		return "", fmt.Errorf("gcode: open input: %w", err)
	}
	defer in.Close()

	outPath := derivePath(job.InputPath)
	outFile, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("gcode: create output: %w", err)
	}
	defer outFile.Close()

	w := bufio.NewWriter(outFile)
	r := &rewriter{coeffs: job.Coeffs, params: job.Params, logger: logger, out: w}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	cur := newMachineState()
	cur.computeModelHeight(r.coeffs)
	next := cur
	next.reset()

	detected := false
	for scanner.Scan() {
		raw := scanner.Text()
		if !detected && strings.TrimSpace(raw) != "" {
			if strings.HasSuffix(raw, "\r") {
				r.ending = "\r\n"
			} else {
				r.ending = "\n"
			}
			r.writeHeader()
			detected = true
		}

		line := strings.TrimSuffix(raw, "\r")
		r.processLine(line, &cur, &next)

		cur = next
		next.reset()
	}
	if err := scanner.Err(); err != nil {
		w.Flush()
		return "", fmt.Errorf("gcode: read input: %w", err)
	}
	if !detected {
		r.ending = "\n"
		r.writeHeader()
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("gcode: write output: %w", err)
	}
	return outPath, nil
}

// derivePath applies §6's output-file convention: the first match of
// `\.g(co)*(de)*` in the input path is replaced with "-GCL.gcode"; an
// input path with no such match is suffixed instead, so every job still
// produces a distinct output file.
func derivePath(in string) string {
	if loc := outputPathPattern.FindStringIndex(in); loc != nil {
		return in[:loc[0]] + "-GCL.gcode" + in[loc[1]:]
	}
	return in + "-GCL.gcode"
}

func (r *rewriter) writeHeader() {
	r.out.WriteString("; Processed by OctoPrint-GcodeLeveling " + r.params.Version)
	r.out.WriteString(r.ending)
	r.out.WriteString(r.ending)
}

func (r *rewriter) writeLine(s string) {
	r.out.WriteString(s)
	r.out.WriteString(r.ending)
}

// processLine parses one line and dispatches it to verbatim passthrough
// or to the appropriate motion emitter.
func (r *rewriter) processLine(line string, cur, next *MachineState) {
	ev := parseLine(line, cur, next)
	if ev.drop {
		return
	}
	if ev.verbatim {
		r.writeLine(ev.text)
		return
	}

	switch next.moveMode {
	case MoveModeDwell:
		// G4 carries no coordinate motion worth Z-correcting or
		// subdividing; state is already updated by parseLine.
		r.writeLine(line)
	case MoveModeRapid, MoveModeLinear:
		r.emitLinear(cur, next)
	case MoveModeCWArc, MoveModeCCWArc:
		r.emitArc(cur, next, line)
	}
}

// emitLinear Z-corrects a rapid or feed move, recursing through
// worstPoint/splitLine when the move is long enough to need subdivision
// (§4.4).
func (r *rewriter) emitLinear(cur, next *MachineState) {
	next.computeModelHeight(r.coeffs)
	dist := vecmath.Magnitude(next.absPos.Sub(cur.absPos))

	if r.params.MaxLine > 0 && dist > r.params.MaxLine {
		pos := linePos(cur, next)
		dpos := lineDPos(cur, next)
		if t, d, ok := worstPoint(pos, dpos, cur.modelHeight, next.modelHeight, r.coeffs); ok {
			r.logger.Debug(fmt.Sprintf("subdividing line at t=%.4f (deviation %.4f)", t, d))
			worst := splitLine(t, cur, next, r.coeffs)
			r.emitLinear(cur, &worst)
			r.emitLinear(&worst, next)
			return
		}
	}

	z := r.correctZ(next)
	ez := emittedZ(z, next, cur)
	r.writeLine(constructLine(cur, next, ez))
}

// emitArc resolves arc geometry, falls back to verbatim passthrough for a
// geometrically impossible R-mode chord (§7), and otherwise Z-corrects
// the arc, recursing through worstPoint/splitArc when it is long enough
// to need subdivision.
func (r *rewriter) emitArc(cur, next *MachineState, raw string) {
	next.computeModelHeight(r.coeffs)
	geo := resolveArc(cur, next, r.logger)
	if !geo.ok {
		r.writeLine(raw)
		return
	}

	length := math.Abs(geo.angle) * geo.radius
	if r.params.MaxArc > 0 && length > r.params.MaxArc {
		pos := arcPos(cur, geo)
		dpos := arcDPos(cur, geo, next.moveMode)
		if t, d, ok := worstPoint(pos, dpos, cur.modelHeight, next.modelHeight, r.coeffs); ok {
			r.logger.Debug(fmt.Sprintf("subdividing arc at t=%.4f (deviation %.4f)", t, d))
			worst := splitArc(t, cur, next, geo, r.coeffs)
			r.emitArc(cur, &worst, raw)
			r.emitArc(&worst, next, raw)
			return
		}
	}

	z := r.correctZ(next)
	ez := emittedZ(z, next, cur)
	r.writeLine(constructArc(cur, next, ez))
}

// correctZ implements §4.4's Z-correction formula and caches the
// absolute corrected Z into next.absZ for use by the next relative-mode
// move.
func (r *rewriter) correctZ(next *MachineState) float64 {
	surf := surfacemodel.Evaluate(next.absPos.X(), next.absPos.Y(), r.coeffs)
	var corrected float64
	if r.params.InvertZ {
		corrected = surf - next.absPos.Z()
	} else {
		corrected = surf + next.absPos.Z()
	}
	next.absZ = corrected
	return corrected
}

// emittedZ converts an absolute corrected Z into the value the program
// frame expects: absolute mode subtracts the current origin offset,
// relative mode subtracts the previous emitted absolute Z.
func emittedZ(corrected float64, next, cur *MachineState) float64 {
	if next.positioningMode == PositioningAbsolute {
		return corrected - next.posOffset.Z()
	}
	return corrected - cur.absZ
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func emitE(cur, next *MachineState) bool {
	if next.extruderMode == ExtruderRelative {
		return true
	}
	return next.e != cur.e
}

// constructLine emits a G0/G1 line: X/Y only if changed from cur.pos,
// corrected Z only once all three axes are locked, E under the
// extrusion-emit rule, then extraArgs (§4.4).
func constructLine(cur, next *MachineState, z float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "G%d", next.moveMode)
	if next.pos.X() != cur.pos.X() {
		fmt.Fprintf(&b, " X%s", formatNum(next.pos.X()))
	}
	if next.pos.Y() != cur.pos.Y() {
		fmt.Fprintf(&b, " Y%s", formatNum(next.pos.Y()))
	}
	if next.absLock == lockAll {
		fmt.Fprintf(&b, " Z%s", formatNum(z))
	}
	if emitE(cur, next) {
		fmt.Fprintf(&b, " E%s", formatNum(next.e))
	}
	if next.extraArgs != "" {
		b.WriteString(" ")
		b.WriteString(next.extraArgs)
	}
	return b.String()
}

// constructArc emits a G2/G3 line: as constructLine, plus the arc's R or
// I/J parameters depending on next.arcMode.
func constructArc(cur, next *MachineState, z float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "G%d", next.moveMode)
	if next.pos.X() != cur.pos.X() {
		fmt.Fprintf(&b, " X%s", formatNum(next.pos.X()))
	}
	if next.pos.Y() != cur.pos.Y() {
		fmt.Fprintf(&b, " Y%s", formatNum(next.pos.Y()))
	}
	if next.absLock == lockAll {
		fmt.Fprintf(&b, " Z%s", formatNum(z))
	}
	if next.arcMode == ArcModeR {
		fmt.Fprintf(&b, " R%s", formatNum(next.r))
	} else {
		fmt.Fprintf(&b, " I%s J%s", formatNum(next.i), formatNum(next.j))
	}
	if emitE(cur, next) {
		fmt.Fprintf(&b, " E%s", formatNum(next.e))
	}
	if next.extraArgs != "" {
		b.WriteString(" ")
		b.WriteString(next.extraArgs)
	}
	return b.String()
}
