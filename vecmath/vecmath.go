// Package vecmath provides the 3-D vector operations the gcode rewriter
// needs on top of gonum's spatial/r3.Vec: dot and cross products,
// magnitude, normalization, and the two in-plane (XY) operations the
// motion geometry relies on — rotation about Z and perpendicular.
//
// r3.Vec already exports Add, Sub and Scale; the functions here extend it
// rather than wrap it in a new type, since Vec is a value type this module
// does not own.
package vecmath

import "math"

import "gonum.org/v1/gonum/spatial/r3"

// Dot returns the standard inner product of a and b.
func Dot(a, b r3.Vec) float64 {
	return a.X()*b.X() + a.Y()*b.Y() + a.Z()*b.Z()
}

// Cross returns the vector cross product a x b.
func Cross(a, b r3.Vec) r3.Vec {
	return r3.Vec{
		a.Y()*b.Z() - a.Z()*b.Y(),
		a.Z()*b.X() - a.X()*b.Z(),
		a.X()*b.Y() - a.Y()*b.X(),
	}
}

// MagnitudeSquared returns the squared Euclidean length of v.
func MagnitudeSquared(v r3.Vec) float64 {
	return Dot(v, v)
}

// Magnitude returns the Euclidean length of v.
func Magnitude(v r3.Vec) float64 {
	return math.Sqrt(MagnitudeSquared(v))
}

// Normalize returns v scaled to unit length. The result is undefined for
// the zero vector; callers must not pass one.
func Normalize(v r3.Vec) r3.Vec {
	return v.Scale(1.0 / Magnitude(v))
}

// Rotate returns v rotated about the Z axis by the signed angle theta
// (radians), in-plane: x' = x cosθ - y sinθ, y' = x sinθ + y cosθ. The Z
// component is left unchanged.
func Rotate(v r3.Vec, theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Vec{
		v.X()*c - v.Y()*s,
		v.X()*s + v.Y()*c,
		v.Z(),
	}
}

// Perp returns the in-plane perpendicular of v: (x,y) -> (-y,x), Z
// unchanged.
func Perp(v r3.Vec) r3.Vec {
	return r3.Vec{-v.Y(), v.X(), v.Z()}
}
