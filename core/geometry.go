package core

import (
	"errors"
	"math"
)

// ErrDegenerateGeometry is returned when a direction cannot be derived
// because two points coincide.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Vec3 is a world-space vector. Y is up; orbits lie in the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Mul returns the component-wise product.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{X: v.X * other.X, Y: v.Y * other.Y, Z: v.Z * other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Normalize returns the unit vector along v, or ErrDegenerateGeometry for
// the zero vector.
func (v Vec3) Normalize() (Vec3, error) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) {
		return Vec3{}, ErrDegenerateGeometry
	}
	return v.Scale(1 / n), nil
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapLinear maps x from [a1, a2] onto [b1, b2].
func MapLinear(x, a1, a2, b1, b2 float64) float64 {
	if a1 == a2 {
		return b1
	}
	return b1 + (x-a1)*(b2-b1)/(a2-a1)
}

// FacingYaw returns the rotation about Y that turns a body at pos toward
// target, computed as atan2(dx, dz) on the horizontal direction.
func FacingYaw(pos, target Vec3) (float64, error) {
	d := target.Sub(pos)
	if d.X == 0 && d.Z == 0 {
		return 0, ErrDegenerateGeometry
	}
	return math.Atan2(d.X, d.Z), nil
}

// EmissiveIntensity maps the alignment between the body→light and
// body→camera directions onto [lo, hi]. Fully lit side toward the viewer
// yields hi, back-lit yields lo.
func EmissiveIntensity(pos, light, camera Vec3, lo, hi float64) (float64, error) {
	toLight, err := light.Sub(pos).Normalize()
	if err != nil {
		return 0, err
	}
	toCamera, err := camera.Sub(pos).Normalize()
	if err != nil {
		return 0, err
	}
	dot := Clamp(toLight.Dot(toCamera), -1, 1)
	return MapLinear(dot, -1, 1, lo, hi), nil
}

// LabelScale returns the billboard width for a camera at distance dist,
// proportional to distance and clamped to [lo, hi].
func LabelScale(dist, divisor, lo, hi float64) float64 {
	if divisor <= 0 {
		return lo
	}
	return Clamp(dist/divisor, lo, hi)
}
