package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/orrery/model"
)

// DefaultScaleFactor converts catalog distance units into world units.
const DefaultScaleFactor = 10.0

// OrbitModel derives a body's position relative to its orbit centre from
// elapsed simulation time. Positions are recomputed every frame, never
// integrated.
type OrbitModel interface {
	PositionAt(elapsed time.Duration) Vec3
}

// StaticOrbit keeps a body at a fixed offset from its orbit centre.
type StaticOrbit struct {
	Position Vec3
}

// PositionAt returns the fixed position.
func (o StaticOrbit) PositionAt(time.Duration) Vec3 {
	return o.Position
}

// CircularOrbit moves a body on a circle in the XZ plane.
type CircularOrbit struct {
	// Radius is in world units (already scaled).
	Radius float64
	// AngularSpeed is in radians per second.
	AngularSpeed float64
}

// AngleAt returns the orbital angle after elapsed time.
func (o CircularOrbit) AngleAt(elapsed time.Duration) float64 {
	return o.AngularSpeed * elapsed.Seconds()
}

// PositionAt returns (cos θ·r, 0, sin θ·r).
func (o CircularOrbit) PositionAt(elapsed time.Duration) Vec3 {
	s, c := math.Sincos(o.AngleAt(elapsed))
	return Vec3{X: c * o.Radius, Z: s * o.Radius}
}

// Period returns the time for one revolution, or zero for a stationary orbit.
func (o CircularOrbit) Period() time.Duration {
	if o.AngularSpeed == 0 {
		return 0
	}
	return time.Duration(2 * math.Pi / o.AngularSpeed * float64(time.Second))
}

// NewOrbitModel chooses an orbit for a catalog body. Bodies with zero speed
// or zero distance stay put; everything else follows a circular orbit.
func NewOrbitModel(cfg model.CelestialBodyConfig, scale float64) OrbitModel {
	r := cfg.OrbitDistance * scale
	if cfg.OrbitSpeed == 0 || r == 0 {
		return StaticOrbit{Position: Vec3{X: r}}
	}
	return CircularOrbit{Radius: r, AngularSpeed: cfg.OrbitSpeed}
}

// PivotAngle returns a satellite pivot's rotation after frame ticks. The
// angle is derived from the frame index instead of accumulated.
func PivotAngle(perFrame float64, frame uint64) float64 {
	return math.Mod(perFrame*float64(frame), 2*math.Pi)
}
