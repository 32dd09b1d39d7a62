package model

// BodyKind distinguishes the light-emitting star from the bodies orbiting it.
type BodyKind int

const (
	KindPlanet BodyKind = iota
	KindStar
)

func (k BodyKind) String() string {
	switch k {
	case KindStar:
		return "star"
	default:
		return "planet"
	}
}

// CelestialBodyConfig describes one entry of the body catalog. Values are
// copied into the catalog on insert and never mutated afterwards.
type CelestialBodyConfig struct {
	Name string
	Kind BodyKind

	// Radius is the world-space sphere radius.
	Radius float64
	// OrbitDistance is in catalog units; the scene multiplies it by the
	// scale factor.
	OrbitDistance float64
	// OrbitSpeed is the angular speed in radians per second of simulation time.
	OrbitSpeed float64

	Color      Color
	OrbitColor Color

	// Texture and RingTexture are opaque asset references. An empty
	// RingTexture means the body has no ring system.
	Texture     string
	RingTexture string
}

// HasRings reports whether a banded ring system should be built.
func (c CelestialBodyConfig) HasRings() bool {
	return c.RingTexture != ""
}

// SatelliteConfig describes a body attached to a parent through a pivot.
type SatelliteConfig struct {
	Name   string
	Parent string

	Radius float64
	// DistanceFromParent is expressed in the parent's local frame and is not
	// multiplied by the scene scale factor.
	DistanceFromParent float64
	// OrbitSpeed is the pivot increment in radians per frame.
	OrbitSpeed float64

	Color   Color
	Texture string
}
