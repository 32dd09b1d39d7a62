package core

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

const tracerName = "github.com/signalsfoundry/orrery/core"

// TextureSource hands out texture handles that resolve asynchronously.
type TextureSource interface {
	Texture(path string) *Texture
}

// CatalogView is the read side of the body catalog.
type CatalogView interface {
	Bodies() []model.CelestialBodyConfig
	Satellites() []model.SatelliteConfig
}

// AsteroidFieldConfig places the static asteroid belt.
type AsteroidFieldConfig struct {
	Count  int
	Inner  float64
	Outer  float64
	Size   float64
	Jitter float64
}

// AssemblerConfig holds the one-time scene construction parameters.
type AssemblerConfig struct {
	ScaleFactor    float64
	SphereSegments int

	RingBands int
	RingGaps  []GapRange

	OrbitThickness float64
	OrbitSegments  int

	Labels bool
	Halos  bool

	BackgroundTexture string
	BackgroundRadius  float64
	BackgroundTint    model.Color

	AmbientColor model.Color
	SunLight     PointLight
	GlowScale    float64

	Asteroids AsteroidFieldConfig
}

// DefaultAssemblerConfig matches the reference solar-system scene.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		ScaleFactor:       DefaultScaleFactor,
		SphereSegments:    64,
		RingBands:         DefaultRingBands,
		RingGaps:          DefaultRingGaps,
		OrbitThickness:    0.03,
		OrbitSegments:     128,
		Labels:            true,
		Halos:             true,
		BackgroundTexture: "stars.jpg",
		BackgroundRadius:  500,
		BackgroundTint:    model.ColorFromRGB24(0x111111),
		AmbientColor:      model.ColorFromRGB24(0x444444),
		SunLight:          PointLight{Color: model.White, Intensity: 2000, Range: 200},
		GlowScale:         1.1,
		Asteroids: AsteroidFieldConfig{
			Count:  1500,
			Inner:  2.52*DefaultScaleFactor + 2,  // just outside Mars
			Outer:  6.2*DefaultScaleFactor - 10, // just inside Jupiter
			Size:   0.05,
			Jitter: 1,
		},
	}
}

// Label is a billboard sprite hovering above a body.
type Label struct {
	Sprite *Node
	// Aspect is width divided by height.
	Aspect float64
}

// RingSystem is the set of bands built for a ringed body.
type RingSystem struct {
	Bands []*Node
}

// Satellite orbits its parent by rotating a pivot centred on the parent.
type Satellite struct {
	Config model.SatelliteConfig
	Pivot  *Node
	Mesh   *Node
}

// OrbitingBody pairs a catalog entry with its renderable handles. Rings,
// Halo and Label are nil when absent.
type OrbitingBody struct {
	Config     model.CelestialBodyConfig
	Orbit      OrbitModel
	Mesh       *Node
	Rings      *RingSystem
	Halo       *Node
	Label      *Label
	Satellites []*Satellite
}

// SkippedEntry records a catalog entry that could not be built.
type SkippedEntry struct {
	Name string
	Err  error
}

// Scene is everything the animator mutates and the renderer draws.
type Scene struct {
	Root         *Node
	Star         *OrbitingBody
	Glow         *Node
	Light        *Node
	Ambient      *Node
	Background   *Node
	AsteroidBelt *Node
	OrbitPaths   []*Node
	Bodies       []*OrbitingBody
	Skipped      []SkippedEntry

	byName map[string]*OrbitingBody
}

// Body looks up a non-star body by name.
func (s *Scene) Body(name string) (*OrbitingBody, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// LightPosition returns the world position of the point light, or the
// origin when the scene has none.
func (s *Scene) LightPosition() Vec3 {
	if s.Light == nil {
		return Vec3{}
	}
	return s.Light.WorldPosition()
}

// Assembler builds scene nodes from catalog entries.
type Assembler struct {
	cfg      AssemblerConfig
	textures TextureSource
	rng      *rand.Rand
	log      logging.Logger
}

// NewAssembler constructs an assembler. A nil texture source leaves every
// material untextured; a nil rng gets a fixed-seed source.
func NewAssembler(cfg AssemblerConfig, textures TextureSource, rng *rand.Rand, log logging.Logger) *Assembler {
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = DefaultScaleFactor
	}
	if cfg.SphereSegments <= 0 {
		cfg.SphereSegments = 64
	}
	if cfg.OrbitSegments <= 0 {
		cfg.OrbitSegments = 128
	}
	if cfg.GlowScale == 0 {
		cfg.GlowScale = 1.1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Assembler{cfg: cfg, textures: textures, rng: rng, log: log}
}

// Config returns the assembler configuration after defaults.
func (a *Assembler) Config() AssemblerConfig { return a.cfg }

func (a *Assembler) texture(path string) *Texture {
	if path == "" || a.textures == nil {
		return nil
	}
	return a.textures.Texture(path)
}

// Assemble builds the full scene. Invalid entries are skipped and recorded
// in Scene.Skipped; only structurally impossible input returns an error.
func (a *Assembler) Assemble(ctx context.Context, catalog CatalogView) (*Scene, error) {
	if catalog == nil {
		return nil, fmt.Errorf("Assemble: catalog is nil")
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scene.Assemble")
	defer span.End()

	scene := &Scene{
		Root:   NewNode("scene"),
		byName: make(map[string]*OrbitingBody),
	}

	scene.Background = a.BuildBackground(a.cfg.BackgroundTexture)
	scene.Root.Add(scene.Background)

	scene.Ambient = NewNode("ambient-light")
	scene.Ambient.Light = AmbientLight{Color: a.cfg.AmbientColor}
	scene.Root.Add(scene.Ambient)

	skip := func(name string, err error) {
		scene.Skipped = append(scene.Skipped, SkippedEntry{Name: name, Err: err})
		a.log.Warn(ctx, "skipping catalog entry", logging.String("body", name), logging.Err(err))
	}

	for _, cfg := range catalog.Bodies() {
		if cfg.Kind == model.KindStar {
			star, err := a.BuildStar(cfg)
			if err != nil {
				skip(cfg.Name, err)
				continue
			}
			scene.Star = star
			scene.Glow = star.Mesh.Find(cfg.Name + "-glow")
			scene.Root.Add(star.Mesh)
			continue
		}

		body, err := a.BuildBody(cfg)
		if err != nil {
			skip(cfg.Name, err)
			continue
		}
		scene.Root.Add(body.Mesh)
		scene.Bodies = append(scene.Bodies, body)
		scene.byName[cfg.Name] = body

		path := a.BuildOrbitPath(cfg.OrbitDistance, cfg.OrbitColor)
		scene.OrbitPaths = append(scene.OrbitPaths, path)
		scene.Root.Add(path)
	}

	scene.Light = NewNode("sun-light")
	scene.Light.Light = a.cfg.SunLight
	if scene.Star != nil {
		scene.Light.Transform.Position = scene.Star.Mesh.Transform.Position
	}
	scene.Root.Add(scene.Light)

	for _, cfg := range catalog.Satellites() {
		parent, ok := scene.byName[cfg.Parent]
		if !ok {
			skip(cfg.Name, fmt.Errorf("%w: %q", kb.ErrParentNotFound, cfg.Parent))
			continue
		}
		if _, err := a.BuildSatellite(parent, cfg); err != nil {
			skip(cfg.Name, err)
		}
	}

	if a.cfg.Asteroids.Count > 0 {
		belt, err := a.BuildAsteroidField(a.cfg.Asteroids.Inner, a.cfg.Asteroids.Outer, a.cfg.Asteroids.Count)
		if err != nil {
			skip("asteroid-belt", err)
		} else {
			scene.AsteroidBelt = belt
			scene.Root.Add(belt)
		}
	}

	span.SetAttributes(
		attribute.Int("scene.bodies", len(scene.Bodies)),
		attribute.Int("scene.skipped", len(scene.Skipped)),
	)
	a.log.Info(ctx, "scene assembled",
		logging.Int("bodies", len(scene.Bodies)),
		logging.Int("orbit_paths", len(scene.OrbitPaths)),
		logging.Int("skipped", len(scene.Skipped)),
	)
	return scene, nil
}

// BuildStar builds the light-emitting body with its additive glow shell.
func (a *Assembler) BuildStar(cfg model.CelestialBodyConfig) (*OrbitingBody, error) {
	if err := kb.ValidateBody(cfg); err != nil {
		return nil, err
	}
	mesh := NewMesh(cfg.Name,
		SphereGeometry{Radius: cfg.Radius, Segments: a.cfg.SphereSegments},
		&Material{
			Shading:   ShadingUnlit,
			Color:     cfg.Color,
			Map:       a.texture(cfg.Texture),
			Opacity:   1,
			DepthTest: true,
		},
	)

	glow := NewMesh(cfg.Name+"-glow",
		SphereGeometry{Radius: cfg.Radius, Segments: a.cfg.SphereSegments},
		&Material{
			Shading:     ShadingGlow,
			Color:       model.Color{R: 1, G: 0.9, B: 0.5},
			Opacity:     1,
			Transparent: true,
			Side:        BackSide,
			Additive:    true,
		},
	)
	glow.Transform.Scale = Vec3{X: a.cfg.GlowScale, Y: a.cfg.GlowScale, Z: a.cfg.GlowScale}
	mesh.Add(glow)

	return &OrbitingBody{Config: cfg, Orbit: StaticOrbit{}, Mesh: mesh}, nil
}

// BuildBody builds a planet sphere with its optional ring bands, halo and
// label. The mesh starts at its t=0 orbital position.
func (a *Assembler) BuildBody(cfg model.CelestialBodyConfig) (*OrbitingBody, error) {
	if err := kb.ValidateBody(cfg); err != nil {
		return nil, err
	}

	orbit := NewOrbitModel(cfg, a.cfg.ScaleFactor)
	mesh := NewMesh(cfg.Name,
		SphereGeometry{Radius: cfg.Radius, Segments: a.cfg.SphereSegments},
		&Material{
			Shading:   ShadingLit,
			Color:     cfg.Color,
			Map:       a.texture(cfg.Texture),
			Opacity:   1,
			DepthTest: true,
		},
	)
	mesh.Transform.Position = orbit.PositionAt(0)

	body := &OrbitingBody{Config: cfg, Orbit: orbit, Mesh: mesh}

	if cfg.HasRings() {
		body.Rings = a.buildRings(mesh, cfg)
	}

	if a.cfg.Halos {
		halo := NewMesh(cfg.Name+"-halo",
			RingGeometry{Inner: cfg.Radius * 1.5, Outer: cfg.Radius * 1.65, Segments: 64},
			&Material{
				Shading:     ShadingUnlit,
				Color:       cfg.Color,
				Opacity:     0.5,
				Transparent: true,
				Side:        DoubleSide,
				DepthTest:   true,
			},
		)
		halo.Transform.Rotation.X = math.Pi / 2
		mesh.Add(halo)
		body.Halo = halo
	}

	if a.cfg.Labels {
		body.Label = a.buildLabel(mesh, cfg)
	}
	return body, nil
}

func (a *Assembler) buildRings(mesh *Node, cfg model.CelestialBodyConfig) *RingSystem {
	tex := a.texture(cfg.RingTexture)
	rings := &RingSystem{}
	for _, band := range RingBands(cfg.Radius, a.cfg.RingBands, a.cfg.RingGaps) {
		n := NewMesh(fmt.Sprintf("%s-ring-%02d", cfg.Name, band.Index),
			RingGeometry{Inner: band.Inner, Outer: band.Outer, Segments: 64},
			&Material{
				Shading:     ShadingUnlit,
				Color:       band.Color,
				Map:         tex,
				Opacity:     band.Opacity,
				Transparent: true,
				Side:        DoubleSide,
				DepthTest:   true,
			},
		)
		n.Transform.Rotation.X = math.Pi / 2
		mesh.Add(n)
		rings.Bands = append(rings.Bands, n)
	}
	return rings
}

func (a *Assembler) buildLabel(mesh *Node, cfg model.CelestialBodyConfig) *Label {
	sprite := NewMesh(cfg.Name+"-label",
		SpriteGeometry{Text: cfg.Name},
		&Material{Shading: ShadingUnlit, Color: model.White, Opacity: 1, Transparent: true},
	)
	sprite.Transform.Position = Vec3{Y: cfg.Radius * 2}
	sprite.Transform.Scale = Vec3{X: cfg.Radius * 5, Y: cfg.Radius * 2.5, Z: 1}
	mesh.Add(sprite)
	return &Label{Sprite: sprite, Aspect: 2}
}

// BuildOrbitPath returns a thin flat annulus at distance*scale. It never
// moves.
func (a *Assembler) BuildOrbitPath(distance float64, color model.Color) *Node {
	r := distance * a.cfg.ScaleFactor
	n := NewMesh(fmt.Sprintf("orbit-%.2f", distance),
		RingGeometry{Inner: r, Outer: r + a.cfg.OrbitThickness, Segments: a.cfg.OrbitSegments},
		&Material{Shading: ShadingUnlit, Color: color, Opacity: 1, Side: DoubleSide, DepthTest: true},
	)
	n.Transform.Rotation.X = math.Pi / 2
	return n
}

// BuildSatellite attaches a satellite to parent through a pivot centred on
// the parent. The satellite sits at DistanceFromParent along the pivot's X
// axis and orbits by rotating the pivot.
func (a *Assembler) BuildSatellite(parent *OrbitingBody, cfg model.SatelliteConfig) (*Satellite, error) {
	if parent == nil || parent.Mesh == nil {
		return nil, fmt.Errorf("%w: %q", kb.ErrParentNotFound, cfg.Parent)
	}
	if err := kb.ValidateSatellite(cfg); err != nil {
		return nil, err
	}

	pivot := NewNode(cfg.Name + "-pivot")
	mesh := NewMesh(cfg.Name,
		SphereGeometry{Radius: cfg.Radius, Segments: 32},
		&Material{
			Shading:   ShadingLit,
			Color:     cfg.Color,
			Map:       a.texture(cfg.Texture),
			Opacity:   1,
			DepthTest: true,
		},
	)
	mesh.Transform.Position = Vec3{X: cfg.DistanceFromParent}
	pivot.Add(mesh)
	parent.Mesh.Add(pivot)

	sat := &Satellite{Config: cfg, Pivot: pivot, Mesh: mesh}
	parent.Satellites = append(parent.Satellites, sat)
	return sat, nil
}

// BuildAsteroidField scatters count small spheres at a uniform random angle
// and a distance interpolated between inner and outer, with a small vertical
// jitter. The field is placed once and never moves.
func (a *Assembler) BuildAsteroidField(inner, outer float64, count int) (*Node, error) {
	if count < 0 {
		return nil, fmt.Errorf("asteroid field: negative count %d", count)
	}
	if inner < 0 || outer < inner {
		return nil, fmt.Errorf("asteroid field: invalid bounds [%v, %v]", inner, outer)
	}
	size := a.cfg.Asteroids.Size
	if size <= 0 {
		size = 0.05
	}

	points := make([]Vec3, count)
	for i := range points {
		theta := a.rng.Float64() * 2 * math.Pi
		dist := Lerp(inner, outer, a.rng.Float64())
		y := (a.rng.Float64() - 0.5) * 2 * a.cfg.Asteroids.Jitter
		y = math.Max(-dist, math.Min(dist, y))
		// The jitter tilts the point off the plane without changing its
		// distance from the centre.
		r := math.Sqrt(dist*dist - y*y)
		s, c := math.Sincos(theta)
		points[i] = Vec3{X: r * c, Y: y, Z: r * s}
	}

	return NewMesh("asteroid-belt",
		PointsGeometry{Points: points, Size: size},
		&Material{Shading: ShadingLit, Color: model.ColorFromRGB24(0xaaaaaa), Opacity: 1, DepthTest: true},
	), nil
}

// BuildBackground returns a large inward-facing starfield sphere, tinted
// dark so it does not compete with the lit foreground.
func (a *Assembler) BuildBackground(texture string) *Node {
	radius := a.cfg.BackgroundRadius
	if radius <= 0 {
		radius = 500
	}
	return NewMesh("background",
		SphereGeometry{Radius: radius, Segments: 64},
		&Material{
			Shading:   ShadingUnlit,
			Color:     a.cfg.BackgroundTint,
			Map:       a.texture(texture),
			Opacity:   1,
			Side:      BackSide,
			DepthTest: true,
		},
	)
}
