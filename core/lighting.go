package core

import (
	"math"

	"github.com/signalsfoundry/orrery/model"
)

// Lighting is the scene's light rig as seen by the renderer.
type Lighting struct {
	Ambient  model.Color
	Point    PointLight
	PointPos Vec3
}

// SceneLighting collects the ambient and point light from s.
func SceneLighting(s *Scene) Lighting {
	var l Lighting
	if s == nil {
		return l
	}
	if s.Ambient != nil {
		if a, ok := s.Ambient.Light.(AmbientLight); ok {
			l.Ambient = a.Color
		}
	}
	if s.Light != nil {
		if p, ok := s.Light.Light.(PointLight); ok {
			l.Point = p
			l.PointPos = s.Light.WorldPosition()
		}
	}
	return l
}

// PointFalloff returns a point light's contribution at distance d using an
// inverse-square decay windowed smoothly to zero at the light's range.
func PointFalloff(p PointLight, d float64) float64 {
	if p.Intensity <= 0 {
		return 0
	}
	if p.Range > 0 && d >= p.Range {
		return 0
	}
	att := p.Intensity / math.Max(d*d, 1)
	if p.Range > 0 {
		r := d / p.Range
		w := 1 - r*r*r*r
		att *= w * w
	}
	return att
}

// SurfaceTint returns the colour a renderer without per-pixel lighting
// should tint a mesh at world position pos: ambient plus emissive plus
// point-light falloff for lit materials, the base colour otherwise. Lit
// textured materials use white as their base so the image shows through.
func SurfaceTint(m *Material, pos Vec3, l Lighting) model.Color {
	if m == nil {
		return model.White
	}
	base := m.Color
	if m.Shading != ShadingLit {
		return base
	}
	if m.Textured() {
		base = model.White
	}
	k := m.Emissive + PointFalloff(l.Point, pos.DistanceTo(l.PointPos))
	c := model.Color{
		R: Clamp(l.Ambient.R+k*l.Point.Color.R, 0, 1),
		G: Clamp(l.Ambient.G+k*l.Point.Color.G, 0, 1),
		B: Clamp(l.Ambient.B+k*l.Point.Color.B, 0, 1),
	}
	return model.Color{R: base.R * c.R, G: base.G * c.G, B: base.B * c.B}
}

// GlowAlpha is the rim opacity of a glow shell seen from camera: strongest
// where the shell's silhouette faces away from the viewer.
func GlowAlpha(centre, camera, normal Vec3) float64 {
	view, err := camera.Sub(centre).Normalize()
	if err != nil {
		return 0
	}
	n, err := normal.Normalize()
	if err != nil {
		return 0
	}
	rim := 1 - math.Abs(view.Dot(n))
	return Clamp(rim*rim, 0, 1)
}

// Triangles returns the annulus as a triangle list in the node's local XY
// plane, two triangles per segment, wound counter-clockwise seen from +Z.
func (g RingGeometry) Triangles() [][3]Vec3 {
	seg := g.Segments
	if seg < 3 {
		seg = 3
	}
	if g.Outer <= g.Inner {
		return nil
	}
	tris := make([][3]Vec3, 0, seg*2)
	step := 2 * math.Pi / float64(seg)
	for i := 0; i < seg; i++ {
		s0, c0 := math.Sincos(step * float64(i))
		s1, c1 := math.Sincos(step * float64(i+1))
		i0 := Vec3{X: g.Inner * c0, Y: g.Inner * s0}
		o0 := Vec3{X: g.Outer * c0, Y: g.Outer * s0}
		i1 := Vec3{X: g.Inner * c1, Y: g.Inner * s1}
		o1 := Vec3{X: g.Outer * c1, Y: g.Outer * s1}
		tris = append(tris, [3]Vec3{i0, o0, o1}, [3]Vec3{i0, o1, i1})
	}
	return tris
}
