package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/orrery/model"
)

// DrawPass orders draw items: the backdrop first, then opaque geometry,
// then blended geometry far to near, then additive glows.
type DrawPass int

const (
	PassBackground DrawPass = iota
	PassOpaque
	PassTransparent
	PassAdditive
)

// DrawKind selects the primitive a renderer should emit.
type DrawKind int

const (
	DrawSphere DrawKind = iota
	DrawTriangles
	DrawBillboard
	DrawPoints
)

// glowBands is the number of camera-facing annuli used to fake a glow shell.
const glowBands = 8

// DrawItem is one renderer-agnostic draw call in world space.
type DrawItem struct {
	Name string
	Kind DrawKind
	Pass DrawPass

	Position Vec3
	Radius   float64
	// Yaw is the accumulated rotation about Y in radians.
	Yaw float64

	Color model.Color
	Alpha float64
	// Texture is set only when the image is ready to bind.
	Texture *Texture
	// Inward is set for spheres seen from inside.
	Inward bool

	Triangles   [][3]Vec3
	DoubleSided bool

	Points    []Vec3
	PointSize float64

	Text          string
	Width, Height float64

	depth float64
}

// BuildDrawList flattens the visible scene into draw items for a camera at
// camera, sorted by pass. Transparent items are ordered far to near.
func BuildDrawList(s *Scene, camera Vec3) []DrawItem {
	if s == nil || s.Root == nil {
		return nil
	}
	light := SceneLighting(s)
	var items []DrawItem

	s.Root.Walk(func(n *Node, _ int) bool {
		if !n.Visible {
			return false
		}
		if n.Geometry == nil || n.Material == nil {
			return true
		}
		m := n.Material
		pos := n.WorldPosition()
		scale := n.WorldScale()

		item := DrawItem{
			Name:     n.Name,
			Position: pos,
			Color:    SurfaceTint(m, pos, light),
			Alpha:    opacity(m),
			depth:    camera.DistanceTo(pos),
		}
		if m.Textured() {
			item.Texture = m.Map
		}

		switch g := n.Geometry.(type) {
		case SphereGeometry:
			if m.Shading == ShadingGlow {
				items = append(items, glowItems(n.Name, pos, g.Radius*scale.X, camera, m)...)
				return true
			}
			item.Kind = DrawSphere
			item.Radius = g.Radius * scale.X
			item.Yaw = n.WorldYaw()
			item.Inward = m.Side == BackSide
			item.Pass = pass(m, item.Inward)
		case RingGeometry:
			item.Kind = DrawTriangles
			item.DoubleSided = m.Side == DoubleSide
			local := g.Triangles()
			item.Triangles = make([][3]Vec3, len(local))
			for i, tri := range local {
				item.Triangles[i] = [3]Vec3{n.LocalToWorld(tri[0]), n.LocalToWorld(tri[1]), n.LocalToWorld(tri[2])}
			}
			item.Pass = pass(m, false)
		case SpriteGeometry:
			item.Kind = DrawBillboard
			item.Text = g.Text
			item.Width = scale.X
			item.Height = scale.Y
			item.Pass = PassTransparent
		case PointsGeometry:
			item.Kind = DrawPoints
			item.Points = make([]Vec3, len(g.Points))
			for i, p := range g.Points {
				item.Points[i] = n.LocalToWorld(p)
			}
			item.PointSize = g.Size
			item.Pass = pass(m, false)
		default:
			return true
		}
		items = append(items, item)
		return true
	})

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Pass != items[j].Pass {
			return items[i].Pass < items[j].Pass
		}
		if items[i].Pass == PassTransparent {
			return items[i].depth > items[j].depth
		}
		return false
	})
	return items
}

func opacity(m *Material) float64 {
	if m.Opacity <= 0 {
		return 1
	}
	return Clamp(m.Opacity, 0, 1)
}

func pass(m *Material, inward bool) DrawPass {
	switch {
	case inward:
		return PassBackground
	case m.Additive:
		return PassAdditive
	case m.Transparent || m.Opacity < 1:
		return PassTransparent
	default:
		return PassOpaque
	}
}

// glowItems approximates an additive glow shell of the given radius with
// camera-facing annuli whose opacity follows the shell's rim. The annuli face
// the material's CameraPos uniform once the animator has set it.
func glowItems(name string, centre Vec3, radius float64, camera Vec3, m *Material) []DrawItem {
	if m.CameraPos != (Vec3{}) {
		camera = m.CameraPos
	}
	view, err := camera.Sub(centre).Normalize()
	if err != nil {
		return nil
	}
	right, err := Vec3{Y: 1}.Cross(view).Normalize()
	if err != nil {
		right = Vec3{X: 1}
	}
	up := view.Cross(right)

	items := make([]DrawItem, 0, glowBands)
	for i := 0; i < glowBands; i++ {
		f0 := float64(i) / glowBands
		f1 := float64(i+1) / glowBands
		mid := (f0 + f1) / 2
		normal := right.Scale(mid).Add(view.Scale(math.Sqrt(1 - mid*mid)))

		ring := RingGeometry{Inner: radius * f0, Outer: radius * f1, Segments: 48}
		local := ring.Triangles()
		tris := make([][3]Vec3, len(local))
		for k, tri := range local {
			for v := range tri {
				tris[k][v] = centre.Add(right.Scale(tri[v].X)).Add(up.Scale(tri[v].Y))
			}
		}
		items = append(items, DrawItem{
			Name:        name,
			Kind:        DrawTriangles,
			Pass:        PassAdditive,
			Position:    centre,
			Color:       m.Color,
			Alpha:       GlowAlpha(centre, camera, normal) * opacity(m),
			Triangles:   tris,
			DoubleSided: true,
		})
	}
	return items
}
