package core

import (
	"context"
	"math"
	"testing"

	"github.com/signalsfoundry/orrery/model"
)

func TestPointFalloff(t *testing.T) {
	p := PointLight{Color: model.White, Intensity: 2000, Range: 200}

	if got := PointFalloff(p, 250); got != 0 {
		t.Fatalf("beyond range = %v, want 0", got)
	}
	if got := PointFalloff(p, 200); got != 0 {
		t.Fatalf("at range = %v, want 0", got)
	}
	if got := PointFalloff(PointLight{}, 10); got != 0 {
		t.Fatalf("zero intensity = %v", got)
	}

	prev := math.Inf(1)
	for d := 1.0; d < 200; d += 7 {
		got := PointFalloff(p, d)
		if got > prev {
			t.Fatalf("falloff increased at d=%v", d)
		}
		prev = got
	}
	if got := PointFalloff(PointLight{Intensity: 4}, 0); got != 4 {
		t.Fatalf("near-zero distance should not blow up, got %v", got)
	}
}

func TestSurfaceTint(t *testing.T) {
	l := Lighting{
		Ambient:  model.ColorFromRGB24(0x444444),
		Point:    PointLight{Color: model.White, Intensity: 2000, Range: 200},
		PointPos: Vec3{},
	}

	unlit := &Material{Shading: ShadingUnlit, Color: model.ColorFromRGB24(0x111111)}
	if got := SurfaceTint(unlit, Vec3{X: 400}, l); got != unlit.Color {
		t.Fatalf("unlit tint = %+v, want base colour", got)
	}

	lit := &Material{Shading: ShadingLit, Color: model.Color{R: 1, G: 0.5}}
	far := SurfaceTint(lit, Vec3{X: 300}, l)
	if !almostEqual(far.R, l.Ambient.R, 1e-12) || !almostEqual(far.G, 0.5*l.Ambient.G, 1e-12) || far.B != 0 {
		t.Fatalf("ambient-only tint = %+v", far)
	}
	near := SurfaceTint(lit, Vec3{X: 20}, l)
	if near.R <= far.R {
		t.Fatalf("near body should be brighter: near %+v far %+v", near, far)
	}
	if near.R > 1 || near.G > 1 {
		t.Fatalf("tint not clamped: %+v", near)
	}

	lit.Emissive = 0.35
	withEmissive := SurfaceTint(lit, Vec3{X: 300}, l)
	if withEmissive.R <= far.R {
		t.Fatalf("emissive should brighten: %+v vs %+v", withEmissive, far)
	}

	textured := &Material{Shading: ShadingLit, Color: model.Color{B: 1}, Map: NewTexture("x.png")}
	textured.Map.Resolve(nil)
	if got := SurfaceTint(textured, Vec3{X: 300}, l); got.R == 0 {
		t.Fatalf("textured lit material should use a white base, got %+v", got)
	}
}

func TestSceneLighting(t *testing.T) {
	cfg := DefaultAssemblerConfig()
	cfg.Asteroids.Count = 0
	scene, err := NewAssembler(cfg, nil, nil, nil).Assemble(context.Background(), DefaultCatalog())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	l := SceneLighting(scene)
	if l.Ambient.Hex() != "#444444" {
		t.Fatalf("ambient = %s", l.Ambient.Hex())
	}
	if l.Point.Intensity != 2000 || l.Point.Range != 200 || l.PointPos != (Vec3{}) {
		t.Fatalf("point light = %+v at %+v", l.Point, l.PointPos)
	}
	if (SceneLighting(nil) != Lighting{}) {
		t.Fatalf("nil scene should yield zero lighting")
	}
}

func TestGlowAlpha(t *testing.T) {
	cam := Vec3{Z: 10}
	if got := GlowAlpha(Vec3{}, cam, Vec3{Z: 1}); !almostEqual(got, 0, eps) {
		t.Fatalf("facing normal alpha = %v, want 0", got)
	}
	if got := GlowAlpha(Vec3{}, cam, Vec3{X: 1}); !almostEqual(got, 1, eps) {
		t.Fatalf("silhouette alpha = %v, want 1", got)
	}
	if got := GlowAlpha(Vec3{}, Vec3{}, Vec3{X: 1}); got != 0 {
		t.Fatalf("camera at centre alpha = %v, want 0", got)
	}
}

func TestRingGeometryTriangles(t *testing.T) {
	g := RingGeometry{Inner: 2, Outer: 3, Segments: 16}
	tris := g.Triangles()
	if len(tris) != 32 {
		t.Fatalf("triangles = %d, want 32", len(tris))
	}
	for _, tri := range tris {
		for _, v := range tri {
			r := math.Hypot(v.X, v.Y)
			if !almostEqual(r, 2, 1e-9) && !almostEqual(r, 3, 1e-9) {
				t.Fatalf("vertex %+v not on an edge of the annulus", v)
			}
			if v.Z != 0 {
				t.Fatalf("vertex %+v off the XY plane", v)
			}
		}
		// Counter-clockwise seen from +Z.
		n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
		if n.Z <= 0 {
			t.Fatalf("triangle %+v wound clockwise", tri)
		}
	}
	if (RingGeometry{Inner: 3, Outer: 3}).Triangles() != nil {
		t.Fatalf("empty annulus should yield no triangles")
	}
}
