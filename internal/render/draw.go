package render

import (
	"context"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

const (
	sphereRings  = 24
	sphereSlices = 32

	labelFontSize = 32
	labelWidth    = 256
	labelHeight   = 64
)

// HUD is the overlay text drawn on top of the scene.
type HUD struct {
	Lines []string
}

// Draw renders one frame of scene seen through cam.
func (w *Window) Draw(scene *core.Scene, cam core.Camera, hud HUD) {
	camera := toCamera(cam)
	items := core.BuildDrawList(scene, cam.Position)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	rl.BeginMode3D(camera)

	blending := false
	for _, it := range items {
		if it.Pass == core.PassAdditive && !blending {
			rl.BeginBlendMode(rl.BlendAdditive)
			blending = true
		}
		w.drawItem(camera, it)
	}
	if blending {
		rl.EndBlendMode()
	}

	rl.EndMode3D()

	rl.DrawFPS(10, 10)
	for i, line := range hud.Lines {
		rl.DrawText(line, 10, int32(36+22*i), 20, rl.RayWhite)
	}
	rl.EndDrawing()
}

func (w *Window) drawItem(camera rl.Camera3D, it core.DrawItem) {
	tint := toColor(it.Color, it.Alpha)

	switch it.Kind {
	case core.DrawSphere:
		if it.Inward {
			rl.DisableBackfaceCulling()
			rl.DisableDepthMask()
			defer rl.EnableDepthMask()
			defer rl.EnableBackfaceCulling()
		}
		if it.Texture != nil {
			mdl := w.sphereModel(it.Texture)
			r := float32(it.Radius)
			angle := float32(it.Yaw * 180 / math.Pi)
			rl.DrawModelEx(mdl, toVector(it.Position), rl.NewVector3(0, 1, 0), angle, rl.NewVector3(r, r, r), tint)
			return
		}
		rl.DrawSphereEx(toVector(it.Position), float32(it.Radius), sphereRings, sphereSlices, tint)

	case core.DrawTriangles:
		if it.DoubleSided {
			rl.DisableBackfaceCulling()
			defer rl.EnableBackfaceCulling()
		}
		if it.Pass != core.PassOpaque {
			rl.DisableDepthMask()
			defer rl.EnableDepthMask()
		}
		for _, tri := range it.Triangles {
			rl.DrawTriangle3D(toVector(tri[0]), toVector(tri[1]), toVector(tri[2]), tint)
		}

	case core.DrawBillboard:
		label := w.labelTexture(it.Text)
		src := rl.NewRectangle(0, 0, float32(label.Texture.Width), -float32(label.Texture.Height))
		size := rl.NewVector2(float32(it.Width), float32(it.Height))
		rl.DrawBillboardRec(camera, label.Texture, src, toVector(it.Position), size, tint)

	case core.DrawPoints:
		s := float32(it.PointSize)
		size := rl.NewVector3(s, s, s)
		for _, p := range it.Points {
			rl.DrawCubeV(toVector(p), size, tint)
		}
	}
}

// sphereModel returns a unit sphere carrying tex, uploading the texture the
// first time it is seen.
func (w *Window) sphereModel(tex *core.Texture) rl.Model {
	if m, ok := w.models[tex]; ok {
		return m
	}
	img := rl.NewImageFromImage(tex.Image())
	gpu := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	w.textures[tex] = gpu

	m := rl.LoadModelFromMesh(rl.GenMeshSphere(1, sphereRings, sphereSlices))
	rl.SetMaterialTexture(m.Materials, int32(rl.MapDiffuse), gpu)
	w.models[tex] = m
	w.log.Debug(context.Background(), "uploaded texture", logging.String("path", tex.Path))
	return m
}

// labelTexture renders text once into an offscreen target used as a
// billboard.
func (w *Window) labelTexture(text string) rl.RenderTexture2D {
	if t, ok := w.labels[text]; ok {
		return t
	}
	t := rl.LoadRenderTexture(labelWidth, labelHeight)
	rl.BeginTextureMode(t)
	rl.ClearBackground(rl.Blank)
	tw := rl.MeasureText(text, labelFontSize)
	rl.DrawText(text, (labelWidth-tw)/2, (labelHeight-labelFontSize)/2, labelFontSize, rl.White)
	rl.EndTextureMode()
	w.labels[text] = t
	return t
}

func toVector(v core.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}

func toColor(c model.Color, alpha float64) rl.Color {
	r, g, b := c.RGB255()
	return rl.NewColor(r, g, b, uint8(math.Round(core.Clamp(alpha, 0, 1)*255)))
}

func toCamera(c core.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   toVector(c.Position),
		Target:     toVector(c.Target),
		Up:         toVector(c.Up),
		Fovy:       float32(c.FovY),
		Projection: rl.CameraPerspective,
	}
}
