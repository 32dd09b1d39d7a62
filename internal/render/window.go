// Package render draws a core.Scene with raylib and turns raylib input
// into core.PointerInput. Everything here must run on the goroutine that
// opened the window.
package render

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
)

// Config sizes and titles the window.
type Config struct {
	Width  int
	Height int
	Title  string
	FPS    int
}

// Window is an open raylib window plus the GPU resources created for the
// scene it draws.
type Window struct {
	log logging.Logger

	textures map[*core.Texture]rl.Texture2D
	models   map[*core.Texture]rl.Model
	labels   map[string]rl.RenderTexture2D
}

// Open creates the window. Call Close before exiting.
func Open(cfg Config, log logging.Logger) *Window {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), cfg.Title)
	rl.SetTargetFPS(int32(cfg.FPS))

	return &Window{
		log:      log,
		textures: make(map[*core.Texture]rl.Texture2D),
		models:   make(map[*core.Texture]rl.Model),
		labels:   make(map[string]rl.RenderTexture2D),
	}
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return rl.WindowShouldClose() }

// FrameTime returns the wall-clock duration of the last frame.
func (w *Window) FrameTime() time.Duration {
	return time.Duration(float64(rl.GetFrameTime()) * float64(time.Second))
}

// Size returns the current framebuffer size.
func (w *Window) Size() (int, int) { return rl.GetScreenWidth(), rl.GetScreenHeight() }

// Input samples this frame's pointer and resize events.
func (w *Window) Input() core.PointerInput {
	delta := rl.GetMouseDelta()
	in := core.PointerInput{
		Left:   rl.IsMouseButtonDown(rl.MouseButtonLeft),
		Middle: rl.IsMouseButtonDown(rl.MouseButtonMiddle),
		Right:  rl.IsMouseButtonDown(rl.MouseButtonRight),
		DX:     float64(delta.X),
		DY:     float64(delta.Y),
		Wheel:  float64(rl.GetMouseWheelMove()),
	}
	if rl.IsWindowResized() {
		in.Resized = true
		in.Width, in.Height = w.Size()
	}
	return in
}

// Close releases GPU resources and closes the window.
func (w *Window) Close() {
	for _, m := range w.models {
		rl.UnloadModel(m)
	}
	for _, t := range w.textures {
		rl.UnloadTexture(t)
	}
	for _, l := range w.labels {
		rl.UnloadRenderTexture(l)
	}
	rl.CloseWindow()
}
