package core

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
)

// CameraSource supplies the current camera position.
type CameraSource interface {
	CameraPosition() Vec3
}

// FrameRecorder receives per-frame measurements.
type FrameRecorder interface {
	ObserveTick(d time.Duration, bodies int)
	ObserveDegenerate(body string)
}

// TexturePump binds finished texture loads on the animation goroutine.
type TexturePump interface {
	Apply() int
}

// AnimatorConfig tunes the cosmetic per-frame effects.
type AnimatorConfig struct {
	LabelDivisor float64
	LabelMin     float64
	LabelMax     float64

	EmissiveMin float64
	EmissiveMax float64
}

// DefaultAnimatorConfig returns the reference label and shading ranges.
func DefaultAnimatorConfig() AnimatorConfig {
	return AnimatorConfig{
		LabelDivisor: 5,
		LabelMin:     5,
		LabelMax:     50,
		EmissiveMin:  0,
		EmissiveMax:  0.35,
	}
}

// BodyState is one body's derived state for a frame.
type BodyState struct {
	Name       string
	Position   Vec3
	Yaw        float64
	LabelScale float64
	Emissive   float64
	// Skipped is set when facing and shading were not updated this frame.
	Skipped bool
}

// SatelliteState is one satellite's derived state for a frame.
type SatelliteState struct {
	Name       string
	Parent     string
	PivotAngle float64
	Local      Vec3
	World      Vec3
}

// FrameSnapshot captures the result of the most recent tick.
type FrameSnapshot struct {
	Frame      uint64
	Elapsed    time.Duration
	Camera     Vec3
	Bodies     []BodyState
	Satellites []SatelliteState
}

// Animator runs the per-frame update over a scene. It must only be used
// from the goroutine that owns the scene.
type Animator struct {
	scene    *Scene
	camera   CameraSource
	cfg      AnimatorConfig
	log      logging.Logger
	recorder FrameRecorder
	textures TexturePump

	frame uint64
	last  FrameSnapshot
}

// AnimatorOption customises an Animator.
type AnimatorOption func(*Animator)

// WithLogger sets the animator logger.
func WithLogger(l logging.Logger) AnimatorOption {
	return func(a *Animator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithFrameRecorder reports tick timings and degenerate skips.
func WithFrameRecorder(r FrameRecorder) AnimatorOption {
	return func(a *Animator) { a.recorder = r }
}

// WithTexturePump drains finished texture loads at the start of each tick.
func WithTexturePump(p TexturePump) AnimatorOption {
	return func(a *Animator) { a.textures = p }
}

// NewAnimator binds an animator to a scene and camera.
func NewAnimator(scene *Scene, camera CameraSource, cfg AnimatorConfig, opts ...AnimatorOption) *Animator {
	a := &Animator{
		scene:  scene,
		camera: camera,
		cfg:    cfg,
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Frame returns the number of ticks run so far.
func (a *Animator) Frame() uint64 { return a.frame }

// Snapshot returns the state computed by the most recent tick.
func (a *Animator) Snapshot() FrameSnapshot { return a.last }

// Tick advances the scene to elapsed simulation time. A body whose facing
// or shading cannot be computed keeps its previous orientation for this
// tick; the remaining bodies are still updated.
func (a *Animator) Tick(ctx context.Context, elapsed time.Duration) FrameSnapshot {
	start := time.Now()

	if a.textures != nil {
		a.textures.Apply()
	}

	var cam Vec3
	if a.camera != nil {
		cam = a.camera.CameraPosition()
	}
	light := a.scene.LightPosition()

	if a.scene.Glow != nil && a.scene.Glow.Material != nil {
		a.scene.Glow.Material.CameraPos = cam
	}

	snap := FrameSnapshot{
		Frame:   a.frame,
		Elapsed: elapsed,
		Camera:  cam,
		Bodies:  make([]BodyState, 0, len(a.scene.Bodies)),
	}

	for _, body := range a.scene.Bodies {
		state := a.updateBody(ctx, body, elapsed, cam, light)
		snap.Bodies = append(snap.Bodies, state)
	}

	for _, body := range a.scene.Bodies {
		for _, sat := range body.Satellites {
			angle := PivotAngle(sat.Config.OrbitSpeed, a.frame)
			sat.Pivot.Transform.Rotation.Y = angle
			snap.Satellites = append(snap.Satellites, SatelliteState{
				Name:       sat.Config.Name,
				Parent:     body.Config.Name,
				PivotAngle: angle,
				Local:      sat.Pivot.Transform.Apply(sat.Mesh.Transform.Position),
				World:      sat.Mesh.WorldPosition(),
			})
		}
	}

	a.frame++
	a.last = snap
	if a.recorder != nil {
		a.recorder.ObserveTick(time.Since(start), len(a.scene.Bodies))
	}
	return snap
}

func (a *Animator) updateBody(ctx context.Context, body *OrbitingBody, elapsed time.Duration, cam, light Vec3) BodyState {
	pos := body.Orbit.PositionAt(elapsed)
	body.Mesh.Transform.Position = pos
	world := body.Mesh.WorldPosition()

	state := BodyState{Name: body.Config.Name, Position: world}

	if body.Label != nil {
		s := LabelScale(cam.DistanceTo(world), a.cfg.LabelDivisor, a.cfg.LabelMin, a.cfg.LabelMax)
		aspect := body.Label.Aspect
		if aspect <= 0 {
			aspect = 1
		}
		body.Label.Sprite.Transform.Scale = Vec3{X: s, Y: s / aspect, Z: 1}
		state.LabelScale = s
	}

	yaw, err := FacingYaw(world, light)
	if err == nil {
		var emissive float64
		emissive, err = EmissiveIntensity(world, light, cam, a.cfg.EmissiveMin, a.cfg.EmissiveMax)
		if err == nil {
			body.Mesh.Transform.Rotation.Y = yaw
			body.Mesh.Material.Emissive = emissive
		}
	}
	if err != nil {
		if errors.Is(err, ErrDegenerateGeometry) && a.recorder != nil {
			a.recorder.ObserveDegenerate(body.Config.Name)
		}
		a.log.Debug(ctx, "skipping orientation update",
			logging.String("body", body.Config.Name),
			logging.Uint64("frame", a.frame),
			logging.Err(err),
		)
		state.Skipped = true
	}

	state.Yaw = body.Mesh.Transform.Rotation.Y
	state.Emissive = body.Mesh.Material.Emissive
	return state
}
