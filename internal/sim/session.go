// Package sim wires a catalog, scene, camera controller, animator and clock
// into one runnable session shared by the interactive viewer and the
// headless simulator.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/assets"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/timectrl"
)

var (
	// ErrNoBodies indicates that nothing in the catalog could be assembled.
	ErrNoBodies = errors.New("scene has no bodies")
	// ErrSimulating is returned when Simulate is called while a run is
	// already in progress.
	ErrSimulating = errors.New("simulation already running")
)

// Options are the resolved settings for a session.
type Options struct {
	CatalogPath string
	// AssetsDir is where texture paths are resolved. Empty disables
	// texture loading and every body renders with its flat colour.
	AssetsDir string
	Seed      uint64

	Assembler  core.AssemblerConfig
	Animator   core.AnimatorConfig
	Camera     core.Camera
	Controller core.OrbitControllerConfig

	Start time.Time
	Tick  time.Duration
	Mode  timectrl.Mode
}

// DefaultOptions returns the built-in catalog with untextured bodies.
func DefaultOptions() Options {
	return Options{
		Seed:       42,
		Assembler:  core.DefaultAssemblerConfig(),
		Animator:   core.DefaultAnimatorConfig(),
		Camera:     core.DefaultCamera(),
		Controller: core.DefaultOrbitControllerConfig(),
		Tick:       time.Second / 60,
		Mode:       timectrl.RealTime,
	}
}

// OptionsFromConfig resolves session options from v.
func OptionsFromConfig(v *viper.Viper) Options {
	opts := DefaultOptions()
	opts.CatalogPath = v.GetString("catalog.path")
	opts.AssetsDir = v.GetString("assets.dir")
	opts.Seed = v.GetUint64("asteroids.seed")
	opts.Assembler = config.Assembler(v)
	opts.Animator = config.Animator(v)
	opts.Camera = config.Camera(v)
	opts.Controller = config.Controller(v)
	if fps := v.GetInt("window.fps"); fps > 0 {
		opts.Tick = time.Second / time.Duration(fps)
	}
	return opts
}

// Session is one assembled, animatable solar system. Apart from Simulate,
// which drives the animator from the clock goroutine, a session must be
// used from a single goroutine.
type Session struct {
	Catalog    *kb.Catalog
	Report     *core.CatalogReport
	Scene      *core.Scene
	Controller *core.OrbitController
	Animator   *core.Animator
	Clock      *timectrl.TimeController
	Textures   *assets.Loader

	log     logging.Logger
	metrics *observability.FrameCollector
	fsys    fs.FS

	running atomic.Bool
	// out is the Simulate destination; it is only set while running is.
	out io.Writer
	ctx context.Context
}

// Option customises Session construction.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics reports frame, texture and scene metrics to c.
func WithMetrics(c *observability.FrameCollector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithAssetsFS reads textures from fsys instead of Options.AssetsDir.
func WithAssetsFS(fsys fs.FS) Option {
	return func(s *Session) { s.fsys = fsys }
}

// New loads the catalog, starts texture loading and assembles the scene.
func New(ctx context.Context, opts Options, options ...Option) (*Session, error) {
	s := &Session{log: logging.Noop()}
	for _, o := range options {
		o(s)
	}

	catalog, report, err := LoadCatalogFile(ctx, opts.CatalogPath, s.log)
	if err != nil {
		return nil, err
	}
	s.Catalog, s.Report = catalog, report

	var textures core.TextureSource
	if opts.AssetsDir != "" || s.fsys != nil {
		loaderOpts := []assets.Option{assets.WithLogger(s.log)}
		if s.metrics != nil {
			loaderOpts = append(loaderOpts, assets.WithRecorder(s.metrics))
		}
		if s.fsys != nil {
			loaderOpts = append(loaderOpts, assets.WithFS(s.fsys))
		}
		s.Textures = assets.New(opts.AssetsDir, loaderOpts...)
		textures = s.Textures
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	scene, err := core.NewAssembler(opts.Assembler, textures, rng, s.log).Assemble(ctx, catalog)
	if err != nil {
		s.Close()
		return nil, err
	}
	if len(scene.Bodies) == 0 && scene.Star == nil {
		s.Close()
		return nil, ErrNoBodies
	}
	s.Scene = scene
	skipped := len(scene.Skipped)
	if report != nil {
		skipped += len(report.Skipped)
	}
	s.metrics.SetSceneCounts(len(scene.Bodies), skipped)

	s.Controller = core.NewOrbitController(opts.Camera, opts.Controller)

	animOpts := []core.AnimatorOption{core.WithLogger(s.log)}
	if s.metrics != nil {
		animOpts = append(animOpts, core.WithFrameRecorder(s.metrics))
	}
	if s.Textures != nil {
		animOpts = append(animOpts, core.WithTexturePump(s.Textures))
	}
	s.Animator = core.NewAnimator(scene, s.Controller, opts.Animator, animOpts...)

	start := opts.Start
	if start.IsZero() {
		start = time.Now().UTC()
	}
	s.Clock = timectrl.NewTimeController(start, opts.Tick, opts.Mode)
	s.Clock.AddListener(s.simulateTick)
	return s, nil
}

// LoadCatalogFile reads a JSON catalog from path and freezes it. An empty
// path returns the built-in catalog.
func LoadCatalogFile(ctx context.Context, path string, log logging.Logger) (*kb.Catalog, *core.CatalogReport, error) {
	if log == nil {
		log = logging.Noop()
	}
	if path == "" {
		return core.DefaultCatalog(), nil, nil
	}

	ctx, span := observability.Tracer().Start(ctx, "catalog.Load",
		trace.WithAttributes(attribute.String("catalog.path", path)))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return nil, nil, fmt.Errorf("open catalog %q: %w", path, err)
	}
	defer f.Close()

	catalog := kb.NewCatalog()
	report, err := core.LoadCatalog(catalog, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, nil, fmt.Errorf("load catalog %q: %w", path, err)
	}
	catalog.Freeze()
	span.SetAttributes(
		attribute.Int("catalog.bodies", len(report.Bodies)),
		attribute.Int("catalog.skipped", len(report.Skipped)),
	)

	for _, sk := range report.Skipped {
		log.Warn(ctx, "skipping catalog entry", logging.String("entry", sk.Name), logging.Err(sk.Err))
	}
	log.Info(ctx, "catalog loaded",
		logging.String("path", path),
		logging.Int("bodies", len(report.Bodies)),
		logging.Int("satellites", len(report.Satellites)),
		logging.Int("skipped", len(report.Skipped)),
	)
	return catalog, report, nil
}

// Frame advances the clock by the wall-clock frame time d, applies pending
// camera motion and animates the scene. It is the body of the interactive
// loop.
func (s *Session) Frame(ctx context.Context, in core.PointerInput, d time.Duration) (timectrl.Frame, core.FrameSnapshot) {
	s.Controller.HandleInput(in)
	s.Controller.Update()
	frame := s.Clock.Advance(d)
	return frame, s.Animator.Tick(ctx, frame.Elapsed)
}

// Simulate runs the clock headlessly for duration of simulation time,
// animating the scene on every tick and writing body positions to w. The
// clock mode decides whether ticks follow the wall clock. Each run restarts
// simulation time at the clock's start; overlapping runs are rejected.
func (s *Session) Simulate(ctx context.Context, duration time.Duration, w io.Writer) error {
	if s.Clock.Tick <= 0 {
		return fmt.Errorf("simulate: tick must be positive, got %s", s.Clock.Tick)
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrSimulating
	}
	defer s.running.Store(false)

	ctx, span := observability.Tracer().Start(ctx, "orrery.Simulate", trace.WithAttributes(
		attribute.String("simulate.duration", duration.String()),
		attribute.String("simulate.tick", s.Clock.Tick.String()),
		attribute.Int("scene.bodies", len(s.Scene.Bodies)),
	))
	defer span.End()

	s.out, s.ctx = w, ctx
	defer func() { s.out, s.ctx = nil, nil }()

	s.log.Info(ctx, "starting simulation",
		logging.Duration("duration", duration),
		logging.Duration("tick", s.Clock.Tick),
		logging.Int("bodies", len(s.Scene.Bodies)),
	)
	first := s.Clock.FrameIndex()
	<-s.Clock.Start(ctx, duration)
	frames := s.Clock.FrameIndex() - first
	span.SetAttributes(attribute.Int64("simulate.frames", int64(frames)))
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation aborted")
		return err
	}
	s.log.Info(ctx, "simulation complete", logging.Uint64("frames", frames))
	return nil
}

// simulateTick is the clock listener registered once in New. Frames
// advanced outside Simulate are animated by Frame instead.
func (s *Session) simulateTick(f timectrl.Frame) {
	if s.out == nil {
		return
	}
	WriteFrame(s.out, f, s.Animator.Tick(s.ctx, f.Elapsed))
}

// StatusLines summarises a frame for an on-screen overlay.
func StatusLines(f timectrl.Frame, cameraDistance float64) []string {
	return []string{
		fmt.Sprintf("frame %d", f.Index),
		f.SimTime.Format(time.RFC3339),
		fmt.Sprintf("JD %.5f", f.JulianDate),
		fmt.Sprintf("GMST %.2f°", f.SiderealAngle*180/math.Pi),
		fmt.Sprintf("camera distance %.1f", cameraDistance),
	}
}

// WriteFrame prints one tick's body and satellite positions.
func WriteFrame(w io.Writer, f timectrl.Frame, snap core.FrameSnapshot) {
	fmt.Fprintf(w, "[%s] frame=%d jd=%.6f gmst=%.6f\n", f.SimTime.Format(time.RFC3339), f.Index, f.JulianDate, f.SiderealAngle)
	for _, b := range snap.Bodies {
		note := ""
		if b.Skipped {
			note = " (skipped)"
		}
		fmt.Fprintf(w, "  %-8s @ (%8.3f, %8.3f, %8.3f)%s\n", b.Name, b.Position.X, b.Position.Y, b.Position.Z, note)
	}
	for _, sat := range snap.Satellites {
		fmt.Fprintf(w, "  %-8s @ (%8.3f, %8.3f, %8.3f) around %s\n", sat.Name, sat.World.X, sat.World.Y, sat.World.Z, sat.Parent)
	}
}

// Close stops texture loading.
func (s *Session) Close() {
	if s.Textures != nil {
		s.Textures.Close()
	}
}
