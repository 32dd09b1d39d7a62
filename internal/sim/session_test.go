package sim

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/timectrl"
)

var epoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Assembler.Asteroids.Count = 0
	opts.Start = epoch
	opts.Tick = time.Second
	opts.Mode = timectrl.Accelerated
	return opts
}

func TestNewUsesBuiltInCatalog(t *testing.T) {
	s, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Report)
	assert.Nil(t, s.Textures)
	assert.True(t, s.Catalog.Frozen())
	assert.Len(t, s.Scene.Bodies, 8)
	assert.NotNil(t, s.Scene.Star)
	assert.Equal(t, epoch, s.Clock.Now())
}

func TestSimulateWritesPositions(t *testing.T) {
	s, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	var out bytes.Buffer
	require.NoError(t, s.Simulate(context.Background(), 3*time.Second, &out))

	text := out.String()
	assert.Equal(t, uint64(3), s.Animator.Frame())
	assert.Contains(t, text, "frame=0")
	assert.Contains(t, text, "frame=2")
	assert.NotContains(t, text, "frame=3")
	assert.Contains(t, text, "Earth")
	assert.Contains(t, text, "around Earth")
	assert.Equal(t, 3, strings.Count(text, "Neptune"))
}

func TestSimulateTwiceDoesNotDuplicateFrames(t *testing.T) {
	s, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	var first, second bytes.Buffer
	require.NoError(t, s.Simulate(context.Background(), 3*time.Second, &first))
	require.NoError(t, s.Simulate(context.Background(), 3*time.Second, &second))

	assert.Equal(t, 3, strings.Count(first.String(), "frame="))
	assert.Equal(t, 3, strings.Count(second.String(), "frame="))
	assert.Contains(t, second.String(), "frame=5")
	assert.Equal(t, uint64(6), s.Animator.Frame())

	// Interactive frames after a run are not written anywhere.
	s.Frame(context.Background(), core.PointerInput{}, time.Second)
	assert.Equal(t, 3, strings.Count(second.String(), "frame="))
	assert.Equal(t, uint64(7), s.Animator.Frame())
}

func TestSimulateRejectsOverlappingRun(t *testing.T) {
	opts := testOptions()
	opts.Mode = timectrl.RealTime
	opts.Tick = time.Millisecond
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Simulate(ctx, 0, io.Discard) }()
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Simulate(context.Background(), time.Second, io.Discard), ErrSimulating)
	cancel()
	require.NoError(t, <-done)
}

func TestWriteFrameIncludesSiderealAngle(t *testing.T) {
	f := timectrl.Frame{Index: 4, SimTime: epoch, JulianDate: timectrl.JulianDate(epoch), SiderealAngle: math.Pi / 2}
	var out bytes.Buffer
	WriteFrame(&out, f, core.FrameSnapshot{})
	assert.Equal(t, "[2000-01-01T12:00:00Z] frame=4 jd=2451545.000000 gmst=1.570796\n", out.String())

	lines := StatusLines(f, 156.2)
	assert.Equal(t, []string{"frame 4", "2000-01-01T12:00:00Z", "JD 2451545.00000", "GMST 90.00°", "camera distance 156.2"}, lines)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	s, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Simulate(ctx, 0, &bytes.Buffer{}))
	assert.Zero(t, s.Animator.Frame())
}

func TestSimulateRejectsZeroTick(t *testing.T) {
	opts := testOptions()
	opts.Tick = 0
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Simulate(context.Background(), time.Second, &bytes.Buffer{}))
}

func TestFrameAppliesInputAndAdvancesClock(t *testing.T) {
	s, err := New(context.Background(), testOptions())
	require.NoError(t, err)
	defer s.Close()

	before := s.Controller.Distance()
	frame, snap := s.Frame(context.Background(), core.PointerInput{Wheel: 1}, 500*time.Millisecond)

	assert.Less(t, s.Controller.Distance(), before)
	assert.Equal(t, 500*time.Millisecond, frame.Elapsed)
	assert.Equal(t, uint64(0), snap.Frame)
	assert.Equal(t, s.Controller.CameraPosition(), snap.Camera)

	frame, _ = s.Frame(context.Background(), core.PointerInput{}, 500*time.Millisecond)
	assert.Equal(t, uint64(1), frame.Index)
	assert.Equal(t, time.Second, frame.Elapsed)
}

func TestLoadCatalogFile(t *testing.T) {
	t.Run("empty path uses built-in", func(t *testing.T) {
		c, report, err := LoadCatalogFile(context.Background(), "", nil)
		require.NoError(t, err)
		assert.Nil(t, report)
		assert.Equal(t, 10, c.Len())
	})

	t.Run("bundled file", func(t *testing.T) {
		c, report, err := LoadCatalogFile(context.Background(), filepath.Join("..", "..", "configs", "solar_system.json"), nil)
		require.NoError(t, err)
		assert.True(t, c.Frozen())
		assert.Empty(t, report.Skipped)
		assert.Len(t, report.Satellites, 1)
	})

	t.Run("bad entries are skipped", func(t *testing.T) {
		path := writeCatalog(t, `{
			"star": {"name": "Sun", "color": "#ffcc33", "size": 5},
			"planets": [
				{"name": "Earth", "color": "#0000ff", "size": 0.09, "distance": 2, "orbit_speed": 0.01},
				{"name": "Nowhere", "color": "#ffffff", "size": -1, "distance": 3, "orbit_speed": 0.01}
			]
		}`)
		c, report, err := LoadCatalogFile(context.Background(), path, nil)
		require.NoError(t, err)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, "Nowhere", report.Skipped[0].Name)
		assert.ErrorIs(t, report.Skipped[0].Err, kb.ErrInvalidBody)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadCatalogFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nil)
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, _, err := LoadCatalogFile(context.Background(), writeCatalog(t, `{"planets": [`), nil)
		assert.Error(t, err)
	})
}

func TestNewRejectsEmptyScene(t *testing.T) {
	opts := testOptions()
	opts.CatalogPath = writeCatalog(t, `{"planets": [{"name": "", "size": 1, "distance": 1}]}`)
	_, err := New(context.Background(), opts)
	assert.ErrorIs(t, err, ErrNoBodies)
}

func TestNewLoadsTexturesAndReportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewFrameCollector(reg)
	require.NoError(t, err)

	fsys := fstest.MapFS{"earth_daymap.jpg": &fstest.MapFile{Data: encodePNG(t)}}
	s, err := New(context.Background(), testOptions(), WithAssetsFS(fsys), WithMetrics(collector))
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.Textures)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Textures.Wait(ctx))

	earth, ok := s.Scene.Body("Earth")
	require.True(t, ok)
	assert.False(t, earth.Mesh.Material.Textured(), "textures bind only on the animation goroutine")

	s.Frame(context.Background(), core.PointerInput{}, time.Second)
	assert.True(t, earth.Mesh.Material.Textured())

	mars, _ := s.Scene.Body("Mars")
	assert.Equal(t, core.TextureUnavailable, mars.Mesh.Material.Map.State())
	assert.False(t, mars.Mesh.Material.Textured())

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.TextureLoads.WithLabelValues(observability.TextureReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Frames))
	assert.Equal(t, 8.0, testutil.ToFloat64(collector.SceneBodies))
}

func TestOptionsFromConfig(t *testing.T) {
	v := config.New()
	v.Set("asteroids.seed", 7)
	v.Set("window.fps", 30)
	v.Set("catalog.path", "custom.json")

	opts := OptionsFromConfig(v)
	assert.Equal(t, uint64(7), opts.Seed)
	assert.Equal(t, time.Second/30, opts.Tick)
	assert.Equal(t, "custom.json", opts.CatalogPath)
	assert.Equal(t, "assets/images", opts.AssetsDir)
	assert.Equal(t, 1500, opts.Assembler.Asteroids.Count)
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
