package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orrery/internal/logging"
)

// Texture load results.
const (
	TextureReady       = "ready"
	TextureUnavailable = "unavailable"
)

// FrameCollector bundles Prometheus metrics for the animation loop and the
// texture loader and exposes them over HTTP.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	Frames        prometheus.Counter
	TickDurations prometheus.Histogram
	Degenerate    *prometheus.CounterVec

	TextureLoads     *prometheus.CounterVec
	TextureDurations *prometheus.HistogramVec

	SceneBodies  prometheus.Gauge
	SceneSkipped prometheus.Gauge
}

// NewFrameCollector registers the orrery metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_frames_total",
		Help: "Total number of animation ticks run.",
	}), "orrery_frames_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_tick_duration_seconds",
		Help:    "Time spent in one animation tick, excluding drawing.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	}), "orrery_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	degenerate, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_degenerate_skips_total",
		Help: "Per-body orientation updates skipped because the geometry was degenerate.",
	}, []string{"body"}), "orrery_degenerate_skips_total")
	if err != nil {
		return nil, err
	}

	loads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_texture_loads_total",
		Help: "Texture loads, labeled by result (ready or unavailable).",
	}, []string{"result"}), "orrery_texture_loads_total")
	if err != nil {
		return nil, err
	}

	loadDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orrery_texture_load_duration_seconds",
		Help:    "Texture read and decode latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"result"}), "orrery_texture_load_duration_seconds")
	if err != nil {
		return nil, err
	}

	bodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_scene_bodies",
		Help: "Number of orbiting bodies in the assembled scene.",
	}), "orrery_scene_bodies")
	if err != nil {
		return nil, err
	}
	skipped, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_scene_skipped_entries",
		Help: "Catalog entries skipped during loading and scene assembly.",
	}), "orrery_scene_skipped_entries")
	if err != nil {
		return nil, err
	}

	return &FrameCollector{
		gatherer:         gatherer,
		Frames:           frames,
		TickDurations:    ticks,
		Degenerate:       degenerate,
		TextureLoads:     loads,
		TextureDurations: loadDurations,
		SceneBodies:      bodies,
		SceneSkipped:     skipped,
	}, nil
}

// ObserveTick records one animation tick.
func (c *FrameCollector) ObserveTick(d time.Duration, bodies int) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.TickDurations.Observe(d.Seconds())
	c.SceneBodies.Set(float64(bodies))
}

// ObserveDegenerate records a skipped orientation update for body.
func (c *FrameCollector) ObserveDegenerate(body string) {
	if c == nil {
		return
	}
	c.Degenerate.WithLabelValues(body).Inc()
}

// ObserveTextureLoad records the outcome of one texture load.
func (c *FrameCollector) ObserveTextureLoad(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.TextureLoads.WithLabelValues(result).Inc()
	c.TextureDurations.WithLabelValues(result).Observe(d.Seconds())
}

// SetSceneCounts publishes the size of the assembled scene.
func (c *FrameCollector) SetSceneCounts(bodies, skipped int) {
	if c == nil {
		return
	}
	c.SceneBodies.Set(float64(bodies))
	c.SceneSkipped.Set(float64(skipped))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FrameCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ServeMetrics starts an HTTP server exposing /metrics on addr. It returns
// nil when addr is empty or the collector is nil.
func ServeMetrics(addr string, collector *FrameCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	if log == nil {
		log = logging.Noop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
