package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
)

// EnvPrefix prefixes every environment override, e.g. ORRERY_WINDOW_WIDTH.
const EnvPrefix = "ORRERY"

// WindowConfig sizes the interactive window.
type WindowConfig struct {
	Width  int
	Height int
	Title  string
	FPS    int
}

// New returns a viper instance with every default set and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog.path", "")
	v.SetDefault("assets.dir", "assets/images")

	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 720)
	v.SetDefault("window.title", "Solar System")
	v.SetDefault("window.fps", 60)

	v.SetDefault("scene.scaleFactor", core.DefaultScaleFactor)
	v.SetDefault("scene.labels", true)
	v.SetDefault("scene.halos", true)
	v.SetDefault("scene.ringBands", core.DefaultRingBands)
	v.SetDefault("scene.background", "stars.jpg")

	v.SetDefault("camera.fov", 75.0)
	v.SetDefault("camera.near", 0.1)
	v.SetDefault("camera.far", 1000.0)
	v.SetDefault("camera.position.x", 0.0)
	v.SetDefault("camera.position.y", 100.0)
	v.SetDefault("camera.position.z", 120.0)
	v.SetDefault("camera.minDistance", 1.0)
	v.SetDefault("camera.maxDistance", 500.0)
	v.SetDefault("camera.damping", 0.25)
	v.SetDefault("camera.enableDamping", true)

	v.SetDefault("labels.divisor", 5.0)
	v.SetDefault("labels.min", 5.0)
	v.SetDefault("labels.max", 50.0)

	v.SetDefault("shading.emissiveMin", 0.0)
	v.SetDefault("shading.emissiveMax", 0.35)

	v.SetDefault("asteroids.count", 1500)
	v.SetDefault("asteroids.seed", 42)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "orrery")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRatio", 1.0)
	v.SetDefault("tracing.serviceVersion", "dev")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the config file at path into v. With an empty path it looks
// for orrery.{yaml,json,toml} in the working directory and configs/, and a
// missing file is not an error.
func Load(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		return Validate(v)
	}

	v.SetConfigName("orrery")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return Validate(v)
}

// Validate checks the ranges that the scene and controller rely on.
func Validate(v *viper.Viper) error {
	var errs []error
	if v.GetInt("window.width") <= 0 || v.GetInt("window.height") <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d",
			v.GetInt("window.width"), v.GetInt("window.height")))
	}
	if v.GetFloat64("scene.scaleFactor") <= 0 {
		errs = append(errs, fmt.Errorf("scene.scaleFactor must be positive"))
	}
	if lo, hi := v.GetFloat64("camera.minDistance"), v.GetFloat64("camera.maxDistance"); lo < 0 || hi <= 0 || lo > hi {
		errs = append(errs, fmt.Errorf("camera distance range [%v, %v] is invalid", lo, hi))
	}
	if d := v.GetFloat64("camera.damping"); d <= 0 || d > 1 {
		errs = append(errs, fmt.Errorf("camera.damping must be in (0, 1], got %v", d))
	}
	if lo, hi := v.GetFloat64("labels.min"), v.GetFloat64("labels.max"); lo > hi {
		errs = append(errs, fmt.Errorf("labels range [%v, %v] is invalid", lo, hi))
	}
	if lo, hi := v.GetFloat64("shading.emissiveMin"), v.GetFloat64("shading.emissiveMax"); lo > hi {
		errs = append(errs, fmt.Errorf("shading range [%v, %v] is invalid", lo, hi))
	}
	if v.GetInt("asteroids.count") < 0 {
		errs = append(errs, fmt.Errorf("asteroids.count must not be negative"))
	}
	return errors.Join(errs...)
}

// Window returns the window settings.
func Window(v *viper.Viper) WindowConfig {
	return WindowConfig{
		Width:  v.GetInt("window.width"),
		Height: v.GetInt("window.height"),
		Title:  v.GetString("window.title"),
		FPS:    v.GetInt("window.fps"),
	}
}

// Assembler returns the scene construction settings layered over the
// built-in defaults.
func Assembler(v *viper.Viper) core.AssemblerConfig {
	cfg := core.DefaultAssemblerConfig()
	scale := v.GetFloat64("scene.scaleFactor")
	if scale != cfg.ScaleFactor {
		// Keep the belt between Mars and Jupiter at any scale.
		cfg.Asteroids.Inner = 2.52*scale + 2
		cfg.Asteroids.Outer = 6.2*scale - 10
		if cfg.Asteroids.Outer < cfg.Asteroids.Inner {
			cfg.Asteroids.Outer = cfg.Asteroids.Inner
		}
	}
	cfg.ScaleFactor = scale
	cfg.Labels = v.GetBool("scene.labels")
	cfg.Halos = v.GetBool("scene.halos")
	cfg.RingBands = v.GetInt("scene.ringBands")
	cfg.BackgroundTexture = v.GetString("scene.background")
	cfg.Asteroids.Count = v.GetInt("asteroids.count")
	return cfg
}

// Animator returns the per-frame label and shading ranges.
func Animator(v *viper.Viper) core.AnimatorConfig {
	return core.AnimatorConfig{
		LabelDivisor: v.GetFloat64("labels.divisor"),
		LabelMin:     v.GetFloat64("labels.min"),
		LabelMax:     v.GetFloat64("labels.max"),
		EmissiveMin:  v.GetFloat64("shading.emissiveMin"),
		EmissiveMax:  v.GetFloat64("shading.emissiveMax"),
	}
}

// Camera returns the initial camera.
func Camera(v *viper.Viper) core.Camera {
	cam := core.DefaultCamera()
	cam.FovY = v.GetFloat64("camera.fov")
	cam.Near = v.GetFloat64("camera.near")
	cam.Far = v.GetFloat64("camera.far")
	cam.Position = core.Vec3{
		X: v.GetFloat64("camera.position.x"),
		Y: v.GetFloat64("camera.position.y"),
		Z: v.GetFloat64("camera.position.z"),
	}
	if w, h := v.GetInt("window.width"), v.GetInt("window.height"); w > 0 && h > 0 {
		cam.Aspect = float64(w) / float64(h)
	}
	return cam
}

// Controller returns the orbit controller tuning.
func Controller(v *viper.Viper) core.OrbitControllerConfig {
	cfg := core.DefaultOrbitControllerConfig()
	cfg.MinDistance = v.GetFloat64("camera.minDistance")
	cfg.MaxDistance = v.GetFloat64("camera.maxDistance")
	cfg.DampingFactor = v.GetFloat64("camera.damping")
	cfg.EnableDamping = v.GetBool("camera.enableDamping")
	return cfg
}

// Logging returns the logger settings.
func Logging(v *viper.Viper) logging.Config {
	return logging.Config{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
}

func catalogName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// Tracing returns the tracing settings. The catalog and asteroid count are
// attached as resource attributes.
func Tracing(v *viper.Viper) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:        v.GetBool("tracing.enabled"),
		ServiceName:    v.GetString("tracing.serviceName"),
		ServiceVersion: v.GetString("tracing.serviceVersion"),
		Exporter:       v.GetString("tracing.exporter"),
		Endpoint:       v.GetString("tracing.endpoint"),
		Insecure:       v.GetBool("tracing.insecure"),
		Headers:        v.GetStringMapString("tracing.headers"),
		SampleRatio:    v.GetFloat64("tracing.sampleRatio"),
		Attributes: map[string]string{
			"catalog":        catalogName(v.GetString("catalog.path")),
			"asteroid_count": strconv.Itoa(v.GetInt("asteroids.count")),
		},
	}
}
