package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/sim"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares once flags and config are read.
type app struct {
	v       *viper.Viper
	cfgFile string
	log     logging.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "orrery",
		Short:        "Animated 3D model of the solar system",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(a.v, a.cfgFile); err != nil {
				return err
			}
			logCfg := config.Logging(a.v)
			logCfg.Output = cmd.ErrOrStderr()
			a.log = logging.New(logCfg)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: orrery.yaml in . or configs/)")
	flags.String("catalog", "", "JSON body catalog; the built-in catalog is used when empty")
	flags.String("assets", "", "directory that texture paths are resolved against")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("metrics-addr", "", "HTTP address for Prometheus /metrics; disabled when empty")
	mustBind(a.v, "catalog.path", flags.Lookup("catalog"))
	mustBind(a.v, "assets.dir", flags.Lookup("assets"))
	mustBind(a.v, "log.level", flags.Lookup("log-level"))
	mustBind(a.v, "metrics.addr", flags.Lookup("metrics-addr"))

	root.AddCommand(newViewCommand(a), newSimulateCommand(a))
	return root
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %q: %v", key, err))
	}
}

// session assembles a sim.Session with metrics and tracing attached. The
// returned cleanup stops the metrics server and flushes spans.
func (a *app) session(ctx context.Context, opts sim.Options) (*sim.Session, func(), error) {
	shutdownTracing, err := observability.InitTracing(ctx, config.Tracing(a.v), a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	collector, err := observability.NewFrameCollector(nil)
	if err != nil {
		observability.ShutdownWithTimeout(context.Background(), shutdownTracing, a.log)
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}
	metricsSrv := observability.ServeMetrics(a.v.GetString("metrics.addr"), collector, a.log)

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
				a.log.Warn(shutdownCtx, "metrics server shutdown failed", logging.Err(err))
			}
		}
		observability.ShutdownWithTimeout(context.Background(), shutdownTracing, a.log)
	}

	s, err := sim.New(ctx, opts, sim.WithLogger(a.log), sim.WithMetrics(collector))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, func() {
		s.Close()
		cleanup()
	}, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
