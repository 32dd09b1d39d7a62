package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/render"
	"github.com/signalsfoundry/orrery/internal/sim"
	"github.com/signalsfoundry/orrery/timectrl"
)

func newViewCommand(a *app) *cobra.Command {
	var rate float64

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open an interactive window with the animated solar system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			win := config.Window(a.v)
			opts := sim.OptionsFromConfig(a.v)
			opts.Mode = timectrl.RealTime

			s, cleanup, err := a.session(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			s.Clock.SetRate(rate)

			window := render.Open(render.Config{
				Width:  win.Width,
				Height: win.Height,
				Title:  win.Title,
				FPS:    win.FPS,
			}, a.log)
			defer window.Close()
			s.Controller.Resize(window.Size())

			a.log.Info(ctx, "viewer started",
				logging.Int("bodies", len(s.Scene.Bodies)),
				logging.Int("width", win.Width),
				logging.Int("height", win.Height),
			)
			return viewLoop(ctx, s, window)
		},
	}

	cmd.Flags().Float64Var(&rate, "rate", 1, "simulation seconds per wall-clock second")
	return cmd
}

func viewLoop(ctx context.Context, s *sim.Session, window *render.Window) error {
	for !window.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		frame, _ := s.Frame(ctx, window.Input(), window.FrameTime())
		hud := render.HUD{Lines: sim.StatusLines(frame, s.Controller.Distance())}
		window.Draw(s.Scene, s.Controller.Camera(), hud)
	}
	return nil
}
