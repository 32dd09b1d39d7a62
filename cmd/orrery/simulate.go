package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orrery/internal/sim"
	"github.com/signalsfoundry/orrery/timectrl"
)

func newSimulateCommand(a *app) *cobra.Command {
	var (
		duration    time.Duration
		tick        time.Duration
		accelerated bool
		start       string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the animation headlessly and print body positions every tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			opts := sim.OptionsFromConfig(a.v)
			// Nothing is drawn, so there is no point decoding images.
			opts.AssetsDir = ""
			opts.Tick = tick
			opts.Mode = timectrl.RealTime
			if accelerated {
				opts.Mode = timectrl.Accelerated
			}
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return err
				}
				opts.Start = t
			}

			s, cleanup, err := a.session(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			return s.Simulate(ctx, duration, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&duration, "duration", 60*time.Second, "total simulation time; run until interrupted when 0")
	flags.DurationVar(&tick, "tick", time.Second, "simulation time per frame")
	flags.BoolVar(&accelerated, "accelerated", true, "run as fast as possible instead of in real time")
	flags.StringVar(&start, "start", "", "RFC3339 simulation start time (default: now)")
	return cmd
}
