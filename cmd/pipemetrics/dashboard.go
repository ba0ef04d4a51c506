package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/siqueiraa/pipemetrics/pkg/dashboard"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Rebuild the pipeline dashboard",
		Long: `Dashboard lists every metric in the namespace, lays out one summary widget
per pipeline and overwrites the configured dashboard. Widgets added by hand
are lost on every run.`,
		Example: `  # Rebuild once
  pipemetrics dashboard

  # Rebuild every hour until interrupted
  pipemetrics dashboard --every 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			env, err := opts.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			gen := env.Generator()
			if every <= 0 {
				dash, err := gen.Generate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d widget(s)\n", env.Config.Dashboard.Name, len(dash.Widgets))
				return nil
			}
			return runScheduled(ctx, gen, every)
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "regenerate on this interval until interrupted")
	return cmd
}

// runScheduled regenerates immediately and then on every tick. Failed runs
// are logged and retried on the next tick.
func runScheduled(ctx context.Context, gen *dashboard.Generator, every time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if _, err := gen.Generate(ctx); err != nil {
				log.Printf("[Dashboard] Scheduled run failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule dashboard job: %w", err)
	}

	log.Printf("[Dashboard] Regenerating every %s", every)
	s.Start()
	<-ctx.Done()
	return s.Shutdown()
}
