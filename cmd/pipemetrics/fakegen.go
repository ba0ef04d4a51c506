package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/siqueiraa/pipemetrics/pkg/faker"
	"github.com/siqueiraa/pipemetrics/pkg/history"
	"github.com/siqueiraa/pipemetrics/pkg/translator"
)

func newFakegenCmd(opts *rootOptions) *cobra.Command {
	var (
		count    int
		seed     int64
		interval time.Duration
		lookback time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fakegen",
		Short: "Generate synthetic pipeline executions",
		Long: `Fakegen simulates executions of the configured demo pipelines and feeds
their lifecycle events through the translator into the configured backend.
Execution history is kept in memory, so red, green and lead times are
produced without CodePipeline.`,
		Example: `  # Fill the local store with 200 executions spread over the last week
  pipemetrics fakegen --backend local --count 200 --lookback 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			env, err := opts.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if len(env.Config.Fakegen.Pipelines) == 0 {
				return fmt.Errorf("fakegen.pipelines is empty")
			}
			if !cmd.Flags().Changed("interval") {
				interval = env.Config.Fakegen.Interval
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			gen := faker.New(env.Config.Fakegen.Pipelines, history.NewStatic(), seed, time.Now().Add(-lookback))
			gen.Region = env.Config.Dashboard.Region
			tr := translator.New(gen.History, env.Sink, env.Config.Metrics.Namespace)

			log.Printf("[Fakegen] Starting event generation for %v", env.Config.Fakegen.Pipelines)
			emitted := 0
		loop:
			for i := 0; count <= 0 || i < count; i++ {
				for _, e := range gen.Next() {
					data, err := tr.Handle(ctx, &e)
					if err != nil {
						return err
					}
					emitted += len(data)
				}

				select {
				case <-ctx.Done():
					break loop
				case <-time.After(interval):
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "emitted %d datum(s)\n", emitted)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "executions to simulate (0 runs until interrupted)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "wall-clock pause between executions (default fakegen.interval)")
	cmd.Flags().DurationVar(&lookback, "lookback", 24*time.Hour, "how far in the past the simulated clock starts")
	return cmd
}
