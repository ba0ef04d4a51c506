package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siqueiraa/pipemetrics/pkg/app"
	"github.com/siqueiraa/pipemetrics/pkg/config"
)

type rootOptions struct {
	configPath string
	backend    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pipemetrics",
		Short: "Turn CodePipeline lifecycle events into CloudWatch metrics and dashboards",
		Long: `pipemetrics records SuccessCount, FailureCount, LeadTime, RedTime and
GreenTime for every pipeline reporting CodePipeline state changes, and keeps a
CloudWatch dashboard summarizing the last 30 days of each pipeline.

The same logic runs as two Lambda functions (pipeline-event, dashboard); this
CLI drives it locally against CloudWatch or an embedded store.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("PIPEMETRICS_CONFIG"),
		"YAML config file (defaults plus PIPEMETRICS_* environment when empty)")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "",
		"override metrics.backend (cloudwatch or local)")

	root.AddCommand(
		newTranslateCmd(opts),
		newDashboardCmd(opts),
		newFakegenCmd(opts),
		newStatsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig applies flag overrides on top of the configuration file.
func (o *rootOptions) loadConfig() config.AppConfig {
	cfg := config.Load(o.configPath)
	if o.backend != "" {
		cfg.Metrics.Backend = o.backend
	}
	return cfg
}

func (o *rootOptions) openEnv(ctx context.Context) (*app.Env, error) {
	return app.Open(ctx, o.loadConfig())
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
