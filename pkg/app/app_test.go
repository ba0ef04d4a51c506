package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siqueiraa/pipemetrics/pkg/config"
	"github.com/siqueiraa/pipemetrics/pkg/event"
	"github.com/siqueiraa/pipemetrics/pkg/history"
	"github.com/siqueiraa/pipemetrics/pkg/metrics"
)

func localConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Metrics.Backend = config.BackendLocal
	cfg.Metrics.LocalPath = filepath.Join(dir, "metrics")
	cfg.Dashboard.Output = filepath.Join(dir, "dashboard.json")
	cfg.History.Source = config.HistoryNone
	return cfg
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Backend = "statsd"

	_, err := Open(context.Background(), cfg)
	assert.True(t, errors.Is(err, config.ErrUnsupportedBackend))
}

func TestLocalBackendKeepsCodePipelineHistory(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := localConfig(t)
	cfg.History.Source = config.HistoryCodePipeline
	cfg.AWS = config.AWSConfig{Region: "us-east-1", AccessKey: "test", SecretKey: "test"}

	env, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	_, ok := env.History.(*history.CodePipeline)
	assert.True(t, ok)
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)

	env, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer env.Close()

	// No history source, so only counts are produced.
	_, ok := env.History.(*history.Static)
	require.True(t, ok)

	events := []*event.Event{
		{
			DetailType: event.DetailTypeStage,
			Time:       "2024-01-01T00:00:00Z",
			Detail:     event.Detail{Pipeline: "beta", Stage: "Build", State: event.StateFailed},
		},
		{
			DetailType: event.DetailTypePipeline,
			Time:       "2024-01-01T00:05:00Z",
			Detail:     event.Detail{Pipeline: "alpha", ExecutionID: "a1", State: event.StateSucceeded},
		},
		{
			DetailType: event.DetailTypeAction,
			Time:       "2024-01-01T00:06:00Z",
			Detail:     event.Detail{Pipeline: "alpha", Stage: "Deploy", Action: "Push", State: event.StateStarted},
		},
	}

	tr := env.Translator()
	for _, e := range events {
		_, err := tr.Handle(ctx, e)
		require.NoError(t, err)
	}

	stats, err := env.Store.Stats(ctx, cfg.Metrics.Namespace)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	dash, err := env.Generator().Generate(ctx)
	require.NoError(t, err)
	require.Len(t, dash.Widgets, 3)
	assert.Equal(t, 0, dash.Widgets[0].Y)
	assert.Equal(t, 3, dash.Widgets[1].Y)

	body, err := os.ReadFile(cfg.Dashboard.Output)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"title":"alpha"`)
	assert.Contains(t, string(body), `"title":"beta"`)

	names := make([]metrics.Name, 0, len(stats))
	for _, st := range stats {
		names = append(names, st.Series.Name)
	}
	assert.ElementsMatch(t, []metrics.Name{metrics.SuccessCount, metrics.FailureCount}, names)
}
