package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendCloudWatch = "cloudwatch"
	BackendLocal      = "local"

	HistoryCodePipeline = "codepipeline"
	HistoryNone         = "none"

	envPrefix = "PIPEMETRICS_"
)

// ErrUnsupportedBackend is returned by Validate when metrics.backend names
// something other than cloudwatch or local.
var ErrUnsupportedBackend = errors.New("unsupported metrics backend")

// ErrUnsupportedHistorySource is returned by Validate when history.source
// names something other than codepipeline or none.
var ErrUnsupportedHistorySource = errors.New("unsupported history source")

// Named type to allow reuse by awsclient
type AWSConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type MetricsConfig struct {
	Namespace string        `yaml:"namespace"`
	Backend   string        `yaml:"backend"`   // cloudwatch | local
	LocalPath string        `yaml:"localPath"` // badger directory for the local backend
	Retention time.Duration `yaml:"retention"` // local points expire after this; 0 keeps them
}

// HistoryConfig selects the execution history service. It is independent of
// the metrics backend: a local store still reads CodePipeline history.
type HistoryConfig struct {
	Source string `yaml:"source"` // codepipeline | none
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type DashboardConfig struct {
	Name     string        `yaml:"name"`
	Region   string        `yaml:"region"`   // region rendered into metric widgets
	Lookback time.Duration `yaml:"lookback"` // aggregation period of each metric row
	Refresh  time.Duration `yaml:"refresh"`  // widget display period
	Output   string        `yaml:"output"`   // file written by the local publisher
	Archive  ArchiveConfig `yaml:"archive"`
}

type FakegenConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Pipelines []string      `yaml:"pipelines"`
}

type AppConfig struct {
	AWS       AWSConfig       `yaml:"aws"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	History   HistoryConfig   `yaml:"history"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Fakegen   FakegenConfig   `yaml:"fakegen"`
}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Metrics: MetricsConfig{
			Namespace: "Pipeline",
			Backend:   BackendCloudWatch,
			LocalPath: "data/metrics",
		},
		History: HistoryConfig{
			Source: HistoryCodePipeline,
		},
		Dashboard: DashboardConfig{
			Name:     "Pipeline",
			Region:   "us-east-1",
			Lookback: 30 * 24 * time.Hour,
			Refresh:  5 * time.Minute,
			Output:   "dashboard.json",
		},
		Fakegen: FakegenConfig{
			Interval:  1 * time.Second,
			Pipelines: []string{"demo-app", "demo-infra"},
		},
	}
}

// Load reads and parses a YAML config file into an AppConfig struct, then
// applies PIPEMETRICS_* environment overrides. An empty path skips the file,
// which is how the Lambda entry points run. It will terminate the program if
// a named file is not found or invalid.
func Load(path string) AppConfig {
	cfg := Default()

	// .env is optional; a missing file is not an error worth reporting
	_ = godotenv.Load()

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Fatalf("Config file not found: %s", path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Error reading config file: %v", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing config file: %v", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		log.Fatalf("Error reading environment overrides: %v", err)
	}
	return cfg
}

// Validate checks the settings every entry point depends on.
func (c *AppConfig) Validate() error {
	if c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace is required")
	}
	if c.Dashboard.Name == "" {
		return fmt.Errorf("dashboard name is required")
	}
	switch c.Metrics.Backend {
	case BackendCloudWatch:
	case BackendLocal:
		if c.Metrics.LocalPath == "" {
			return fmt.Errorf("metrics localPath is required for the local backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Metrics.Backend)
	}
	switch c.History.Source {
	case HistoryCodePipeline, HistoryNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedHistorySource, c.History.Source)
	}
	if c.Dashboard.Archive.Enabled && c.Dashboard.Archive.Bucket == "" {
		return fmt.Errorf("dashboard archive bucket is required when archiving is enabled")
	}
	if c.Dashboard.Lookback <= 0 || c.Dashboard.Refresh <= 0 {
		return fmt.Errorf("dashboard lookback and refresh must be positive")
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	strs := map[string]*string{
		"AWS_REGION":       &cfg.AWS.Region,
		"AWS_ENDPOINT":     &cfg.AWS.Endpoint,
		"AWS_ACCESS_KEY":   &cfg.AWS.AccessKey,
		"AWS_SECRET_KEY":   &cfg.AWS.SecretKey,
		"HISTORY_SOURCE":   &cfg.History.Source,
		"NAMESPACE":        &cfg.Metrics.Namespace,
		"BACKEND":          &cfg.Metrics.Backend,
		"LOCAL_PATH":       &cfg.Metrics.LocalPath,
		"DASHBOARD_NAME":   &cfg.Dashboard.Name,
		"DASHBOARD_REGION": &cfg.Dashboard.Region,
		"DASHBOARD_OUTPUT": &cfg.Dashboard.Output,
		"ARCHIVE_BUCKET":   &cfg.Dashboard.Archive.Bucket,
		"ARCHIVE_PREFIX":   &cfg.Dashboard.Archive.Prefix,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "ARCHIVE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sARCHIVE_ENABLED: %w", envPrefix, err)
		}
		cfg.Dashboard.Archive.Enabled = b
	}

	durations := map[string]*time.Duration{
		"DASHBOARD_LOOKBACK": &cfg.Dashboard.Lookback,
		"DASHBOARD_REFRESH":  &cfg.Dashboard.Refresh,
	}
	for name, dst := range durations {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}
	return nil
}
