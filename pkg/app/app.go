// Package app wires configuration to the translator and dashboard generator
// for the entry points under cmd/.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/siqueiraa/pipemetrics/pkg/awsclient"
	"github.com/siqueiraa/pipemetrics/pkg/config"
	"github.com/siqueiraa/pipemetrics/pkg/dashboard"
	"github.com/siqueiraa/pipemetrics/pkg/history"
	"github.com/siqueiraa/pipemetrics/pkg/metrics"
	"github.com/siqueiraa/pipemetrics/pkg/store"
	"github.com/siqueiraa/pipemetrics/pkg/translator"
)

// Env holds the services selected by the configuration.
type Env struct {
	Config    config.AppConfig
	Sink      metrics.Sink
	Lister    metrics.Lister
	History   history.Source
	Publisher dashboard.Publisher
	Archiver  dashboard.Archiver

	// Store is set for the local backend.
	Store *store.Store
}

// Open validates cfg and builds every service it names. AWS clients are only
// created when a component needs them.
func Open(ctx context.Context, cfg config.AppConfig) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env := &Env{Config: cfg}

	var clients *awsclient.Clients
	awsClients := func() (*awsclient.Clients, error) {
		if clients != nil {
			return clients, nil
		}
		c, err := awsclient.New(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		clients = c
		return c, nil
	}

	switch cfg.Metrics.Backend {
	case config.BackendLocal:
		st, err := store.Open(cfg.Metrics.LocalPath, cfg.Metrics.Retention)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		env.Store = st
		env.Sink = st
		env.Lister = st
		env.Publisher = dashboard.FilePublisher{Path: cfg.Dashboard.Output}
	default:
		c, err := awsClients()
		if err != nil {
			return nil, err
		}
		cw := metrics.NewCloudWatch(c.CloudWatch)
		env.Sink = cw
		env.Lister = cw
		env.Publisher = dashboard.NewCloudWatchPublisher(c.CloudWatch)
	}

	switch cfg.History.Source {
	case config.HistoryNone:
		env.History = history.NewStatic()
		log.Printf("[App] History source is none: LeadTime, RedTime and GreenTime are disabled")
	default:
		c, err := awsClients()
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		env.History = history.NewCodePipeline(c.CodePipeline)
	}

	if cfg.Dashboard.Archive.Enabled {
		c, err := awsClients()
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		env.Archiver = dashboard.NewS3Archiver(c.Uploader(), cfg.Dashboard.Archive.Bucket, cfg.Dashboard.Archive.Prefix)
	}

	log.Printf("[App] Backend=%s | History=%s | Namespace=%s | Dashboard=%s",
		cfg.Metrics.Backend, cfg.History.Source, cfg.Metrics.Namespace, cfg.Dashboard.Name)
	return env, nil
}

// Translator returns a translator over the environment's history and sink.
func (e *Env) Translator() *translator.Translator {
	return translator.New(e.History, e.Sink, e.Config.Metrics.Namespace)
}

// Generator returns a dashboard generator configured from the environment.
func (e *Env) Generator() *dashboard.Generator {
	g := dashboard.NewGenerator(e.Lister, e.Publisher, e.Config.Dashboard.Name, dashboard.Layout{
		Namespace: e.Config.Metrics.Namespace,
		Region:    e.Config.Dashboard.Region,
		Lookback:  e.Config.Dashboard.Lookback,
		Refresh:   e.Config.Dashboard.Refresh,
	})
	if e.Archiver != nil {
		g.WithArchiver(e.Archiver)
	}
	return g
}

// Close releases the local store, if any.
func (e *Env) Close() error {
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}
