// Package dashboard rebuilds the CloudWatch dashboard that summarizes every
// pipeline reporting into the metrics namespace.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"slices"

	jsoniter "github.com/json-iterator/go"

	"github.com/siqueiraa/pipemetrics/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher replaces the dashboard called name with body.
type Publisher interface {
	PutDashboard(ctx context.Context, name string, body []byte) error
}

// Archiver keeps a copy of each published body.
type Archiver interface {
	Archive(ctx context.Context, name string, body []byte) error
}

type Generator struct {
	lister    metrics.Lister
	publisher Publisher
	archiver  Archiver
	name      string
	layout    Layout
}

func NewGenerator(lister metrics.Lister, publisher Publisher, name string, layout Layout) *Generator {
	return &Generator{
		lister:    lister,
		publisher: publisher,
		name:      name,
		layout:    layout,
	}
}

// WithArchiver enables archiving of published bodies.
func (g *Generator) WithArchiver(a Archiver) *Generator {
	g.archiver = a
	return g
}

// PipelineNames returns the distinct PipelineName dimension values in the
// namespace, sorted.
func (g *Generator) PipelineNames(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for desc, err := range g.lister.List(ctx, g.layout.Namespace) {
		if err != nil {
			return nil, err
		}
		if name, ok := desc.Dimension(metrics.DimPipeline); ok {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Generate lists the namespace, lays out the dashboard and overwrites the
// published one. Widgets added by hand are not preserved.
func (g *Generator) Generate(ctx context.Context) (Dashboard, error) {
	names, err := g.PipelineNames(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("discover pipelines: %w", err)
	}
	log.Printf("[Dashboard] Found %d pipeline(s) in namespace %s", len(names), g.layout.Namespace)

	dash := g.layout.Build(names)
	body, err := json.Marshal(dash)
	if err != nil {
		return Dashboard{}, fmt.Errorf("encode dashboard: %w", err)
	}

	if err := g.publisher.PutDashboard(ctx, g.name, body); err != nil {
		return Dashboard{}, fmt.Errorf("put dashboard %s: %w", g.name, err)
	}
	log.Printf("[Dashboard] Published %s with %d widget(s)", g.name, len(dash.Widgets))

	if g.archiver != nil {
		if err := g.archiver.Archive(ctx, g.name, body); err != nil {
			log.Printf("[Dashboard] Failed to archive %s: %v", g.name, err)
		}
	}
	return dash, nil
}
