// Package translator turns CodePipeline lifecycle events into metric data
// points and submits them as one batch.
package translator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/siqueiraa/pipemetrics/pkg/event"
	"github.com/siqueiraa/pipemetrics/pkg/history"
	"github.com/siqueiraa/pipemetrics/pkg/metrics"
)

type Translator struct {
	history   history.Source
	sink      metrics.Sink
	namespace string
}

func New(src history.Source, sink metrics.Sink, namespace string) *Translator {
	return &Translator{
		history:   src,
		sink:      sink,
		namespace: namespace,
	}
}

// Handle translates e and submits the result. The data points are returned
// even when submission fails.
func (t *Translator) Handle(ctx context.Context, e *event.Event) ([]metrics.Datum, error) {
	data, err := t.Translate(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := t.sink.Put(ctx, t.namespace, data); err != nil {
		return data, fmt.Errorf("submit %d datum(s) for %s: %w", len(data), e.Resource(), err)
	}
	return data, nil
}

// Translate computes the data points for e without submitting them.
// Events that are not SUCCEEDED or FAILED produce nothing.
func (t *Translator) Translate(ctx context.Context, e *event.Event) ([]metrics.Datum, error) {
	state, ok := e.TerminalState()
	if !ok {
		return nil, nil
	}

	ts, err := e.ParseTime()
	if err != nil {
		return nil, err
	}

	b := &batch{
		resource: e.Resource(),
		dims:     dimensions(e.Detail),
		ts:       ts,
	}

	switch e.Kind() {
	case event.KindPipeline:
		if err := t.pipeline(ctx, e, state, b); err != nil {
			return nil, err
		}
	case event.KindStage, event.KindAction:
		b.outcome(state)
	case event.KindUnknown:
		// no metrics
	}
	return b.data, nil
}

// pipeline adds red/green time since the prior terminal execution, the
// outcome count and, on success, the lead time of the current execution.
func (t *Translator) pipeline(ctx context.Context, e *event.Event, state event.State, b *batch) error {
	name, id := e.Detail.Pipeline, e.Detail.ExecutionID
	if id == "" {
		log.Printf("[Translator] %s event without execution-id, skipping history lookups", b.resource)
		b.outcome(state)
		return nil
	}

	prior, found, err := history.Prior(ctx, t.history, name, id)
	if err != nil {
		return fmt.Errorf("prior execution of %s/%s: %w", name, id, err)
	}
	if found {
		elapsed := b.ts.Sub(prior.LastUpdateTime)
		switch prior.Status {
		case history.StatusSucceeded:
			b.duration(metrics.GreenTime, elapsed)
		case history.StatusFailed:
			b.duration(metrics.RedTime, elapsed)
		}
	}

	b.outcome(state)
	if state != event.StateSucceeded {
		return nil
	}

	current, found, err := history.Find(ctx, t.history, name, id)
	if err != nil {
		return fmt.Errorf("execution %s/%s: %w", name, id, err)
	}
	if found {
		b.duration(metrics.LeadTime, b.ts.Sub(current.StartTime))
	}
	return nil
}

func dimensions(d event.Detail) []metrics.Dimension {
	dims := make([]metrics.Dimension, 0, 3)
	if d.Pipeline != "" {
		dims = append(dims, metrics.Dimension{Name: metrics.DimPipeline, Value: d.Pipeline})
	}
	if d.Stage != "" {
		dims = append(dims, metrics.Dimension{Name: metrics.DimStage, Value: d.Stage})
	}
	if d.Action != "" {
		dims = append(dims, metrics.Dimension{Name: metrics.DimAction, Value: d.Action})
	}
	return dims
}

// batch accumulates the data points of one event in emission order.
type batch struct {
	resource string
	dims     []metrics.Dimension
	ts       time.Time
	data     []metrics.Datum
}

func (b *batch) outcome(state event.State) {
	switch state {
	case event.StateSucceeded:
		b.add(metrics.Count(metrics.SuccessCount, b.dims, b.ts, 1))
	case event.StateFailed:
		b.add(metrics.Count(metrics.FailureCount, b.dims, b.ts, 1))
	}
}

func (b *batch) duration(name metrics.Name, d time.Duration) {
	b.add(metrics.Duration(name, b.dims, b.ts, d))
}

func (b *batch) add(d metrics.Datum, ok bool) {
	if !ok {
		return
	}
	log.Printf("[Translator] resource=%s metric=%s value=%v", b.resource, d.Name, d.Value)
	b.data = append(b.data, d)
}
