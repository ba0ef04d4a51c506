package faker

import (
	"context"
	"testing"
	"time"

	"github.com/siqueiraa/pipemetrics/pkg/event"
	"github.com/siqueiraa/pipemetrics/pkg/history"
	"github.com/siqueiraa/pipemetrics/pkg/metrics"
	"github.com/siqueiraa/pipemetrics/pkg/translator"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type collectingSink struct {
	data []metrics.Datum
}

func (c *collectingSink) Put(_ context.Context, _ string, data []metrics.Datum) error {
	c.data = append(c.data, data...)
	return nil
}

func TestExecutionSucceeds(t *testing.T) {
	g := New([]string{"app"}, history.NewStatic(), 1, start)
	g.FailChance = 0

	events := g.Execution("app")
	if len(events) == 0 {
		t.Fatalf("Expected events")
	}

	first, last := events[0], events[len(events)-1]
	if first.Kind() != event.KindPipeline || first.Detail.State != event.StateStarted {
		t.Errorf("Expected pipeline STARTED first, got %s %s", first.Kind(), first.Detail.State)
	}
	if last.Kind() != event.KindPipeline || last.Detail.State != event.StateSucceeded {
		t.Errorf("Expected pipeline SUCCEEDED last, got %s %s", last.Kind(), last.Detail.State)
	}

	var prev time.Time
	for i := range events {
		ts, err := events[i].ParseTime()
		if err != nil {
			t.Fatalf("Event %d has invalid time: %v", i, err)
		}
		if ts.Before(prev) {
			t.Errorf("Event %d goes back in time: %v < %v", i, ts, prev)
		}
		prev = ts
		if events[i].Detail.ExecutionID != first.Detail.ExecutionID {
			t.Errorf("Event %d belongs to another execution", i)
		}
	}

	s, ok, err := history.Find(context.Background(), g.History, "app", first.Detail.ExecutionID)
	if err != nil || !ok {
		t.Fatalf("Expected execution to be recorded: %v", err)
	}
	if s.Status != history.StatusSucceeded {
		t.Errorf("Expected Succeeded, got %s", s.Status)
	}
}

func TestExecutionFails(t *testing.T) {
	g := New([]string{"app"}, history.NewStatic(), 7, start)
	g.FailChance = 1

	events := g.Execution("app")
	last := events[len(events)-1]
	if last.Detail.State != event.StateFailed {
		t.Fatalf("Expected pipeline FAILED, got %s", last.Detail.State)
	}

	failedStages := 0
	for _, e := range events {
		if e.Kind() == event.KindStage && e.Detail.State == event.StateFailed {
			failedStages++
		}
	}
	if failedStages != 1 {
		t.Errorf("Expected exactly one failed stage, got %d", failedStages)
	}
}

func TestGeneratedEventsTranslate(t *testing.T) {
	src := history.NewStatic()
	g := New([]string{"app", "infra"}, src, 42, start)
	sink := &collectingSink{}
	tr := translator.New(src, sink, "Pipeline")

	for i := 0; i < 10; i++ {
		for _, e := range g.Next() {
			if _, err := tr.Handle(context.Background(), &e); err != nil {
				t.Fatalf("Failed to translate generated event: %v", err)
			}
		}
	}

	seen := make(map[metrics.Name]int)
	for _, d := range sink.data {
		if d.Value <= 0 {
			t.Errorf("Non-positive datum emitted: %+v", d)
		}
		seen[d.Name]++
	}

	if seen[metrics.SuccessCount] == 0 {
		t.Errorf("Expected SuccessCount data points")
	}
	if seen[metrics.LeadTime] == 0 {
		t.Errorf("Expected LeadTime data points from successful executions")
	}
	if seen[metrics.GreenTime]+seen[metrics.RedTime] == 0 {
		t.Errorf("Expected red or green time once a pipeline has run twice")
	}
}
