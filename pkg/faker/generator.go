// Package faker produces synthetic CodePipeline lifecycle events for local
// runs and demos.
package faker

import (
	"math/rand" // Using weak random for test data generation only
	"time"

	"github.com/google/uuid"

	"github.com/siqueiraa/pipemetrics/pkg/event"
	"github.com/siqueiraa/pipemetrics/pkg/history"
)

const (
	fakeAccount       = "123456789012"
	fakeSource        = "aws.codepipeline"
	minActionSeconds  = 30
	maxActionSeconds  = 300
	maxIdleMinutes    = 60
	defaultFailChance = 0.2
)

type stage struct {
	name    string
	actions []action
}

type action struct {
	name     string
	category string
}

var stages = []stage{
	{name: "Source", actions: []action{{name: "Checkout", category: "Source"}}},
	{name: "Build", actions: []action{{name: "Compile", category: "Build"}, {name: "UnitTest", category: "Test"}}},
	{name: "Deploy", actions: []action{{name: "Approve", category: "Approval"}, {name: "Release", category: "Deploy"}}},
}

// Generator simulates executions of a set of pipelines on a virtual clock.
// Every execution is recorded in History before its events are returned, so
// a translator reading the same History sees a consistent past.
type Generator struct {
	History    *history.Static
	Region     string
	FailChance float64
	pipelines  []string
	rng        *rand.Rand
	clock      time.Time
}

func New(pipelines []string, src *history.Static, seed int64, start time.Time) *Generator {
	return &Generator{
		History:    src,
		Region:     "us-east-1",
		FailChance: defaultFailChance,
		pipelines:  pipelines,
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // Using weak random for test data generation only
		clock:      start.UTC().Truncate(time.Second),
	}
}

// Next runs one execution of a randomly chosen pipeline.
func (g *Generator) Next() []event.Event {
	return g.Execution(g.pipelines[g.rng.Intn(len(g.pipelines))])
}

// Execution simulates one run of pipeline and returns its events in
// chronological order: pipeline start, stage and action transitions, and the
// terminal pipeline event.
func (g *Generator) Execution(pipeline string) []event.Event {
	g.advance(time.Duration(1+g.rng.Intn(maxIdleMinutes)) * time.Minute)

	id := uuid.NewString()
	start := g.clock
	failAt := -1
	if g.rng.Float64() < g.FailChance {
		failAt = g.rng.Intn(len(stages))
	}

	var events []event.Event
	emit := func(detailType string, d event.Detail) {
		d.Pipeline = pipeline
		d.ExecutionID = id
		events = append(events, event.Event{
			ID:         uuid.NewString(),
			Source:     fakeSource,
			Account:    fakeAccount,
			Region:     g.Region,
			DetailType: detailType,
			Time:       g.clock.Format(event.TimeLayout),
			Detail:     d,
		})
	}

	emit(event.DetailTypePipeline, event.Detail{State: event.StateStarted})

	final := event.StateSucceeded
	for i, st := range stages {
		emit(event.DetailTypeStage, event.Detail{Stage: st.name, State: event.StateStarted})

		stageState := event.StateSucceeded
		for j, a := range st.actions {
			emit(event.DetailTypeAction, event.Detail{Stage: st.name, Action: a.name, Category: a.category, State: event.StateStarted})
			g.advance(time.Duration(minActionSeconds+g.rng.Intn(maxActionSeconds-minActionSeconds)) * time.Second)

			actionState := event.StateSucceeded
			if i == failAt && j == len(st.actions)-1 {
				actionState = event.StateFailed
				stageState = event.StateFailed
			}
			emit(event.DetailTypeAction, event.Detail{Stage: st.name, Action: a.name, Category: a.category, State: actionState})
		}

		emit(event.DetailTypeStage, event.Detail{Stage: st.name, State: stageState})
		if stageState == event.StateFailed {
			final = event.StateFailed
			break
		}
	}

	status := history.StatusSucceeded
	if final == event.StateFailed {
		status = history.StatusFailed
	}
	g.History.Record(pipeline, history.Summary{
		ExecutionID:    id,
		Status:         status,
		StartTime:      start,
		LastUpdateTime: g.clock,
	})

	emit(event.DetailTypePipeline, event.Detail{State: final})
	return events
}

func (g *Generator) advance(d time.Duration) {
	g.clock = g.clock.Add(d)
}
