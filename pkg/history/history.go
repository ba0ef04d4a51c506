// Package history looks up pipeline execution summaries.
package history

import (
	"context"
	"iter"
	"sync"
	"time"
)

type Status string

const (
	StatusInProgress Status = "InProgress"
	StatusStopping   Status = "Stopping"
	StatusStopped    Status = "Stopped"
	StatusSucceeded  Status = "Succeeded"
	StatusSuperseded Status = "Superseded"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

// Terminal reports whether an execution with this status is finished for
// the purpose of red/green accounting.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Summary is a read-only snapshot of one pipeline execution.
type Summary struct {
	ExecutionID    string
	Status         Status
	StartTime      time.Time
	LastUpdateTime time.Time
}

// Source yields a pipeline's executions, most recent first. Implementations
// fetch lazily so callers that stop early avoid further requests.
type Source interface {
	Executions(ctx context.Context, pipeline string) iter.Seq2[Summary, error]
}

// Find returns the summary of executionID.
func Find(ctx context.Context, src Source, pipeline, executionID string) (Summary, bool, error) {
	for s, err := range src.Executions(ctx, pipeline) {
		if err != nil {
			return Summary{}, false, err
		}
		if s.ExecutionID == executionID {
			return s, true, nil
		}
	}
	return Summary{}, false, nil
}

// Prior returns the first terminal execution listed after executionID.
// The listing order is trusted as is: if events arrive out of order with
// respect to the history, the answer reflects the history, not the event.
func Prior(ctx context.Context, src Source, pipeline, executionID string) (Summary, bool, error) {
	foundCurrent := false
	for s, err := range src.Executions(ctx, pipeline) {
		if err != nil {
			return Summary{}, false, err
		}
		switch {
		case foundCurrent && s.Status.Terminal():
			return s, true, nil
		case s.ExecutionID == executionID:
			foundCurrent = true
		}
	}
	return Summary{}, false, nil
}

// Static is an in-memory Source. Record prepends, so the most recent
// execution comes first as in CodePipeline listings.
type Static struct {
	mu         sync.RWMutex
	executions map[string][]Summary
}

func NewStatic() *Static {
	return &Static{executions: make(map[string][]Summary)}
}

// Record adds or replaces an execution. A replaced execution keeps its
// position in the listing.
func (s *Static) Record(pipeline string, summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.executions[pipeline]
	for i := range list {
		if list[i].ExecutionID == summary.ExecutionID {
			list[i] = summary
			return
		}
	}
	s.executions[pipeline] = append([]Summary{summary}, list...)
}

func (s *Static) Executions(_ context.Context, pipeline string) iter.Seq2[Summary, error] {
	return func(yield func(Summary, error) bool) {
		s.mu.RLock()
		list := append([]Summary(nil), s.executions[pipeline]...)
		s.mu.RUnlock()

		for _, summary := range list {
			if !yield(summary, nil) {
				return
			}
		}
	}
}
