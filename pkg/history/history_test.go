package history

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"
)

func at(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

// newHistory builds a Static source from summaries listed most recent first.
func newHistory(pipeline string, summaries ...Summary) *Static {
	src := NewStatic()
	for i := len(summaries) - 1; i >= 0; i-- {
		src.Record(pipeline, summaries[i])
	}
	return src
}

func TestFind(t *testing.T) {
	src := newHistory("P",
		Summary{ExecutionID: "E2", Status: StatusSucceeded, StartTime: at("2023-12-31T23:55:00Z")},
		Summary{ExecutionID: "E1", Status: StatusFailed},
	)

	s, ok, err := Find(context.Background(), src, "P", "E2")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("Expected E2 to be found")
	}
	if !s.StartTime.Equal(at("2023-12-31T23:55:00Z")) {
		t.Errorf("Start time mismatch: got %v", s.StartTime)
	}

	if _, ok, _ := Find(context.Background(), src, "P", "E9"); ok {
		t.Errorf("Expected E9 not to be found")
	}
	if _, ok, _ := Find(context.Background(), src, "other", "E2"); ok {
		t.Errorf("Expected nothing for unknown pipeline")
	}
}

func TestPrior(t *testing.T) {
	tests := []struct {
		name    string
		history []Summary
		current string
		wantID  string
		wantOK  bool
	}{
		{
			name: "previous failed",
			history: []Summary{
				{ExecutionID: "E2", Status: StatusInProgress},
				{ExecutionID: "E1", Status: StatusFailed},
			},
			current: "E2",
			wantID:  "E1",
			wantOK:  true,
		},
		{
			name: "skips non terminal executions",
			history: []Summary{
				{ExecutionID: "E4", Status: StatusSucceeded},
				{ExecutionID: "E3", Status: StatusSuperseded},
				{ExecutionID: "E2", Status: StatusStopped},
				{ExecutionID: "E1", Status: StatusSucceeded},
			},
			current: "E4",
			wantID:  "E1",
			wantOK:  true,
		},
		{
			name: "ignores newer executions",
			history: []Summary{
				{ExecutionID: "E3", Status: StatusFailed},
				{ExecutionID: "E2", Status: StatusSucceeded},
				{ExecutionID: "E1", Status: StatusSucceeded},
			},
			current: "E2",
			wantID:  "E1",
			wantOK:  true,
		},
		{
			name: "first execution",
			history: []Summary{
				{ExecutionID: "E1", Status: StatusSucceeded},
			},
			current: "E1",
			wantOK:  false,
		},
		{
			name: "current not listed",
			history: []Summary{
				{ExecutionID: "E2", Status: StatusSucceeded},
				{ExecutionID: "E1", Status: StatusFailed},
			},
			current: "E9",
			wantOK:  false,
		},
		{
			name: "no terminal predecessor",
			history: []Summary{
				{ExecutionID: "E2", Status: StatusSucceeded},
				{ExecutionID: "E1", Status: StatusCancelled},
			},
			current: "E2",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newHistory("P", tt.history...)
			s, ok, err := Prior(context.Background(), src, "P", tt.current)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Found mismatch: got %v, want %v", ok, tt.wantOK)
			}
			if ok && s.ExecutionID != tt.wantID {
				t.Errorf("Prior mismatch: got %s, want %s", s.ExecutionID, tt.wantID)
			}
		})
	}
}

type failingSource struct{ err error }

func (f failingSource) Executions(context.Context, string) iter.Seq2[Summary, error] {
	return func(yield func(Summary, error) bool) {
		yield(Summary{}, f.err)
	}
}

func TestLookupErrorsPropagate(t *testing.T) {
	boom := errors.New("throttling")
	src := failingSource{err: boom}

	if _, _, err := Find(context.Background(), src, "P", "E1"); !errors.Is(err, boom) {
		t.Errorf("Find: expected %v, got %v", boom, err)
	}
	if _, _, err := Prior(context.Background(), src, "P", "E1"); !errors.Is(err, boom) {
		t.Errorf("Prior: expected %v, got %v", boom, err)
	}
}

func TestStaticRecordReplaces(t *testing.T) {
	src := NewStatic()
	src.Record("P", Summary{ExecutionID: "E1", Status: StatusInProgress})
	src.Record("P", Summary{ExecutionID: "E2", Status: StatusInProgress})
	src.Record("P", Summary{ExecutionID: "E1", Status: StatusSucceeded})

	var got []Summary
	for s, err := range src.Executions(context.Background(), "P") {
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got = append(got, s)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(got))
	}
	if got[0].ExecutionID != "E2" || got[1].ExecutionID != "E1" {
		t.Errorf("Expected most recent first, got %s, %s", got[0].ExecutionID, got[1].ExecutionID)
	}
	if got[1].Status != StatusSucceeded {
		t.Errorf("Expected E1 to be replaced, got %s", got[1].Status)
	}
}
