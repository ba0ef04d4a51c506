// Package event models the CodePipeline lifecycle notifications delivered by
// EventBridge and classifies them for metric translation.
package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// TimeLayout is the only accepted format of the envelope `time` field.
const TimeLayout = "2006-01-02T15:04:05Z"

const (
	DetailTypePipeline = "CodePipeline Pipeline Execution State Change"
	DetailTypeStage    = "CodePipeline Stage Execution State Change"
	DetailTypeAction   = "CodePipeline Action Execution State Change"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// ErrInvalidTime is returned when the envelope time does not match TimeLayout.
	ErrInvalidTime = errors.New("invalid event time")
)

// Kind is the granularity an event reports on.
type Kind int

const (
	KindUnknown Kind = iota
	KindPipeline
	KindStage
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindStage:
		return "stage"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// State is the execution state carried in detail.state.
type State string

const (
	StateStarted    State = "STARTED"
	StateResumed    State = "RESUMED"
	StateStopping   State = "STOPPING"
	StateStopped    State = "STOPPED"
	StateCanceled   State = "CANCELED"
	StateSuperseded State = "SUPERSEDED"
	StateAbandoned  State = "ABANDONED"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether the state is one metrics are emitted for.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Detail is the CodePipeline specific part of the notification. Empty
// strings stand for absent optional fields.
type Detail struct {
	Pipeline    string `json:"pipeline"`
	ExecutionID string `json:"execution-id,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Action      string `json:"action,omitempty"`
	State       State  `json:"state,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Event is one EventBridge delivery. Time is kept raw so that parsing
// failures surface from ParseTime instead of the decoder.
type Event struct {
	ID         string `json:"id,omitempty"`
	Source     string `json:"source,omitempty"`
	Account    string `json:"account,omitempty"`
	Region     string `json:"region,omitempty"`
	DetailType string `json:"detail-type"`
	Time       string `json:"time"`
	Detail     Detail `json:"detail"`
}

// Parse decodes a raw EventBridge payload.
func Parse(data []byte) (Event, error) {
	var e Event
	if len(data) == 0 {
		return e, fmt.Errorf("empty event payload")
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Kind classifies the event by its detail-type.
func (e *Event) Kind() Kind {
	switch e.DetailType {
	case DetailTypePipeline:
		return KindPipeline
	case DetailTypeStage:
		return KindStage
	case DetailTypeAction:
		return KindAction
	default:
		return KindUnknown
	}
}

// TerminalState returns detail.state when it is SUCCEEDED or FAILED.
func (e *Event) TerminalState() (State, bool) {
	if !e.Detail.State.Terminal() {
		return "", false
	}
	return e.Detail.State, true
}

// ParseTime parses the envelope time as UTC. Fractional seconds and numeric
// offsets are rejected.
func (e *Event) ParseTime() (time.Time, error) {
	if len(e.Time) != len(TimeLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, e.Time)
	}
	ts, err := time.Parse(TimeLayout, e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, e.Time, err)
	}
	return ts.UTC(), nil
}

// Resource joins the present pipeline, stage and action names with dots.
func (e *Event) Resource() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Detail.Pipeline, e.Detail.Stage, e.Detail.Action} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Marshal encodes the event back to its wire form.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
