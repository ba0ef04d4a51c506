// Package metrics defines the metric data points emitted for pipeline events
// and the services that store and list them.
package metrics

import (
	"context"
	"iter"
	"time"
)

type Name string

const (
	SuccessCount Name = "SuccessCount"
	FailureCount Name = "FailureCount"
	LeadTime     Name = "LeadTime"
	RedTime      Name = "RedTime"
	GreenTime    Name = "GreenTime"
)

type Unit string

const (
	UnitSeconds Unit = "Seconds"
	UnitCount   Unit = "Count"
)

// Dimension names, in the order they are attached to a datum.
const (
	DimPipeline = "PipelineName"
	DimStage    = "StageName"
	DimAction   = "ActionName"
)

type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Datum is a single data point. Constructors never produce one whose
// Value is not strictly positive.
type Datum struct {
	Name       Name        `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
	Timestamp  time.Time   `json:"timestamp"`
	Value      float64     `json:"value"`
	Unit       Unit        `json:"unit"`
}

// Count builds a Count datum, reporting false when n is not positive.
func Count(name Name, dims []Dimension, ts time.Time, n float64) (Datum, bool) {
	return newDatum(name, dims, ts, n, UnitCount)
}

// Duration builds a Seconds datum, reporting false when d is not positive.
func Duration(name Name, dims []Dimension, ts time.Time, d time.Duration) (Datum, bool) {
	return newDatum(name, dims, ts, d.Seconds(), UnitSeconds)
}

func newDatum(name Name, dims []Dimension, ts time.Time, value float64, unit Unit) (Datum, bool) {
	if value <= 0 {
		return Datum{}, false
	}
	return Datum{
		Name:       name,
		Dimensions: dims,
		Timestamp:  ts,
		Value:      value,
		Unit:       unit,
	}, true
}

// Descriptor identifies one metric series as returned by a listing.
type Descriptor struct {
	Namespace  string      `json:"namespace"`
	Name       Name        `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
}

// Dimension returns the value of the named dimension.
func (d Descriptor) Dimension(name string) (string, bool) {
	for _, dim := range d.Dimensions {
		if dim.Name == name {
			return dim.Value, true
		}
	}
	return "", false
}

// Sink writes one batch of data points under a namespace.
type Sink interface {
	Put(ctx context.Context, namespace string, data []Datum) error
}

// Lister enumerates every series in a namespace. The sequence fetches pages
// lazily and can be ranged over more than once; iteration stops at the first
// error, which is yielded with a zero Descriptor.
type Lister interface {
	List(ctx context.Context, namespace string) iter.Seq2[Descriptor, error]
}
