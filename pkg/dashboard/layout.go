package dashboard

import (
	"fmt"
	"time"

	"github.com/siqueiraa/pipemetrics/pkg/metrics"
)

const (
	metricWidgetWidth  = 18
	metricWidgetHeight = 3
	legendX            = metricWidgetWidth
	legendWidth        = 6
	legendHeight       = 6

	viewSingleValue = "singleValue"
	repeat          = "." // CloudWatch shorthand for "same as the row above"
)

// Widget is one entry of a CloudWatch dashboard body.
type Widget struct {
	Type       string `json:"type"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Properties any    `json:"properties"`
}

type MetricProperties struct {
	View    string  `json:"view"`
	Metrics [][]any `json:"metrics"`
	Region  string  `json:"region"`
	Title   string  `json:"title"`
	Period  int     `json:"period"`
}

type TextProperties struct {
	Markdown string `json:"markdown"`
}

// RenderOptions is the trailing options object of a metric row.
type RenderOptions struct {
	Stat   string `json:"stat"`
	Period int    `json:"period"`
	YAxis  string `json:"yAxis,omitempty"`
	Color  string `json:"color,omitempty"`
}

type Dashboard struct {
	Widgets []Widget `json:"widgets"`
}

type series struct {
	name  metrics.Name
	stat  string
	yAxis string
	color string
}

// summarySeries are the rows of every pipeline widget, top to bottom.
var summarySeries = []series{
	{name: metrics.SuccessCount, stat: "Sum"},
	{name: metrics.FailureCount, stat: "Sum"},
	{name: metrics.LeadTime, stat: "Average", color: "#9467bd"},
	{name: metrics.RedTime, stat: "Sum", yAxis: "left", color: "#d62728"},
	{name: metrics.GreenTime, stat: "Sum", color: "#2ca02c"},
}

// Layout places widgets for already sorted pipeline names.
type Layout struct {
	Namespace string
	Region    string
	Lookback  time.Duration
	Refresh   time.Duration
}

// Build stacks one summary widget per pipeline in the given order and
// appends the legend to their right.
func (l Layout) Build(pipelines []string) Dashboard {
	widgets := make([]Widget, 0, len(pipelines)+1)
	for i, name := range pipelines {
		widgets = append(widgets, Widget{
			Type:       "metric",
			X:          0,
			Y:          i * metricWidgetHeight,
			Width:      metricWidgetWidth,
			Height:     metricWidgetHeight,
			Properties: l.summary(name),
		})
	}

	widgets = append(widgets, Widget{
		Type:       "text",
		X:          legendX,
		Y:          0,
		Width:      legendWidth,
		Height:     legendHeight,
		Properties: TextProperties{Markdown: l.legend()},
	})
	return Dashboard{Widgets: widgets}
}

func (l Layout) summary(pipeline string) MetricProperties {
	period := int(l.Lookback.Seconds())
	rows := make([][]any, 0, len(summarySeries))
	for i, s := range summarySeries {
		opts := RenderOptions{Stat: s.stat, Period: period, YAxis: s.yAxis, Color: s.color}
		if i == 0 {
			rows = append(rows, []any{l.Namespace, string(s.name), metrics.DimPipeline, pipeline, opts})
			continue
		}
		rows = append(rows, []any{repeat, string(s.name), repeat, repeat, opts})
	}

	return MetricProperties{
		View:    viewSingleValue,
		Metrics: rows,
		Region:  l.Region,
		Title:   pipeline,
		Period:  int(l.Refresh.Seconds()),
	}
}

func (l Layout) legend() string {
	return fmt.Sprintf(`
All metrics are calculated over the past %s

* **SuccessCount** - count of all successful pipeline executions
* **FailureCount** - count of all failed pipeline executions
* **LeadTime** - average pipeline time for successful executions
* **RedTime** - sum of all time spent with a red pipeline
* **GreenTime** - sum of all time spent with a green pipeline
`, humanWindow(l.Lookback))
}

func humanWindow(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d == day:
		return "day"
	case d%day == 0:
		return fmt.Sprintf("%d days", int64(d/day))
	default:
		return d.String()
	}
}
