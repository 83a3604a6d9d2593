package report

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/phrazzld/taskwatch/internal/domain"
)

const (
	chartWidth  = 800
	chartHeight = 480
	chartTitle  = "Task Response Time Trend"
)

// ErrNoTrendData is returned by RenderTrend when there is nothing to plot.
var ErrNoTrendData = errors.New("no response times to plot")

var (
	trendColor = drawing.ColorFromHex("ffa500")
	gridStyle  = chart.Style{
		StrokeColor:     drawing.ColorFromHex("cccccc"),
		StrokeWidth:     1,
		StrokeDashArray: []float64{4, 4},
	}
)

// RenderTrend draws the per-day mean response times as a PNG line chart
// with one dated tick per day.
func RenderTrend(days []DayResponse) ([]byte, error) {
	if len(days) == 0 {
		return nil, ErrNoTrendData
	}

	xs := make([]time.Time, len(days))
	ys := make([]float64, len(days))
	ticks := make([]chart.Tick, len(days))
	maxY := 1.0
	for i, d := range days {
		day, err := time.Parse(domain.DateLayout, d.Date)
		if err != nil {
			return nil, fmt.Errorf("bad trend date %q: %w", d.Date, err)
		}
		xs[i] = day
		ys[i] = d.MeanMinutes
		ticks[i] = chart.Tick{Value: chart.TimeToFloat64(day), Label: d.Date}
		maxY = math.Max(maxY, d.MeanMinutes)
	}

	// half a day either side keeps a single point off the axes
	first, last := xs[0].Add(-12*time.Hour), xs[len(xs)-1].Add(12*time.Hour)

	graph := chart.Chart{
		Title:  chartTitle,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 30, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
			Ticks:          ticks,
			TickStyle:      chart.Style{TextRotationDegrees: 45},
			GridMajorStyle: gridStyle,
		},
		YAxis: chart.YAxis{
			Name:           "Average Response Time (minutes)",
			Range:          &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
			GridMajorStyle: gridStyle,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "Average Response Time",
				Style: chart.Style{
					StrokeColor: trendColor,
					StrokeWidth: 2,
					DotColor:    trendColor,
					DotWidth:    5,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}
