package render

import (
	"bytes"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

const (
	chartWidth   = 1000
	chartHeight  = 600
	maxAxisTicks = 12
)

// chartRenderer rasterizes rows into PNG charts with go-chart. Column
// presence is checked by the dispatcher before the renderer is called;
// the renderer still owns numeric coercion of the Y values.
type chartRenderer struct{}

// NewChartRenderer creates the default chart renderer.
func NewChartRenderer() ChartRenderer {
	return &chartRenderer{}
}

// RenderChart renders rows according to spec and returns the PNG file.
func (r *chartRenderer) RenderChart(rows []models.Row, spec models.ChartSpec) (*File, error) {
	theme := models.ThemeByName(spec.Theme)

	labels := make([]string, len(rows))
	values := make([]float64, len(rows))
	for i, row := range rows {
		labels[i] = formatScalar(row[spec.XColumn])
		y, ok := toFloat(row[spec.YColumn])
		if !ok {
			return nil, errors.Newf(errors.CodeRenderFailed,
				"Column '%s' is not numeric and cannot be charted.", spec.YColumn)
		}
		values[i] = y
	}

	var buf bytes.Buffer
	var err error
	switch spec.Type {
	case models.ChartBar:
		err = renderBarChart(&buf, spec, theme, labels, values)
	case models.ChartPie:
		err = renderPieChart(&buf, spec, theme, labels, values)
	case models.ChartLine, models.ChartScatter:
		err = renderXYChart(&buf, spec, theme, rows, labels, values)
	default:
		return nil, errors.Newf(errors.CodeRenderFailed,
			"Unsupported chart type: %s", spec.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeRenderFailed,
			"failed to render %s chart", spec.Type)
	}

	return &File{
		Name:     ChartFileName(),
		Bytes:    buf.Bytes(),
		MimeType: models.MimeTypePNG,
	}, nil
}

func renderBarChart(buf *bytes.Buffer, spec models.ChartSpec, theme models.ChartTheme, labels []string, values []float64) error {
	series := colorFromHex(theme.SeriesColor)
	background := colorFromHex(theme.Background)
	text := textColor(background)

	bars := make([]chart.Value, len(values))
	for i, v := range values {
		bars[i] = chart.Value{
			Label: labels[i],
			Value: v,
			Style: chart.Style{FillColor: series, StrokeColor: series},
		}
	}

	min, max := valueRange(values)
	if min > 0 {
		min = 0
	}

	graph := chart.BarChart{
		Title:      spec.DisplayTitle(),
		TitleStyle: chart.Style{FontSize: theme.TitleSize, FontColor: text},
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis:      chart.Style{FontSize: theme.FontSize, FontColor: text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: theme.FontSize, FontColor: text},
			Range: &chart.ContinuousRange{Min: min, Max: max},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, buf)
}

func renderPieChart(buf *bytes.Buffer, spec models.ChartSpec, theme models.ChartTheme, labels []string, values []float64) error {
	background := colorFromHex(theme.Background)
	text := textColor(background)

	slices := make([]chart.Value, len(values))
	for i, v := range values {
		slices[i] = chart.Value{Label: labels[i], Value: v}
	}

	graph := chart.PieChart{
		Title:      spec.DisplayTitle(),
		TitleStyle: chart.Style{FontSize: theme.TitleSize, FontColor: text},
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		Values:     slices,
	}
	return graph.Render(chart.PNG, buf)
}

// renderXYChart draws line and scatter charts. Scatter is a line chart with
// the stroke disabled and dots enabled. When the X column is numeric the
// values plot directly; otherwise rows plot by index with label ticks.
func renderXYChart(buf *bytes.Buffer, spec models.ChartSpec, theme models.ChartTheme, rows []models.Row, labels []string, values []float64) error {
	series := colorFromHex(theme.SeriesColor)
	background := colorFromHex(theme.Background)
	text := textColor(background)

	xValues, ticks := xAxisValues(rows, spec.XColumn, labels)

	style := chart.Style{StrokeColor: series, StrokeWidth: 2.0}
	if spec.Type == models.ChartScatter {
		style = chart.Style{
			StrokeWidth: chart.Disabled,
			DotColor:    series,
			DotWidth:    5.0,
		}
	}

	gridMajor := chart.Style{Hidden: true}
	gridMinor := chart.Style{Hidden: true}
	if theme.Grid {
		gridMajor = chart.Style{StrokeColor: gridColor(background), StrokeWidth: 1.0}
		gridMinor = chart.Style{Hidden: true}
	}

	graph := chart.Chart{
		Title:      spec.DisplayTitle(),
		TitleStyle: chart.Style{FontSize: theme.TitleSize, FontColor: text},
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			Style:          chart.Style{FontSize: theme.FontSize, FontColor: text},
			Ticks:          ticks,
			GridMajorStyle: gridMajor,
			GridMinorStyle: gridMinor,
		},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontSize: theme.FontSize, FontColor: text},
			GridMajorStyle: gridMajor,
			GridMinorStyle: gridMinor,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    spec.YColumn,
				Style:   style,
				XValues: xValues,
				YValues: values,
			},
		},
	}

	// Degenerate ranges (single point, constant series) need an explicit
	// padded range or go-chart refuses to render.
	if allEqual(xValues) {
		xmin, xmax := valueRange(xValues)
		graph.XAxis.Range = &chart.ContinuousRange{Min: xmin, Max: xmax}
	}
	if allEqual(values) {
		ymin, ymax := valueRange(values)
		graph.YAxis.Range = &chart.ContinuousRange{Min: ymin, Max: ymax}
	}

	if theme.Legend {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return graph.Render(chart.PNG, buf)
}

// xAxisValues returns the X coordinates and, for non-numeric X columns, the
// index ticks labeled with the formatted values. Tick count is thinned so
// labels stay readable.
func xAxisValues(rows []models.Row, xColumn string, labels []string) ([]float64, []chart.Tick) {
	xValues := make([]float64, len(rows))
	numeric := true
	for i, row := range rows {
		x, ok := toFloat(row[xColumn])
		if !ok {
			numeric = false
			break
		}
		xValues[i] = x
	}
	if numeric {
		return xValues, nil
	}

	step := 1
	if len(labels) > maxAxisTicks {
		step = int(math.Ceil(float64(len(labels)) / maxAxisTicks))
	}
	ticks := make([]chart.Tick, 0, len(labels)/step+1)
	for i := range labels {
		xValues[i] = float64(i)
		if i%step == 0 {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
		}
	}
	return xValues, ticks
}

// valueRange pads a degenerate range so single-value series still render.
func valueRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return min - 1, max + 1
	}
	return min, max
}

func allEqual(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func barWidth(count int) int {
	if count == 0 {
		return 50
	}
	w := (chartWidth - 100) / count
	if w > 80 {
		return 80
	}
	if w < 10 {
		return 10
	}
	return w
}

func colorFromHex(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// textColor picks dark text on light backgrounds and vice versa.
func textColor(bg drawing.Color) drawing.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 128 {
		return drawing.Color{R: 229, G: 231, B: 235, A: 255}
	}
	return drawing.Color{R: 51, G: 51, B: 51, A: 255}
}

func gridColor(bg drawing.Color) drawing.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 128 {
		return drawing.Color{R: 75, G: 85, B: 99, A: 255}
	}
	return drawing.Color{R: 229, G: 231, B: 235, A: 255}
}
