package models

import "fmt"

// ChartType identifies the chart style to render.
type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
)

// Theme names understood by the chart renderer.
const (
	ThemeDefault      = "default"
	ThemeDark         = "dark"
	ThemeProfessional = "professional"
	ThemeColorful     = "colorful"
)

// ChartSpec describes a requested chart over a result set.
type ChartSpec struct {
	Type    ChartType `json:"chart_type"`
	XColumn string    `json:"x_column"`
	YColumn string    `json:"y_column"`
	Title   string    `json:"title,omitempty"`
	Theme   string    `json:"theme,omitempty"`
}

// DisplayTitle returns the explicit title, or "<y> by <x>" when unset.
func (s ChartSpec) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("%s by %s", s.YColumn, s.XColumn)
}

// ChartTheme holds the fixed styling options for a named theme.
type ChartTheme struct {
	SeriesColor string
	Background  string
	Grid        bool
	Legend      bool
	FontSize    float64
	TitleSize   float64
}

var chartThemes = map[string]ChartTheme{
	ThemeDefault:      {SeriesColor: "#4f46e5", Background: "#ffffff", Grid: true, Legend: false, FontSize: 10, TitleSize: 14},
	ThemeDark:         {SeriesColor: "#60a5fa", Background: "#1f2937", Grid: true, Legend: false, FontSize: 10, TitleSize: 14},
	ThemeProfessional: {SeriesColor: "#1e40af", Background: "#f9fafb", Grid: true, Legend: true, FontSize: 9, TitleSize: 12},
	ThemeColorful:     {SeriesColor: "#ec4899", Background: "#ffffff", Grid: false, Legend: true, FontSize: 10, TitleSize: 14},
}

// ThemeByName returns the theme options for name, falling back to the
// default theme for unknown names.
func ThemeByName(name string) ChartTheme {
	if theme, ok := chartThemes[name]; ok {
		return theme
	}
	return chartThemes[ThemeDefault]
}

// ChartPreferences remembers how the most recent chart was rendered so a
// follow-up chart request with missing fields can reuse those choices.
type ChartPreferences struct {
	Type    ChartType `json:"chart_type"`
	XColumn string    `json:"x_column"`
	YColumn string    `json:"y_column"`
	Title   string    `json:"title,omitempty"`
	Theme   string    `json:"theme,omitempty"`
}

// Merge fills empty column and title fields of spec from the preferences
// and returns the result. Type and theme always come from the new spec,
// since decoding already defaulted them.
func (p *ChartPreferences) Merge(spec ChartSpec) ChartSpec {
	if p == nil {
		return spec
	}
	if spec.XColumn == "" {
		spec.XColumn = p.XColumn
	}
	if spec.YColumn == "" {
		spec.YColumn = p.YColumn
	}
	if spec.Title == "" {
		spec.Title = p.Title
	}
	return spec
}
