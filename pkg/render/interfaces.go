// Package render turns query result rows into downloadable files and chart
// images. Renderers never mutate the rows they are given.
package render

import (
	"github.com/TFMV/parley/pkg/models"
)

// File is one rendered artifact ready to hand to the user.
type File struct {
	Name     string
	Bytes    []byte
	MimeType string
}

// ExportRenderer renders rows to a downloadable file in a given format.
type ExportRenderer interface {
	RenderExport(rows []models.Row, columns []string, format models.ExportFormat) (*File, error)
}

// ChartRenderer rasterizes rows into a chart image.
type ChartRenderer interface {
	RenderChart(rows []models.Row, spec models.ChartSpec) (*File, error)
}
