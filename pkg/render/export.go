package render

import (
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

// exportRenderer renders rows to downloadable files, one encoder per format.
type exportRenderer struct{}

// NewExportRenderer creates the default export renderer.
func NewExportRenderer() ExportRenderer {
	return &exportRenderer{}
}

// RenderExport encodes rows in the requested format. The format has already
// been normalized at intent-decode time, so an unknown value here is a
// dispatch failure, not a fallback.
func (r *exportRenderer) RenderExport(rows []models.Row, columns []string, format models.ExportFormat) (*File, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case models.FormatCSV:
		data, err = renderCSV(rows, columns)
	case models.FormatExcel:
		data, err = renderExcel(rows, columns)
	case models.FormatPDF:
		data, err = renderPDF(rows, columns)
	case models.FormatParquet:
		data, err = renderParquet(rows, columns)
	case models.FormatArrow:
		data, err = renderArrowIPC(rows, columns)
	default:
		return nil, errors.New(errors.CodeUnsupportedFormat,
			"Unsupported export format: "+string(format))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRenderFailed,
			"failed to render "+string(format)+" export")
	}

	return &File{
		Name:     ExportFileName(format),
		Bytes:    data,
		MimeType: format.MimeType(),
	}, nil
}
