package render

import (
	"fmt"
	"time"

	"github.com/TFMV/parley/pkg/models"
)

// timestampLayout yields names that sort lexicographically by creation time.
const timestampLayout = "20060102_150405"

// nowFunc is replaced in tests for deterministic file names.
var nowFunc = time.Now

// ExportFileName returns the canonical name for an export file,
// export_<timestamp>.<ext>.
func ExportFileName(format models.ExportFormat) string {
	return fmt.Sprintf("export_%s.%s", nowFunc().Format(timestampLayout), format.Extension())
}

// ChartFileName returns the canonical name for a chart image,
// chart_<timestamp>.png.
func ChartFileName() string {
	return fmt.Sprintf("chart_%s.png", nowFunc().Format(timestampLayout))
}
