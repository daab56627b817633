package models

// ExportFormat identifies a downloadable file format for query results.
type ExportFormat string

const (
	FormatCSV     ExportFormat = "csv"
	FormatExcel   ExportFormat = "excel"
	FormatPDF     ExportFormat = "pdf"
	FormatParquet ExportFormat = "parquet"
	FormatArrow   ExportFormat = "arrow"
)

// Extension returns the file extension for the format, without a dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatArrow:
		return "arrow"
	default:
		return string(f)
	}
}

// MimeType returns the MIME type for the format. PNG charts carry
// MimeTypePNG.
func (f ExportFormat) MimeType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	case FormatArrow:
		return "application/vnd.apache.arrow.file"
	default:
		return "application/octet-stream"
	}
}

// MimeTypePNG is the MIME type of rendered chart images.
const MimeTypePNG = "image/png"

// PayloadKind identifies what an OutputPayload carries.
type PayloadKind string

const (
	// PayloadText is a plain assistant message.
	PayloadText PayloadKind = "text"
	// PayloadTable is a summarized result set with its rows.
	PayloadTable PayloadKind = "table"
	// PayloadFile is an export file.
	PayloadFile PayloadKind = "file"
	// PayloadChart is a rendered chart image.
	PayloadChart PayloadKind = "chart"
	// PayloadApproval asks the human to approve or deny pending SQL.
	PayloadApproval PayloadKind = "approval"
)

// OutputPayload is the final user-facing product of handling one user
// action. Exactly one kind per payload; the populated fields depend on it.
type OutputPayload struct {
	Kind      PayloadKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Rows      []Row       `json:"rows,omitempty"`
	Columns   []string    `json:"columns,omitempty"`
	SQL       string      `json:"sql,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	FileBytes []byte      `json:"file_bytes,omitempty"`
	MimeType  string      `json:"mime_type,omitempty"`
	ObjectURL string      `json:"object_url,omitempty"`
}
