package types

// FileType represents supported upload file types
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
)

// ContentType returns the MIME type used when uploading a file of this type
func (t FileType) ContentType() string {
	switch t {
	case FileTypeXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FileTypeCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// FileHandle is an uploaded file as held by the wizard. The content is never
// modified after the handle is created.
type FileHandle struct {
	Name    string   `json:"name"`
	Type    FileType `json:"type"`
	Size    int64    `json:"size"`
	Content []byte   `json:"-"`
}

// RawRow is one source record as returned by the remote parser. Its keys are
// source column names; values are opaque to the client.
type RawRow map[string]any

// RowIssue is a per-row problem reported by the remote parser
type RowIssue struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ParseResult is the normalized result of a remote parse call
type ParseResult struct {
	Columns []string   `json:"columns"`
	Rows    []RawRow   `json:"rows"`
	Errors  []RowIssue `json:"errors"`
}
