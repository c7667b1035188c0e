package export

// Dataset defines tabular export content. Rows are keyed by header name so
// exporters can lay out columns independently of map iteration order.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Exporter renders a dataset into a downloadable artifact.
type Exporter interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat resolves an exporter for the requested format, defaulting to CSV.
func ForFormat(format string) Exporter {
	if format == "pdf" {
		return NewPDFExporter()
	}
	return NewCSVExporter()
}
