package export

import "fmt"

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat resolves a renderer by short format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "csv", "":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func requireHeaders(kind string, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	return nil
}
