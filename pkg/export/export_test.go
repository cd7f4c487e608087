package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "staff 2024",
		Headers: []string{"id", "office", "male"},
		Rows: []map[string]string{
			{"id": "r-1", "office": "Registrar", "male": "4"},
			{"id": "r-2", "office": "Library"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,office,male", lines[0])
	assert.Equal(t, "r-2,Library,", lines[2])
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue("staff 2024", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Registrar", value)
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, format := range []string{"csv", "pdf", "xlsx"} {
		renderer, err := ForFormat(format)
		require.NoError(t, err)
		_, err = renderer.Render(Dataset{})
		assert.Error(t, err, format)
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}
