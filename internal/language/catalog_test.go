package language

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCatalog(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, [][]any{
		{"Language", "Locale Code", "Active"},
		{"Japanese", "ja-JP", "yes"},
		{"Korean", "ko-KR", "no"},
		{"", "", ""},
		{"Italian", "it-IT"},
	})

	entries, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, CatalogEntry{Tag: "ja-JP", Name: "Japanese", Enabled: true}, entries[0])
	assert.False(t, entries[1].Enabled)
	assert.Equal(t, []string{"ja-JP", "it-IT"}, EnabledTags(entries))
}

func TestLoadCatalog_MissingTagColumn(t *testing.T) {
	path := writeCatalog(t, [][]any{
		{"Language", "Notes"},
		{"Japanese", "n/a"},
	})

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
