package language

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CatalogEntry is one row of a speech-recognition language catalog.
type CatalogEntry struct {
	Tag     string
	Name    string
	Enabled bool
}

// LoadCatalog reads an .xlsx language catalog. Columns are detected by header:
// a tag/code/locale column (required), an optional name/language column and an
// optional enabled/active column ("no", "false", "0" and "n" disable a row).
func LoadCatalog(path string) ([]CatalogEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	tagIdx := -1
	nameIdx := -1
	enabledIdx := -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "tag") || strings.Contains(l, "code") || strings.Contains(l, "locale"):
			if tagIdx == -1 {
				tagIdx = i
			}
		case strings.Contains(l, "enabled") || strings.Contains(l, "active"):
			enabledIdx = i
		case strings.Contains(l, "name") || strings.Contains(l, "language"):
			if nameIdx == -1 {
				nameIdx = i
			}
		}
	}
	if tagIdx == -1 {
		return nil, fmt.Errorf("no language tag column in header %v", header)
	}

	var out []CatalogEntry
	for i, r := range rows {
		if i == 0 {
			continue
		}
		entry := CatalogEntry{Enabled: true}
		if tagIdx < len(r) {
			entry.Tag = strings.TrimSpace(r[tagIdx])
		}
		if entry.Tag == "" {
			// skip blank rows quietly
			continue
		}
		if nameIdx >= 0 && nameIdx < len(r) {
			entry.Name = strings.TrimSpace(r[nameIdx])
		}
		if enabledIdx >= 0 && enabledIdx < len(r) {
			switch strings.ToLower(strings.TrimSpace(r[enabledIdx])) {
			case "no", "n", "false", "0":
				entry.Enabled = false
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// EnabledTags returns the tags of enabled catalog rows.
func EnabledTags(entries []CatalogEntry) []string {
	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Enabled {
			tags = append(tags, e.Tag)
		}
	}
	return tags
}
