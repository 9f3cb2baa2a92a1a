package ingest

import "strings"

// DetectHeaderRow heuristically locates the header row of a GL sheet. It scans
// at most cfg.MaxHeaderScanRows rows, joins each row's cells into one
// lowercase string, and counts how many vocabulary keywords appear as
// substrings. The highest-scoring row wins; ties keep the earliest row.
func DetectHeaderRow(sheet Sheet, cfg Config) (int, error) {
	maxRows := cfg.MaxHeaderScanRows
	if len(sheet) < maxRows {
		maxRows = len(sheet)
	}

	bestRow := -1
	bestScore := 0

	for rowIdx := 0; rowIdx < maxRows; rowIdx++ {
		rowText := strings.ToLower(strings.Join(sheet[rowIdx], " "))

		score := 0
		for _, keyword := range cfg.HeaderKeywords {
			if strings.Contains(rowText, keyword) {
				score++
			}
		}

		if score > bestScore {
			bestScore = score
			bestRow = rowIdx
		}
	}

	if bestScore < cfg.MinHeaderKeywords {
		return 0, &HeaderDetectionError{
			BestScore: bestScore,
			Required:  cfg.MinHeaderKeywords,
			Keywords:  cfg.HeaderKeywords,
		}
	}
	return bestRow, nil
}

// ColumnMapping maps canonical field names onto source columns. Each canonical
// field maps to at most one column; a column is claimed by the first canonical
// field whose pattern matches it.
type ColumnMapping struct {
	columns map[string]int
	labels  map[string]string
}

// Column returns the source column index for a canonical field.
func (m ColumnMapping) Column(field string) (int, bool) {
	idx, ok := m.columns[field]
	return idx, ok
}

// Has reports whether the canonical field was matched to any column.
func (m ColumnMapping) Has(field string) bool {
	_, ok := m.columns[field]
	return ok
}

// Labels returns canonical field -> original column label, for diagnostics.
func (m ColumnMapping) Labels() map[string]string {
	out := make(map[string]string, len(m.labels))
	for k, v := range m.labels {
		out[k] = v
	}
	return out
}

// NormalizeColumns assigns canonical field names to header columns. For each
// column label the patterns are tested in priority order and the first match
// ends the search for that column — even when the matched field is already
// claimed, in which case the column simply stays unmapped. Unmatched columns
// are left alone; later stages ignore them.
func NormalizeColumns(header []string, cfg Config) ColumnMapping {
	m := ColumnMapping{
		columns: make(map[string]int),
		labels:  make(map[string]string),
	}

	for colIdx, label := range header {
		trimmed := strings.TrimSpace(label)
		lower := strings.ToLower(trimmed)

		for _, cp := range cfg.ColumnPatterns {
			if cp.Pattern.MatchString(lower) {
				if _, claimed := m.columns[cp.Field]; !claimed {
					m.columns[cp.Field] = colIdx
					m.labels[cp.Field] = trimmed
				}
				break
			}
		}
	}
	return m
}
