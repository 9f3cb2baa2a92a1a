package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// PLLineItem is one extracted P&L line. Values is sparse: periods whose cells
// were absent or unparseable are omitted, preserving the difference between
// "explicitly zero" and "no data for this period".
type PLLineItem struct {
	Name       string                     `json:"name"`
	Indent     int                        `json:"indent"`
	IsSubtotal bool                       `json:"is_subtotal"`
	Values     map[string]decimal.Decimal `json:"values"` // period key -> amount
}

// PLResult is the output of a successful P&L parse. Periods maps normalized
// period keys (first-of-month YYYY-MM-DD) to source column indexes.
type PLResult struct {
	Periods           map[string]int `json:"periods"`
	HeaderRow         int            `json:"header_row"` // 1-indexed for display
	DescriptionColumn int            `json:"description_column"`
	LineItems         []PLLineItem   `json:"line_items"`
}

// ParsePLFile is the P&L ingestion entry point. Unlike GL header detection,
// the P&L header is a grid of date cells spread across one row; a single
// reporting period is an acceptable header.
func ParsePLFile(content []byte, filename string, cfg Config) (*PLResult, error) {
	sheet, err := DecodeSheet(content, filename)
	if err != nil {
		// An unrecognized extension keeps its own error kind; a corrupt
		// file of a supported format is a decode-stage parse failure.
		var unsupported *UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return nil, err
		}
		return nil, &PLParseError{Stage: PLStageDecode, Reason: err.Error()}
	}

	headerIdx, periods, err := detectPeriodHeader(sheet, cfg)
	if err != nil {
		return nil, err
	}

	descCol, err := identifyDescriptionColumn(sheet, periods)
	if err != nil {
		return nil, err
	}

	return &PLResult{
		Periods:           periods,
		HeaderRow:         headerIdx + 1,
		DescriptionColumn: descCol,
		LineItems:         extractLineItems(sheet, headerIdx, descCol, periods, cfg),
	}, nil
}

// detectPeriodHeader scans the first cfg.PLHeaderScanRows rows and keeps the
// row yielding the most distinct parsed period keys. A duplicate period key in
// one row lets the later column overwrite the earlier mapping.
func detectPeriodHeader(sheet Sheet, cfg Config) (int, map[string]int, error) {
	maxScan := cfg.PLHeaderScanRows
	if len(sheet) < maxScan {
		maxScan = len(sheet)
	}

	bestRow := -1
	var bestPeriods map[string]int

	for rowIdx := 0; rowIdx < maxScan; rowIdx++ {
		periods := make(map[string]int)

		for colIdx, raw := range sheet[rowIdx] {
			s := strings.TrimSpace(raw)
			if s == "" {
				continue
			}
			if t, ok := parsePeriodDate(s, cfg.PLDateFormats); ok {
				key := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
				periods[key] = colIdx
			}
		}

		if len(periods) > len(bestPeriods) {
			bestRow = rowIdx
			bestPeriods = periods
		}
	}

	if len(bestPeriods) == 0 {
		return 0, nil, &PLParseError{
			Stage:  PLStagePeriodHeader,
			Reason: fmt.Sprintf("no date-like header cells (e.g. Jan-23, 2023-01-31) in the first %d rows", maxScan),
		}
	}
	return bestRow, bestPeriods, nil
}

// identifyDescriptionColumn picks the lowest-indexed column not claimed by a
// period. Position-based on purpose: a metadata column placed before the
// description column will win instead.
func identifyDescriptionColumn(sheet Sheet, periods map[string]int) (int, error) {
	width := 0
	for _, row := range sheet {
		if len(row) > width {
			width = len(row)
		}
	}

	claimed := make(map[int]bool, len(periods))
	for _, colIdx := range periods {
		claimed[colIdx] = true
	}

	for colIdx := 0; colIdx < width; colIdx++ {
		if !claimed[colIdx] {
			return colIdx, nil
		}
	}
	return 0, &PLParseError{
		Stage:  PLStageDescriptionColumn,
		Reason: "every column identifies as a period column",
	}
}

// extractLineItems walks every row below the period header. Blank description
// cells are separator rows and are skipped. A line is kept only when it has at
// least one non-zero period value or is a subtotal — a zero subtotal is still
// meaningful.
func extractLineItems(sheet Sheet, headerIdx, descCol int, periods map[string]int, cfg Config) []PLLineItem {
	var items []PLLineItem

	for rowIdx := headerIdx + 1; rowIdx < len(sheet); rowIdx++ {
		row := sheet[rowIdx]

		var rawName string
		if descCol < len(row) {
			rawName = row[descCol]
		}
		name := strings.TrimSpace(rawName)
		if name == "" {
			continue
		}

		subtotal := isSubtotal(name, cfg.SubtotalMarkers)
		values := make(map[string]decimal.Decimal, len(periods))
		hasData := false

		for key, colIdx := range periods {
			if colIdx >= len(row) {
				continue
			}
			amount, ok := ParseAmount(row[colIdx])
			if !ok {
				continue
			}
			values[key] = amount
			if !amount.IsZero() {
				hasData = true
			}
		}

		if hasData || subtotal {
			items = append(items, PLLineItem{
				Name:       name,
				Indent:     leadingWhitespace(rawName),
				IsSubtotal: subtotal,
				Values:     values,
			})
		}
	}
	return items
}

// parsePeriodDate tries only the explicit P&L format set — no lenient
// fallback, to keep plain numbers from reading as dates.
func parsePeriodDate(s string, formats []string) (time.Time, bool) {
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// leadingWhitespace counts literal leading whitespace characters as a proxy
// for outline indentation. Cell-style indentation is not read; most
// spreadsheet tools trim leading spaces on save, so this is a lossy heuristic
// kept as-is.
func leadingWhitespace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			break
		}
		count++
	}
	return count
}

func isSubtotal(name string, markers []string) bool {
	lower := strings.ToLower(name)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
