package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is an ordered grid of untyped cells with no header interpretation.
// Rows may have different widths. A blank cell is the missing-value marker.
type Sheet [][]string

// DecodeSheet decodes raw spreadsheet bytes into a Sheet. The filename
// extension selects the decoder; nothing else about the file is trusted.
// Excel workbooks are read from their first sheet only.
func DecodeSheet(content []byte, filename string) (Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return decodeExcel(content)
	case ".csv":
		return decodeCSV(content)
	default:
		return nil, &UnsupportedFormatError{Filename: filename}
	}
}

func decodeExcel(content []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func decodeCSV(content []byte) (Sheet, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1 // human-produced exports have ragged rows
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}
