package ingest_test

import (
	"testing"

	"diligence-backend/internal/ingest"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestProcessGLFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Acme Corp Ledger Export"},
		{"Date", "Account", "Description", "Amount"},
		{"2024-01-15", "Cash", "Opening deposit", "1000.00"},
		{"2024-01-16", "Revenue", "Invoice 42", "(1000.00)"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := ingest.ProcessGLFile(buf.Bytes(), dealID, orgID, "ledger.xlsx", true, ingest.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(result.Transactions))
	}
	if !result.Transactions[1].Amount.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("amount = %s, want -1000", result.Transactions[1].Amount)
	}
	if result.Stats.HeaderRow != 2 {
		t.Errorf("HeaderRow = %d, want 2", result.Stats.HeaderRow)
	}
}

func TestDecodeSheet_RaggedCSV(t *testing.T) {
	content := []byte("a,b,c\nonly one\nx,y\n")

	sheet, err := ingest.DecodeSheet(content, "ragged.csv")
	if err != nil {
		t.Fatalf("ragged rows must decode: %v", err)
	}
	if len(sheet) != 3 {
		t.Fatalf("got %d rows, want 3", len(sheet))
	}
	if len(sheet[1]) != 1 || len(sheet[2]) != 2 {
		t.Errorf("row widths = %d/%d, want 1/2", len(sheet[1]), len(sheet[2]))
	}
}

func TestDecodeSheet_UnknownExtension(t *testing.T) {
	if _, err := ingest.DecodeSheet([]byte("{}"), "data.json"); err == nil {
		t.Fatal("expected unsupported-format error")
	}
}
