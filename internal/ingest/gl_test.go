package ingest_test

import (
	"errors"
	"strings"
	"testing"

	"diligence-backend/internal/ingest"

	"github.com/shopspring/decimal"
)

const dealID = "7f8a3c2e-0000-0000-0000-000000000001"
const orgID = "7f8a3c2e-0000-0000-0000-000000000002"

func processCSV(t *testing.T, lines ...string) (*ingest.GLResult, error) {
	t.Helper()
	content := []byte(strings.Join(lines, "\n"))
	return ingest.ProcessGLFile(content, dealID, orgID, "ledger.csv", true, ingest.DefaultConfig())
}

func TestProcessGLFile_BalancedExport(t *testing.T) {
	result, err := processCSV(t,
		"Acme Corp Trial Export,,,,",
		"Date,Account,Description,Amount,Vendor",
		"2024-01-15,Cash,Opening deposit,\"1,000.00\",First Bank",
		"01/16/2024,Revenue,Invoice 42,(1000.00),Acme Widgets",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(result.Transactions))
	}

	first := result.Transactions[0]
	if !first.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("first amount = %s, want 1000", first.Amount)
	}
	if first.DealID != dealID || first.OrganizationID != orgID {
		t.Errorf("owner ids not stamped: %+v", first)
	}
	if first.TransactionDate == nil || first.TransactionDate.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("first date = %v, want 2024-01-15", first.TransactionDate)
	}
	if first.RowNumber != 1 {
		t.Errorf("RowNumber = %d, want 1 (1-indexed post-header)", first.RowNumber)
	}
	if first.OriginalData.SourceFile != "ledger.csv" || first.OriginalData.RawAccount != "Cash" {
		t.Errorf("original data = %+v", first.OriginalData)
	}

	second := result.Transactions[1]
	if !second.Amount.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("second amount = %s, want -1000", second.Amount)
	}

	stats := result.Stats
	if stats.HeaderRow != 2 {
		t.Errorf("HeaderRow = %d, want 2 (1-indexed)", stats.HeaderRow)
	}
	if !stats.TotalDebits.Equal(decimal.NewFromInt(1000)) || !stats.TotalCredits.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("debits/credits = %s/%s, want 1000/1000", stats.TotalDebits, stats.TotalCredits)
	}
	if !stats.Imbalance.IsZero() {
		t.Errorf("Imbalance = %s, want 0", stats.Imbalance)
	}
	if stats.ColumnMapping[ingest.FieldAmount] != "Amount" {
		t.Errorf("ColumnMapping = %v", stats.ColumnMapping)
	}
}

func TestProcessGLFile_DebitCreditFallback(t *testing.T) {
	result, err := processCSV(t,
		"Date,Account,Debit,Credit",
		"2024-01-15,Cash,1000.00,0",
		"2024-01-15,Revenue,0,1000.00",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(result.Transactions))
	}
	if !result.Transactions[0].Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("debit row amount = %s, want 1000.00", result.Transactions[0].Amount)
	}
	if !result.Transactions[1].Amount.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("credit row amount = %s, want -1000.00", result.Transactions[1].Amount)
	}
}

func TestProcessGLFile_RowCountConservation(t *testing.T) {
	result, err := processCSV(t,
		"Date,Account,Description,Amount",
		"2024-01-15,Cash,ok,500.00",
		"2024-01-16,Cash,amount missing,",
		"2024-01-17,Cash,not a number,12.34.56",
		"2024-01-18,Cash,ok,(500.00)",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := result.Stats
	if stats.RowsRead != 4 {
		t.Errorf("RowsRead = %d, want 4", stats.RowsRead)
	}
	if stats.RowsProcessed+stats.RowsSkipped != stats.RowsRead {
		t.Errorf("conservation violated: %d + %d != %d", stats.RowsProcessed, stats.RowsSkipped, stats.RowsRead)
	}
	if stats.RowsSkipped != 2 {
		t.Errorf("RowsSkipped = %d, want 2", stats.RowsSkipped)
	}
	if len(stats.ParseErrors) != 2 {
		t.Errorf("ParseErrors = %v, want 2 entries", stats.ParseErrors)
	}
	// Skipped rows must reference their 1-indexed position.
	if !strings.Contains(stats.ParseErrors[0], "row 2") {
		t.Errorf("first diagnostic = %q, want reference to row 2", stats.ParseErrors[0])
	}
}

func TestProcessGLFile_TrialBalanceError(t *testing.T) {
	_, err := processCSV(t,
		"Date,Account,Amount",
		"2024-01-15,Cash,1000.00",
		"2024-01-16,Revenue,-400.00",
	)

	var tbErr *ingest.TrialBalanceError
	if !errors.As(err, &tbErr) {
		t.Fatalf("expected TrialBalanceError, got %v", err)
	}
	if !tbErr.Imbalance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Imbalance = %s, want 600 (exact signed value)", tbErr.Imbalance)
	}
}

func TestProcessGLFile_ValidationOptOut(t *testing.T) {
	content := []byte(strings.Join([]string{
		"Date,Account,Amount",
		"2024-01-15,Cash,1000.00",
		"2024-01-16,Revenue,-400.00",
	}, "\n"))

	result, err := ingest.ProcessGLFile(content, dealID, orgID, "partial.csv", false, ingest.DefaultConfig())
	if err != nil {
		t.Fatalf("validation opt-out must not fail on imbalance: %v", err)
	}
	if !result.Stats.Imbalance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Imbalance = %s, want 600 reported in stats", result.Stats.Imbalance)
	}
}

func TestProcessGLFile_UnsupportedExtension(t *testing.T) {
	_, err := ingest.ProcessGLFile([]byte("whatever"), dealID, orgID, "ledger.pdf", true, ingest.DefaultConfig())

	var fmtErr *ingest.UnsupportedFormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestProcessGLFile_NoHeader(t *testing.T) {
	_, err := processCSV(t,
		"alpha,beta,gamma",
		"1,2,3",
	)

	var hdrErr *ingest.HeaderDetectionError
	if !errors.As(err, &hdrErr) {
		t.Fatalf("expected HeaderDetectionError, got %v", err)
	}
}

func TestProcessGLFile_FieldTruncation(t *testing.T) {
	longAccount := strings.Repeat("a", 600)
	result, err := processCSV(t,
		"Date,Account,Amount",
		"2024-01-15,"+longAccount+",0",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx := result.Transactions[0]
	if len(tx.AccountName) != 500 {
		t.Errorf("AccountName length = %d, want 500", len(tx.AccountName))
	}
	// Traceability payload keeps the untruncated source string.
	if tx.OriginalData.RawAccount != longAccount {
		t.Error("OriginalData.RawAccount must keep the raw value")
	}
}

func TestValidateTrialBalance(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	mk := func(amounts ...string) []ingest.Transaction {
		txs := make([]ingest.Transaction, len(amounts))
		for i, a := range amounts {
			txs[i] = ingest.Transaction{Amount: decimal.RequireFromString(a)}
		}
		return txs
	}

	t.Run("balanced", func(t *testing.T) {
		total, err := ingest.ValidateTrialBalance(mk("1000.00", "-1000.00"), tolerance)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !total.IsZero() {
			t.Errorf("total = %s, want 0", total)
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		if _, err := ingest.ValidateTrialBalance(mk("1000.00", "-999.99"), tolerance); err != nil {
			t.Errorf("0.01 is within tolerance, got %v", err)
		}
	})

	t.Run("negative imbalance keeps sign", func(t *testing.T) {
		total, err := ingest.ValidateTrialBalance(mk("400.00", "-1000.00"), tolerance)
		var tbErr *ingest.TrialBalanceError
		if !errors.As(err, &tbErr) {
			t.Fatalf("expected TrialBalanceError, got %v", err)
		}
		if !tbErr.Imbalance.Equal(decimal.NewFromInt(-600)) || !total.Equal(tbErr.Imbalance) {
			t.Errorf("Imbalance = %s, want -600", tbErr.Imbalance)
		}
	})
}
