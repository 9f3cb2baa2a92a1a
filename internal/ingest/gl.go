package ingest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OriginalData is the traceability payload kept on every transaction.
type OriginalData struct {
	SourceFile string `json:"source_file"`
	RawAccount string `json:"raw_account"`
}

// Transaction is one normalized GL row. Ownership passes to the caller; it is
// never mutated after creation.
type Transaction struct {
	DealID          string
	OrganizationID  string
	TransactionDate *time.Time
	AccountName     string
	Description     string
	VendorName      string
	Amount          decimal.Decimal
	OriginalData    OriginalData
	RowNumber       int // 1-indexed position within the post-header data
}

// Stats aggregates counters for one ingestion call.
// RowsProcessed + RowsSkipped == RowsRead always holds.
type Stats struct {
	RowsRead      int               `json:"rows_read"`
	RowsProcessed int               `json:"rows_processed"`
	RowsSkipped   int               `json:"rows_skipped"`
	ParseErrors   []string          `json:"parse_errors,omitempty"`
	TotalDebits   decimal.Decimal   `json:"total_debits"`
	TotalCredits  decimal.Decimal   `json:"total_credits"`
	Imbalance     decimal.Decimal   `json:"imbalance"`
	HeaderRow     int               `json:"header_row"`               // 1-indexed for display
	ColumnMapping map[string]string `json:"column_mapping,omitempty"` // canonical field -> original column label
}

// GLResult is the output of a successful GL ingestion.
type GLResult struct {
	Transactions []Transaction
	Stats        Stats
}

// ProcessGLFile is the GL ingestion entry point: bytes in, validated
// transactions and stats out. dealID and organizationID are opaque foreign
// keys stamped onto every transaction, never interpreted. When validate is
// false a trial-balance imbalance is reported in Stats but not treated as
// fatal (partial extracts legitimately do not balance).
func ProcessGLFile(content []byte, dealID, organizationID, filename string, validate bool, cfg Config) (*GLResult, error) {
	sheet, err := DecodeSheet(content, filename)
	if err != nil {
		return nil, err
	}

	headerIdx, err := DetectHeaderRow(sheet, cfg)
	if err != nil {
		return nil, err
	}

	mapping := NormalizeColumns(sheet[headerIdx], cfg)
	result := assembleRows(sheet[headerIdx+1:], mapping, dealID, organizationID, filename, cfg)
	result.Stats.HeaderRow = headerIdx + 1
	result.Stats.ColumnMapping = mapping.Labels()

	imbalance, balanceErr := ValidateTrialBalance(result.Transactions, cfg.TrialBalanceTolerance)
	result.Stats.Imbalance = imbalance
	if validate && balanceErr != nil {
		return nil, balanceErr
	}

	return result, nil
}

// assembleRows walks every data row in original order and emits a Transaction
// for each row with a determinable amount. The amount is the only mandatory
// field; rows without one are skipped and recorded, never fatal.
func assembleRows(data Sheet, mapping ColumnMapping, dealID, organizationID, filename string, cfg Config) *GLResult {
	stats := Stats{
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}

	cell := func(row []string, field string) (string, bool) {
		idx, ok := mapping.Column(field)
		if !ok || idx >= len(row) {
			return "", false
		}
		return row[idx], true
	}

	var transactions []Transaction

	for i, row := range data {
		stats.RowsRead++
		rowNumber := i + 1

		var txDate *time.Time
		if raw, ok := cell(row, FieldDate); ok {
			if t, parsed := ParseDate(raw, cfg.DateFormats); parsed {
				txDate = &t
			}
		}

		amount, ok := rowAmount(row, mapping, cell)
		if !ok {
			stats.RowsSkipped++
			stats.ParseErrors = append(stats.ParseErrors, fmt.Sprintf("row %d: could not parse amount", rowNumber))
			continue
		}

		if amount.IsPositive() {
			stats.TotalDebits = stats.TotalDebits.Add(amount)
		} else {
			stats.TotalCredits = stats.TotalCredits.Add(amount.Abs())
		}

		account, _ := cell(row, FieldAccount)
		description, _ := cell(row, FieldDescription)
		vendor, _ := cell(row, FieldVendor)

		transactions = append(transactions, Transaction{
			DealID:          dealID,
			OrganizationID:  organizationID,
			TransactionDate: txDate,
			AccountName:     truncateRunes(account, cfg.MaxAccountLen),
			Description:     truncateRunes(description, cfg.MaxDescriptionLen),
			VendorName:      truncateRunes(vendor, cfg.MaxVendorLen),
			Amount:          amount,
			OriginalData:    OriginalData{SourceFile: filename, RawAccount: account},
			RowNumber:       rowNumber,
		})
		stats.RowsProcessed++
	}

	return &GLResult{Transactions: transactions, Stats: stats}
}

// rowAmount resolves a row's amount: directly from the amount column when one
// was mapped, otherwise debit − credit with each side defaulting to zero.
// With neither source available no amount can be determined.
func rowAmount(row []string, mapping ColumnMapping, cell func([]string, string) (string, bool)) (decimal.Decimal, bool) {
	if mapping.Has(FieldAmount) {
		raw, _ := cell(row, FieldAmount)
		return ParseAmount(raw)
	}

	if mapping.Has(FieldDebit) || mapping.Has(FieldCredit) {
		debit := decimal.Zero
		if raw, ok := cell(row, FieldDebit); ok {
			if d, parsed := ParseAmount(raw); parsed {
				debit = d
			}
		}
		credit := decimal.Zero
		if raw, ok := cell(row, FieldCredit); ok {
			if c, parsed := ParseAmount(raw); parsed {
				credit = c
			}
		}
		return debit.Sub(credit), true
	}

	return decimal.Decimal{}, false
}

// ValidateTrialBalance sums every transaction amount and returns the signed
// total. A total outside tolerance returns a TrialBalanceError carrying the
// exact imbalance.
func ValidateTrialBalance(transactions []Transaction, tolerance decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(t.Amount)
	}
	if total.Abs().GreaterThan(tolerance) {
		return total, &TrialBalanceError{Imbalance: total}
	}
	return total, nil
}
