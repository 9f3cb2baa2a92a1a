package ingest

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// ColumnPattern is one entry of the ordered column-matching table. Patterns
// are tested in slice order; the first one that matches a column label wins.
type ColumnPattern struct {
	Field   string
	Pattern *regexp.Regexp
}

// Canonical field names assigned by NormalizeColumns.
const (
	FieldDate        = "date"
	FieldAccount     = "account"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
	FieldVendor      = "vendor"
	FieldReference   = "reference"
)

// Config carries every knob the parsing pipelines use. It is passed by value
// into each entry point so identical inputs always produce identical outputs;
// there is no package-level mutable state.
type Config struct {
	// Header detection (GL).
	HeaderKeywords    []string
	MinHeaderKeywords int
	MaxHeaderScanRows int

	// Column normalization, in priority order.
	ColumnPatterns []ColumnPattern

	// Cell parsing.
	DateFormats []string

	// Field truncation, matching the gl_transactions column widths.
	MaxAccountLen     int
	MaxDescriptionLen int
	MaxVendorLen      int

	// Trial balance.
	TrialBalanceTolerance decimal.Decimal

	// P&L period grid.
	PLHeaderScanRows int
	PLDateFormats    []string
	SubtotalMarkers  []string
}

// DefaultConfig returns the canonical parser configuration.
func DefaultConfig() Config {
	return Config{
		HeaderKeywords: []string{
			"date", "account", "amount", "description", "desc",
			"debit", "credit", "vendor", "payee", "memo", "reference",
			"transaction", "balance", "category", "type", "name",
		},
		MinHeaderKeywords: 3,
		MaxHeaderScanRows: 50,

		ColumnPatterns: []ColumnPattern{
			{FieldDate, regexp.MustCompile(`(?i)(date|trans.*date|posting.*date|effective)`)},
			{FieldAccount, regexp.MustCompile(`(?i)(account|acct|gl.*account|account.*name|account.*number)`)},
			{FieldDescription, regexp.MustCompile(`(?i)(desc|description|memo|narrative|particulars|details)`)},
			{FieldAmount, regexp.MustCompile(`(?i)(amount|value|total|sum)`)},
			{FieldDebit, regexp.MustCompile(`(?i)(debit|dr)`)},
			{FieldCredit, regexp.MustCompile(`(?i)(credit|cr)`)},
			{FieldVendor, regexp.MustCompile(`(?i)(vendor|payee|supplier|merchant|name)`)},
			{FieldReference, regexp.MustCompile(`(?i)(ref|reference|check.*no|cheque|doc)`)},
		},

		// Non-padded layouts so both "1/5/2024" and "01/05/2024" parse.
		DateFormats: []string{
			"2006-1-2",
			"1/2/2006",
			"2/1/2006",
			"1-2-2006",
			"2-1-2006",
			"2006/1/2",
			"1/2/06",
			"2/1/06",
			"Jan 2, 2006",
			"January 2, 2006",
			"2 Jan 2006",
			"2 January 2006",
		},

		MaxAccountLen:     500,
		MaxDescriptionLen: 1000,
		MaxVendorLen:      255,

		TrialBalanceTolerance: decimal.NewFromFloat(0.01),

		PLHeaderScanRows: 20,
		PLDateFormats: []string{
			"Jan-06",
			"January-06",
			"Jan 2006",
			"January 2006",
			"1/2/2006",
			"2006-1-2",
			"2-Jan-06",
		},
		SubtotalMarkers: []string{"total", "gross profit", "net income", "ebitda"},
	}
}
