package ingest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnsupportedFormatError is returned when the filename extension is not
// recognized by either pipeline. No partial processing is attempted.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Filename)
}

// HeaderDetectionError is returned when no row in the scan window scores at
// least the minimum keyword count. It carries the best score seen and the full
// vocabulary so callers can show the user what a usable header looks like.
type HeaderDetectionError struct {
	BestScore int
	Required  int
	Keywords  []string
}

func (e *HeaderDetectionError) Error() string {
	return fmt.Sprintf(
		"could not detect header row: best match had only %d keywords, expected at least %d of: %s",
		e.BestScore, e.Required, strings.Join(e.Keywords, ", "))
}

// TrialBalanceError is returned when GL transactions do not net to zero within
// tolerance. Imbalance is the exact signed sum of all emitted amounts.
type TrialBalanceError struct {
	Imbalance decimal.Decimal
}

func (e *TrialBalanceError) Error() string {
	return fmt.Sprintf("trial balance failed: net imbalance of %s, transactions must sum to zero", e.Imbalance.StringFixed(2))
}

// Stages reported by PLParseError.
const (
	PLStageDecode            = "decode"
	PLStagePeriodHeader      = "period-header"
	PLStageDescriptionColumn = "description-column"
)

// PLParseError identifies which stage of the period-grid pipeline failed.
type PLParseError struct {
	Stage  string
	Reason string
}

func (e *PLParseError) Error() string {
	return fmt.Sprintf("p&l parsing failed at %s: %s", e.Stage, e.Reason)
}
