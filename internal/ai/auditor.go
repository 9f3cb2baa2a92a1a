package ai

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"diligence-backend/internal/core"
)

// Flag reasons surfaced in diligence reports.
const (
	ReasonPersonalExpense  = "possible_personal_expense"
	ReasonCashMovement     = "cash_movement"
	ReasonLargeTransaction = "large_transaction"
)

// FlagRule pairs a reason with the pattern that triggers it. Rules run in
// order and a transaction collects every flag it matches.
type FlagRule struct {
	Reason  string
	Pattern *regexp.Regexp
}

// DefaultFlagRules covers the usual quality-of-earnings red flags found in
// small-company ledgers.
var DefaultFlagRules = []FlagRule{
	{ReasonPersonalExpense, regexp.MustCompile(`(?i)\b(venmo|zelle|paypal|cash\s?app)\b`)},
	{ReasonPersonalExpense, regexp.MustCompile(`(?i)\b(personal|reimbursement|owner'?s?\s+draw)\b`)},
	{ReasonCashMovement, regexp.MustCompile(`(?i)\b(atm|cash\s+withdrawal|withdrawal|wire\s+transfer|transfer)\b`)},
}

// DefaultLargeAmountThreshold flags single transactions at or above this
// absolute value for capex review.
var DefaultLargeAmountThreshold = decimal.NewFromInt(10000)

type Auditor struct {
	rules     []FlagRule
	threshold decimal.Decimal
}

func NewAuditor() *Auditor {
	return &Auditor{rules: DefaultFlagRules, threshold: DefaultLargeAmountThreshold}
}

// Audit scans persisted GL transactions and returns deterministic anomaly
// flags. The same input always yields the same flags.
func (a *Auditor) Audit(txs []core.GLTransactionRow) []core.AuditFlag {
	var flags []core.AuditFlag
	for _, tx := range txs {
		haystack := tx.Description + " " + tx.VendorName + " " + tx.AccountName

		for _, rule := range a.rules {
			match := rule.Pattern.FindString(haystack)
			if match == "" {
				continue
			}
			flags = append(flags, core.AuditFlag{
				DealID:        tx.DealID,
				TransactionID: tx.ID,
				Reason:        rule.Reason,
				Matched:       match,
				Amount:        tx.Amount,
				Description:   fmt.Sprintf("row %d: %q matched %s rule", tx.RowNumber, match, rule.Reason),
			})
		}

		if tx.Amount.Abs().GreaterThanOrEqual(a.threshold) {
			flags = append(flags, core.AuditFlag{
				DealID:        tx.DealID,
				TransactionID: tx.ID,
				Reason:        ReasonLargeTransaction,
				Amount:        tx.Amount,
				Description:   fmt.Sprintf("row %d: amount %s exceeds review threshold", tx.RowNumber, tx.Amount.StringFixed(2)),
			})
		}
	}
	return flags
}
