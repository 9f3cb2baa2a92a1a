package ai_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"diligence-backend/internal/ai"
	"diligence-backend/internal/core"
)

func tx(id, account, desc, vendor string, amount int64) core.GLTransactionRow {
	return core.GLTransactionRow{
		ID:          id,
		DealID:      "deal-1",
		AccountName: account,
		Description: desc,
		VendorName:  vendor,
		Amount:      decimal.NewFromInt(amount),
		RowNumber:   1,
	}
}

func TestAuditor_FlagRules(t *testing.T) {
	auditor := ai.NewAuditor()

	tests := []struct {
		name        string
		tx          core.GLTransactionRow
		wantReasons []string
	}{
		{
			name:        "venmo payment",
			tx:          tx("t1", "Office Expense", "Venmo payment to J. Smith", "", -250),
			wantReasons: []string{ai.ReasonPersonalExpense},
		},
		{
			name:        "vendor field matched too",
			tx:          tx("t2", "Misc", "monthly charge", "PayPal", -99),
			wantReasons: []string{ai.ReasonPersonalExpense},
		},
		{
			name:        "atm withdrawal collects cash flag",
			tx:          tx("t3", "Cash", "ATM withdrawal branch 4", "", -400),
			wantReasons: []string{ai.ReasonCashMovement},
		},
		{
			name:        "large transaction",
			tx:          tx("t4", "Equipment", "CNC machine purchase", "Haas", -45000),
			wantReasons: []string{ai.ReasonLargeTransaction},
		},
		{
			name:        "large negative also flagged",
			tx:          tx("t5", "Revenue", "annual contract", "", 45000),
			wantReasons: []string{ai.ReasonLargeTransaction},
		},
		{
			name:        "clean transaction",
			tx:          tx("t6", "Rent", "January rent", "Main St Properties", -2000),
			wantReasons: nil,
		},
		{
			name: "multiple rules stack",
			tx:   tx("t7", "Owner", "owner's draw via wire transfer", "", -15000),
			wantReasons: []string{
				ai.ReasonPersonalExpense,
				ai.ReasonCashMovement,
				ai.ReasonLargeTransaction,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := auditor.Audit([]core.GLTransactionRow{tt.tx})
			if len(flags) != len(tt.wantReasons) {
				t.Fatalf("got %d flags %+v, want %d", len(flags), flags, len(tt.wantReasons))
			}
			for i, want := range tt.wantReasons {
				if flags[i].Reason != want {
					t.Errorf("flag %d reason = %s, want %s", i, flags[i].Reason, want)
				}
				if flags[i].TransactionID != tt.tx.ID {
					t.Errorf("flag %d not linked to transaction", i)
				}
			}
		})
	}
}

func TestAuditor_Deterministic(t *testing.T) {
	auditor := ai.NewAuditor()
	txs := []core.GLTransactionRow{
		tx("t1", "Misc", "Zelle to landlord", "", -1200),
		tx("t2", "Equipment", "forklift", "", -30000),
	}

	first := auditor.Audit(txs)
	for i := 0; i < 5; i++ {
		again := auditor.Audit(txs)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d flags, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Reason != first[j].Reason ||
				again[j].TransactionID != first[j].TransactionID ||
				again[j].Description != first[j].Description ||
				!again[j].Amount.Equal(first[j].Amount) {
				t.Fatalf("run %d flag %d differs: %+v != %+v", i, j, again[j], first[j])
			}
		}
	}
}
