// seed-coa loads the standard master chart of accounts that client accounts
// are mapped onto. Run it once after migrations; re-running upserts in place.
//
// Usage: go run ./cmd/seed-coa
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"diligence-backend/internal/db"
)

type seedAccount struct {
	code, name, category, subcategory string
}

var standardCOA = []seedAccount{
	{"4000", "Revenue", "Revenue", ""},
	{"4100", "Other Income", "Revenue", ""},
	{"5000", "Cost of Goods Sold", "COGS", ""},
	{"5100", "Direct Labor", "COGS", ""},
	{"5200", "Freight and Shipping", "COGS", ""},
	{"6000", "Salaries and Wages", "Operating Expenses", "Payroll"},
	{"6050", "Payroll Taxes", "Operating Expenses", "Payroll"},
	{"6100", "Rent Expense", "Operating Expenses", "Occupancy"},
	{"6150", "Utilities", "Operating Expenses", "Occupancy"},
	{"6200", "Insurance", "Operating Expenses", ""},
	{"6250", "Professional Fees", "Operating Expenses", ""},
	{"6300", "Marketing and Advertising", "Operating Expenses", ""},
	{"6350", "Office Supplies", "Operating Expenses", ""},
	{"6400", "Travel and Entertainment", "Operating Expenses", ""},
	{"6450", "Repairs and Maintenance", "Operating Expenses", ""},
	{"6500", "Software and Subscriptions", "Operating Expenses", ""},
	{"6900", "Other Operating Expenses", "Operating Expenses", ""},
	{"7000", "Depreciation and Amortization", "Non-Operating", ""},
	{"7100", "Interest Expense", "Non-Operating", ""},
	{"7200", "Other Expense", "Non-Operating", ""},
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	for _, a := range standardCOA {
		var subcategory *string
		if a.subcategory != "" {
			subcategory = &a.subcategory
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO master_coa (account_code, account_name, category, subcategory)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (account_code) DO UPDATE SET
				account_name = EXCLUDED.account_name,
				category     = EXCLUDED.category,
				subcategory  = EXCLUDED.subcategory,
				is_active    = true`,
			a.code, a.name, a.category, subcategory,
		)
		if err != nil {
			log.Fatalf("Failed to seed account %s: %v", a.code, err)
		}
	}

	log.Printf("Seeded %d master accounts.", len(standardCOA))
}
