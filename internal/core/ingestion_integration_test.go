package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"diligence-backend/internal/core"
	"diligence-backend/internal/ingest"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE audit_flags, account_mappings, pl_line_items, monthly_pl_headers,
		               client_accounts, gl_transactions, uploaded_files, deals,
		               master_coa, organizations CASCADE;

		INSERT INTO master_coa (account_code, account_name, category) VALUES
		('4000', 'Revenue', 'Revenue'),
		('6100', 'Rent Expense', 'Operating Expenses');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func seedDeal(t *testing.T, pool *pgxpool.Pool) *core.Deal {
	t.Helper()
	ctx := context.Background()

	deals := core.NewDealService(pool)
	org, err := deals.CreateOrganization(ctx, "Test Advisory LLP")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	deal, err := deals.CreateDeal(ctx, core.DealInput{
		OrganizationID: org.ID,
		ClientName:     "Target Co",
		Industry:       "Manufacturing",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	return deal
}

func TestFileLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	deal := seedDeal(t, pool)
	files := core.NewFileService(pool)

	f, err := files.CreateFile(ctx, core.FileInput{
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FileType:         core.FileTypeGL,
		OriginalFilename: "ledger.csv",
		FileSizeBytes:    2048,
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if f.Status != core.FileStatusPending {
		t.Errorf("new file status = %s, want pending", f.Status)
	}

	if err := files.MarkProcessing(ctx, f.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	if err := files.MarkFailed(ctx, f.ID, core.FailureTrialBalance, []string{"row 3: could not parse amount"}); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, err := files.GetFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.Status != core.FileStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.ErrorKind == nil || *got.ErrorKind != core.FailureTrialBalance {
		t.Errorf("error_kind = %v, want %s", got.ErrorKind, core.FailureTrialBalance)
	}
	if len(got.ParseErrors) != 1 {
		t.Errorf("parse_errors = %v, want 1 entry", got.ParseErrors)
	}
	if got.ProcessedAt == nil {
		t.Error("processed_at should be set on failure")
	}

	// Reprocessing clears the failure state.
	if err := files.MarkProcessing(ctx, f.ID); err != nil {
		t.Fatalf("MarkProcessing again: %v", err)
	}
	if err := files.MarkCompleted(ctx, f.ID, nil); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, _ = files.GetFile(ctx, f.ID)
	if got.Status != core.FileStatusCompleted || got.ErrorKind != nil {
		t.Errorf("after completion: status=%s error_kind=%v", got.Status, got.ErrorKind)
	}
}

func TestTransactions_InsertAndExtractAccounts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	deal := seedDeal(t, pool)

	files := core.NewFileService(pool)
	f, err := files.CreateFile(ctx, core.FileInput{
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FileType:         core.FileTypeGL,
		OriginalFilename: "ledger.csv",
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	txs := []ingest.Transaction{
		{
			DealID:          deal.ID,
			OrganizationID:  deal.OrganizationID,
			TransactionDate: &date,
			AccountName:     "Rent",
			Description:     "January rent",
			Amount:          decimal.NewFromInt(-1000),
			RowNumber:       1,
			OriginalData:    ingest.OriginalData{SourceFile: "ledger.csv", RawAccount: "Rent"},
		},
		{
			DealID:         deal.ID,
			OrganizationID: deal.OrganizationID,
			AccountName:    "Rent",
			Description:    "February rent",
			Amount:         decimal.NewFromInt(-1000),
			RowNumber:      2,
			OriginalData:   ingest.OriginalData{SourceFile: "ledger.csv", RawAccount: "Rent"},
		},
		{
			DealID:         deal.ID,
			OrganizationID: deal.OrganizationID,
			AccountName:    "Sales",
			Description:    "Invoice 42",
			Amount:         decimal.NewFromInt(2000),
			RowNumber:      3,
			OriginalData:   ingest.OriginalData{SourceFile: "ledger.csv", RawAccount: "Sales"},
		},
	}

	svc := core.NewTransactionService(pool)
	inserted, err := svc.InsertTransactions(ctx, f.ID, txs)
	if err != nil {
		t.Fatalf("InsertTransactions: %v", err)
	}
	if len(inserted) != 3 {
		t.Errorf("inserted = %d, want 3", len(inserted))
	}
	for _, row := range inserted {
		if row.ID == "" {
			t.Error("inserted row missing generated id")
		}
	}

	extracted, err := svc.ExtractClientAccounts(ctx, deal.ID)
	if err != nil {
		t.Fatalf("ExtractClientAccounts: %v", err)
	}
	if extracted != 2 {
		t.Errorf("extracted = %d, want 2 distinct accounts", extracted)
	}

	accounts, err := svc.ListClientAccounts(ctx, deal.ID)
	if err != nil {
		t.Fatalf("ListClientAccounts: %v", err)
	}
	byName := map[string]core.ClientAccount{}
	for _, a := range accounts {
		byName[a.OriginalAccount] = a
	}
	rent, ok := byName["Rent"]
	if !ok {
		t.Fatal("Rent account missing")
	}
	if rent.TransactionCount != 2 {
		t.Errorf("Rent transaction_count = %d, want 2", rent.TransactionCount)
	}
	// Totals aggregate absolute values so expense accounts still rank by volume.
	if !rent.TotalAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Rent total_amount = %s, want 2000", rent.TotalAmount)
	}

	// Re-extraction is idempotent.
	if _, err := svc.ExtractClientAccounts(ctx, deal.ID); err != nil {
		t.Fatalf("re-run ExtractClientAccounts: %v", err)
	}
	accounts, _ = svc.ListClientAccounts(ctx, deal.ID)
	if len(accounts) != 2 {
		t.Errorf("after re-run: %d accounts, want 2", len(accounts))
	}

	// Everything is unmapped until the mapper runs.
	unmapped, err := svc.ListUnmappedAccounts(ctx, deal.ID)
	if err != nil {
		t.Fatalf("ListUnmappedAccounts: %v", err)
	}
	if len(unmapped) != 2 {
		t.Errorf("unmapped = %d, want 2", len(unmapped))
	}

	// Mapping one account removes it from the queue.
	mappings := core.NewMappingService(pool)
	if _, err := mappings.SaveMappings(ctx, []core.AccountMapping{{
		DealID:          deal.ID,
		ClientAccountID: rent.ID,
		MappedName:      "Rent Expense",
		Confidence:      0.95,
		Reasoning:       "Exact name match",
	}}); err != nil {
		t.Fatalf("SaveMappings: %v", err)
	}
	unmapped, _ = svc.ListUnmappedAccounts(ctx, deal.ID)
	if len(unmapped) != 1 || unmapped[0].OriginalAccount != "Sales" {
		t.Errorf("unmapped after mapping = %+v, want only Sales", unmapped)
	}

	// The saved mapping is readable back, linked to its client account.
	persisted, err := mappings.ListMappings(ctx, deal.ID)
	if err != nil {
		t.Fatalf("ListMappings: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("mappings = %d, want 1", len(persisted))
	}
	if persisted[0].ClientAccountID != rent.ID || persisted[0].MappedName != "Rent Expense" {
		t.Errorf("mapping = %+v, want Rent -> Rent Expense", persisted[0])
	}

	// The transaction grid returns rows in ledger order and honors the limit.
	grid, err := svc.ListTransactions(ctx, deal.ID, 2)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(grid) != 2 || grid[0].RowNumber != 1 || grid[1].RowNumber != 2 {
		t.Errorf("limited grid = %+v, want first two rows", grid)
	}
	grid, err = svc.ListTransactions(ctx, deal.ID, 0)
	if err != nil {
		t.Fatalf("ListTransactions unlimited: %v", err)
	}
	if len(grid) != 3 {
		t.Errorf("unlimited grid = %d rows, want 3", len(grid))
	}
}

func TestDealStatusLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	deal := seedDeal(t, pool)
	deals := core.NewDealService(pool)

	if deal.Status != core.DealStatusActive {
		t.Errorf("new deal status = %s, want active", deal.Status)
	}

	if err := deals.UpdateDealStatus(ctx, deal.ID, core.DealStatusReview); err != nil {
		t.Fatalf("UpdateDealStatus: %v", err)
	}
	got, err := deals.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	if got.Status != core.DealStatusReview {
		t.Errorf("status = %s, want review", got.Status)
	}

	if err := deals.UpdateDealStatus(ctx, deal.ID, "finished"); err == nil {
		t.Error("unknown status accepted, want error")
	}
	if err := deals.UpdateDealStatus(ctx, "00000000-0000-0000-0000-000000000000", core.DealStatusArchived); err == nil {
		t.Error("missing deal accepted, want error")
	}
}

func TestPLService_SaveAndList(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	deal := seedDeal(t, pool)

	files := core.NewFileService(pool)
	f, err := files.CreateFile(ctx, core.FileInput{
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FileType:         core.FileTypeMonthlyPL,
		OriginalFilename: "pl.csv",
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	result := &ingest.PLResult{
		Periods: map[string]int{"2023-01-01": 1, "2023-02-01": 2},
		LineItems: []ingest.PLLineItem{
			{
				Name: "Revenue",
				Values: map[string]decimal.Decimal{
					"2023-01-01": decimal.NewFromInt(100),
					"2023-02-01": decimal.NewFromInt(200),
				},
			},
			{
				Name:       "Gross Profit",
				IsSubtotal: true,
				// Sparse: only January reported.
				Values: map[string]decimal.Decimal{"2023-01-01": decimal.NewFromInt(40)},
			},
		},
	}

	svc := core.NewPLService(pool)
	written, err := svc.SavePLResult(ctx, deal.ID, f.ID, result)
	if err != nil {
		t.Fatalf("SavePLResult: %v", err)
	}
	if written != 3 {
		t.Errorf("written = %d, want 3 line item rows", written)
	}

	headers, err := svc.ListHeaders(ctx, deal.ID)
	if err != nil {
		t.Fatalf("ListHeaders: %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("headers = %d, want 2", len(headers))
	}
	jan := headers[0]
	if jan.PeriodStart.Format("2006-01-02") != "2023-01-01" {
		t.Errorf("period_start = %s, want 2023-01-01", jan.PeriodStart.Format("2006-01-02"))
	}
	if jan.PeriodEnd.Format("2006-01-02") != "2023-01-31" {
		t.Errorf("period_end = %s, want last day of month", jan.PeriodEnd.Format("2006-01-02"))
	}

	items, err := svc.ListLineItems(ctx, jan.ID)
	if err != nil {
		t.Fatalf("ListLineItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("January items = %d, want 2", len(items))
	}
	if !items[1].IsSubtotal || items[1].LineName != "Gross Profit" {
		t.Errorf("second January item = %+v, want Gross Profit subtotal", items[1])
	}

	// February only has the Revenue line.
	feb, err := svc.ListLineItems(ctx, headers[1].ID)
	if err != nil {
		t.Fatalf("ListLineItems Feb: %v", err)
	}
	if len(feb) != 1 || !feb[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("February items = %+v, want single 200 Revenue row", feb)
	}
}
