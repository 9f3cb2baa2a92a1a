package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"diligence-backend/internal/ingest"
)

// insertChunkSize bounds one batched round trip of GL transaction inserts.
const insertChunkSize = 500

type TransactionService interface {
	InsertTransactions(ctx context.Context, fileID string, txs []ingest.Transaction) ([]GLTransactionRow, error)
	ExtractClientAccounts(ctx context.Context, dealID string) (int, error)
	ListClientAccounts(ctx context.Context, dealID string) ([]ClientAccount, error)
	ListUnmappedAccounts(ctx context.Context, dealID string) ([]ClientAccount, error)
	InsertAuditFlags(ctx context.Context, flags []AuditFlag) (int, error)
	ListAuditFlags(ctx context.Context, dealID string) ([]AuditFlag, error)
	ListTransactions(ctx context.Context, dealID string, limit int) ([]GLTransactionRow, error)
}

// GLTransactionRow is the persisted shape of one GL transaction, read back for
// auditing and display.
type GLTransactionRow struct {
	ID          string          `json:"id"`
	DealID      string          `json:"deal_id"`
	AccountName string          `json:"account_name"`
	Description string          `json:"description"`
	VendorName  string          `json:"vendor_name"`
	Amount      decimal.Decimal `json:"amount"`
	RowNumber   int             `json:"row_number"`
}

type transactionService struct {
	pool *pgxpool.Pool
}

// NewTransactionService constructs a TransactionService backed by PostgreSQL.
func NewTransactionService(pool *pgxpool.Pool) TransactionService {
	return &transactionService{pool: pool}
}

// InsertTransactions persists parsed GL rows in chunks, all within one
// database transaction so a mid-file failure leaves nothing behind. The
// returned rows carry the generated IDs, ready for auditing.
func (s *transactionService) InsertTransactions(ctx context.Context, fileID string, txs []ingest.Transaction) ([]GLTransactionRow, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	inserted := make([]GLTransactionRow, 0, len(txs))
	for start := 0; start < len(txs); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(txs) {
			end = len(txs)
		}

		batch := &pgx.Batch{}
		for _, t := range txs[start:end] {
			original, err := json.Marshal(t.OriginalData)
			if err != nil {
				return nil, fmt.Errorf("marshal original data for row %d: %w", t.RowNumber, err)
			}
			batch.Queue(`
				INSERT INTO gl_transactions
					(deal_id, organization_id, file_id, transaction_date,
					 account_name, description, vendor_name, amount, original_data, row_number)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING id`,
				t.DealID, t.OrganizationID, fileID, t.TransactionDate,
				t.AccountName, t.Description, t.VendorName, t.Amount, original, t.RowNumber,
			)
		}

		results := dbTx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			t := txs[i]
			var id string
			if err := results.QueryRow().Scan(&id); err != nil {
				results.Close()
				return nil, fmt.Errorf("insert transaction row %d: %w", t.RowNumber, err)
			}
			inserted = append(inserted, GLTransactionRow{
				ID:          id,
				DealID:      t.DealID,
				AccountName: t.AccountName,
				Description: t.Description,
				VendorName:  t.VendorName,
				Amount:      t.Amount,
				RowNumber:   t.RowNumber,
			})
		}
		if err := results.Close(); err != nil {
			return nil, fmt.Errorf("close batch: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction inserts: %w", err)
	}
	return inserted, nil
}

// ExtractClientAccounts aggregates a deal's GL transactions into distinct
// client accounts. Re-running refreshes counts and totals in place.
func (s *transactionService) ExtractClientAccounts(ctx context.Context, dealID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO client_accounts
			(deal_id, organization_id, original_account_string, sample_descriptions, transaction_count, total_amount)
		SELECT deal_id, organization_id,
		       COALESCE(NULLIF(account_name, ''), 'Unknown Account'),
		       LEFT(STRING_AGG(DISTINCT NULLIF(description, ''), ' | '), 500),
		       COUNT(*),
		       SUM(ABS(amount))
		FROM gl_transactions
		WHERE deal_id = $1
		GROUP BY deal_id, organization_id, COALESCE(NULLIF(account_name, ''), 'Unknown Account')
		ON CONFLICT (deal_id, original_account_string) DO UPDATE SET
			sample_descriptions = EXCLUDED.sample_descriptions,
			transaction_count   = EXCLUDED.transaction_count,
			total_amount        = EXCLUDED.total_amount`,
		dealID,
	)
	if err != nil {
		return 0, fmt.Errorf("extract client accounts for deal %s: %w", dealID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *transactionService) ListClientAccounts(ctx context.Context, dealID string) ([]ClientAccount, error) {
	return s.queryClientAccounts(ctx, `
		SELECT id, deal_id, organization_id, original_account_string,
		       COALESCE(sample_descriptions, ''), transaction_count, total_amount
		FROM client_accounts
		WHERE deal_id = $1
		ORDER BY original_account_string`,
		dealID,
	)
}

// ListUnmappedAccounts returns the mapping agent's work queue: client
// accounts with no mapping row, plus low-confidence placeholders eligible for
// another attempt.
func (s *transactionService) ListUnmappedAccounts(ctx context.Context, dealID string) ([]ClientAccount, error) {
	return s.queryClientAccounts(ctx, `
		SELECT ca.id, ca.deal_id, ca.organization_id, ca.original_account_string,
		       COALESCE(ca.sample_descriptions, ''), ca.transaction_count, ca.total_amount
		FROM client_accounts ca
		LEFT JOIN account_mappings am ON am.client_account_id = ca.id
		WHERE ca.deal_id = $1 AND (am.id IS NULL OR am.mapped_account_name = '`+UnmappedLowConfidence+`')
		ORDER BY ca.original_account_string`,
		dealID,
	)
}

func (s *transactionService) queryClientAccounts(ctx context.Context, query, dealID string) ([]ClientAccount, error) {
	rows, err := s.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("list client accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ClientAccount
	for rows.Next() {
		var a ClientAccount
		if err := rows.Scan(
			&a.ID, &a.DealID, &a.OrganizationID, &a.OriginalAccount,
			&a.SampleDesc, &a.TransactionCount, &a.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("scan client account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *transactionService) InsertAuditFlags(ctx context.Context, flags []AuditFlag) (int, error) {
	if len(flags) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, f := range flags {
		batch.Queue(`
			INSERT INTO audit_flags (deal_id, gl_transaction_id, reason, matched_text, amount, description)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.DealID, f.TransactionID, f.Reason, f.Matched, f.Amount, f.Description,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range flags {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("insert audit flag: %w", err)
		}
	}
	return len(flags), nil
}

func (s *transactionService) ListAuditFlags(ctx context.Context, dealID string) ([]AuditFlag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, gl_transaction_id, reason, COALESCE(matched_text, ''), amount, COALESCE(description, '')
		FROM audit_flags
		WHERE deal_id = $1
		ORDER BY reason, amount DESC`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit flags: %w", err)
	}
	defer rows.Close()

	var flags []AuditFlag
	for rows.Next() {
		var f AuditFlag
		if err := rows.Scan(&f.ID, &f.DealID, &f.TransactionID, &f.Reason, &f.Matched, &f.Amount, &f.Description); err != nil {
			return nil, fmt.Errorf("scan audit flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// ListTransactions returns a deal's persisted transactions in row order.
// A limit of zero or less means no limit.
func (s *transactionService) ListTransactions(ctx context.Context, dealID string, limit int) ([]GLTransactionRow, error) {
	query := `
		SELECT id, deal_id, COALESCE(account_name, ''), COALESCE(description, ''),
		       COALESCE(vendor_name, ''), amount, row_number
		FROM gl_transactions
		WHERE deal_id = $1
		ORDER BY row_number`
	args := []any{dealID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []GLTransactionRow
	for rows.Next() {
		var t GLTransactionRow
		if err := rows.Scan(&t.ID, &t.DealID, &t.AccountName, &t.Description, &t.VendorName, &t.Amount, &t.RowNumber); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
