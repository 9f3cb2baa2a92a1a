package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MappingService interface {
	ListMasterAccounts(ctx context.Context) ([]MasterAccount, error)
	SaveMappings(ctx context.Context, mappings []AccountMapping) (int, error)
	ListMappings(ctx context.Context, dealID string) ([]AccountMapping, error)
}

type mappingService struct {
	pool *pgxpool.Pool
}

// NewMappingService constructs a MappingService backed by PostgreSQL.
func NewMappingService(pool *pgxpool.Pool) MappingService {
	return &mappingService{pool: pool}
}

func (s *mappingService) ListMasterAccounts(ctx context.Context) ([]MasterAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_code, account_name, category, COALESCE(subcategory, ''), is_active
		FROM master_coa
		WHERE is_active = true
		ORDER BY account_code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list master accounts: %w", err)
	}
	defer rows.Close()

	var accounts []MasterAccount
	for rows.Next() {
		var a MasterAccount
		if err := rows.Scan(&a.ID, &a.AccountCode, &a.AccountName, &a.Category, &a.Subcategory, &a.IsActive); err != nil {
			return nil, fmt.Errorf("scan master account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SaveMappings upserts classifier output. A re-run of the mapper replaces the
// previous mapping for the same client account.
func (s *mappingService) SaveMappings(ctx context.Context, mappings []AccountMapping) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, m := range mappings {
		batch.Queue(`
			INSERT INTO account_mappings
				(deal_id, client_account_id, master_account_id, mapped_account_name, confidence, reasoning)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (client_account_id) DO UPDATE SET
				master_account_id   = EXCLUDED.master_account_id,
				mapped_account_name = EXCLUDED.mapped_account_name,
				confidence          = EXCLUDED.confidence,
				reasoning           = EXCLUDED.reasoning`,
			m.DealID, m.ClientAccountID, m.MasterAccountID, m.MappedName, m.Confidence, m.Reasoning,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range mappings {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("save mapping: %w", err)
		}
	}
	return len(mappings), nil
}

func (s *mappingService) ListMappings(ctx context.Context, dealID string) ([]AccountMapping, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, client_account_id, master_account_id,
		       mapped_account_name, confidence, COALESCE(reasoning, ''), created_at
		FROM account_mappings
		WHERE deal_id = $1
		ORDER BY mapped_account_name`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.ID, &m.DealID, &m.ClientAccountID, &m.MasterAccountID, &m.MappedName, &m.Confidence, &m.Reasoning, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
