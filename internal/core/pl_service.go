package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diligence-backend/internal/ingest"
)

// plItemChunkSize bounds one batched round trip of P&L line item inserts.
const plItemChunkSize = 1000

type PLService interface {
	SavePLResult(ctx context.Context, dealID, fileID string, result *ingest.PLResult) (int, error)
	ListHeaders(ctx context.Context, dealID string) ([]MonthlyPLHeader, error)
	ListLineItems(ctx context.Context, headerID string) ([]PLLineItemRecord, error)
}

type plService struct {
	pool *pgxpool.Pool
}

// NewPLService constructs a PLService backed by PostgreSQL.
func NewPLService(pool *pgxpool.Pool) PLService {
	return &plService{pool: pool}
}

// SavePLResult persists one parsed P&L grid: a header row per reporting
// period, then every line's value for that period. Returns the number of line
// item rows written.
func (s *plService) SavePLResult(ctx context.Context, dealID, fileID string, result *ingest.PLResult) (int, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	// Stable period order so display_order is deterministic across runs.
	periodKeys := make([]string, 0, len(result.Periods))
	for key := range result.Periods {
		periodKeys = append(periodKeys, key)
	}
	sort.Strings(periodKeys)

	headerIDs := make(map[string]string, len(periodKeys))
	for _, key := range periodKeys {
		start, err := time.Parse("2006-01-02", key)
		if err != nil {
			return 0, fmt.Errorf("bad period key %q: %w", key, err)
		}
		end := start.AddDate(0, 1, -1)

		var headerID string
		err = dbTx.QueryRow(ctx, `
			INSERT INTO monthly_pl_headers (deal_id, uploaded_file_id, period_start, period_end, period_name)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			dealID, fileID, start, end, start.Format("Jan 2006"),
		).Scan(&headerID)
		if err != nil {
			return 0, fmt.Errorf("insert period header %s: %w", key, err)
		}
		headerIDs[key] = headerID
	}

	type itemRow struct {
		headerID string
		item     ingest.PLLineItem
		order    int
		amount   string
	}
	var pending []itemRow
	for order, item := range result.LineItems {
		for _, key := range periodKeys {
			value, ok := item.Values[key]
			if !ok {
				continue
			}
			pending = append(pending, itemRow{
				headerID: headerIDs[key],
				item:     item,
				order:    order,
				amount:   value.String(),
			})
		}
	}

	written := 0
	for start := 0; start < len(pending); start += plItemChunkSize {
		end := start + plItemChunkSize
		if end > len(pending) {
			end = len(pending)
		}

		batch := &pgx.Batch{}
		for _, row := range pending[start:end] {
			batch.Queue(`
				INSERT INTO pl_line_items (header_id, deal_id, line_name, amount, display_order, indent_level, is_subtotal)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				row.headerID, dealID, row.item.Name, row.amount, row.order, row.item.Indent, row.item.IsSubtotal,
			)
		}

		results := dbTx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return 0, fmt.Errorf("insert line item %q: %w", pending[i].item.Name, err)
			}
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("close batch: %w", err)
		}
		written += end - start
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit P&L inserts: %w", err)
	}
	return written, nil
}

func (s *plService) ListHeaders(ctx context.Context, dealID string) ([]MonthlyPLHeader, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, uploaded_file_id, period_start, period_end, period_name
		FROM monthly_pl_headers
		WHERE deal_id = $1
		ORDER BY period_start`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("list P&L headers: %w", err)
	}
	defer rows.Close()

	var headers []MonthlyPLHeader
	for rows.Next() {
		var h MonthlyPLHeader
		if err := rows.Scan(&h.ID, &h.DealID, &h.UploadedFileID, &h.PeriodStart, &h.PeriodEnd, &h.PeriodName); err != nil {
			return nil, fmt.Errorf("scan P&L header: %w", err)
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

func (s *plService) ListLineItems(ctx context.Context, headerID string) ([]PLLineItemRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, header_id, deal_id, line_name, amount, display_order, indent_level, is_subtotal
		FROM pl_line_items
		WHERE header_id = $1
		ORDER BY display_order`,
		headerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var items []PLLineItemRecord
	for rows.Next() {
		var item PLLineItemRecord
		if err := rows.Scan(&item.ID, &item.HeaderID, &item.DealID, &item.LineName, &item.Amount, &item.DisplayOrder, &item.IndentLevel, &item.IsSubtotal); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
