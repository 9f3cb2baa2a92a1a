package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DealService interface {
	CreateOrganization(ctx context.Context, name string) (*Organization, error)
	CreateDeal(ctx context.Context, input DealInput) (*Deal, error)
	GetDeal(ctx context.Context, dealID string) (*Deal, error)
	ListDeals(ctx context.Context, organizationID string) ([]Deal, error)
	UpdateDealStatus(ctx context.Context, dealID, status string) error
}

type DealInput struct {
	OrganizationID string `json:"organization_id"`
	ClientName     string `json:"client_name"`
	Industry       string `json:"industry,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type dealService struct {
	pool *pgxpool.Pool
}

// NewDealService constructs a DealService backed by PostgreSQL.
func NewDealService(pool *pgxpool.Pool) DealService {
	return &dealService{pool: pool}
}

func (s *dealService) CreateOrganization(ctx context.Context, name string) (*Organization, error) {
	org := &Organization{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO organizations (name)
		VALUES ($1)
		RETURNING id, name, created_at`,
		name,
	).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create organization %q: %w", name, err)
	}
	return org, nil
}

func (s *dealService) CreateDeal(ctx context.Context, input DealInput) (*Deal, error) {
	if input.ClientName == "" {
		return nil, errors.New("client_name is required")
	}

	d := &Deal{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO deals (organization_id, client_name, industry, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, organization_id, client_name, status,
		          COALESCE(industry, ''), COALESCE(notes, ''), created_at`,
		input.OrganizationID, input.ClientName, nullable(input.Industry), nullable(input.Notes),
	).Scan(&d.ID, &d.OrganizationID, &d.ClientName, &d.Status, &d.Industry, &d.Notes, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create deal for %q: %w", input.ClientName, err)
	}
	return d, nil
}

func (s *dealService) GetDeal(ctx context.Context, dealID string) (*Deal, error) {
	d := &Deal{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, client_name, status,
		       COALESCE(industry, ''), COALESCE(notes, ''), created_at
		FROM deals
		WHERE id = $1`,
		dealID,
	).Scan(&d.ID, &d.OrganizationID, &d.ClientName, &d.Status, &d.Industry, &d.Notes, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("deal %s not found", dealID)
		}
		return nil, fmt.Errorf("get deal %s: %w", dealID, err)
	}
	return d, nil
}

func (s *dealService) ListDeals(ctx context.Context, organizationID string) ([]Deal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, client_name, status,
		       COALESCE(industry, ''), COALESCE(notes, ''), created_at
		FROM deals
		WHERE organization_id = $1
		ORDER BY created_at DESC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.ClientName, &d.Status, &d.Industry, &d.Notes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *dealService) UpdateDealStatus(ctx context.Context, dealID, status string) error {
	switch status {
	case DealStatusActive, DealStatusReview, DealStatusCompleted, DealStatusArchived:
	default:
		return fmt.Errorf("invalid deal status %q", status)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE deals SET status = $2 WHERE id = $1`, dealID, status)
	if err != nil {
		return fmt.Errorf("update deal %s status: %w", dealID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal %s not found", dealID)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
