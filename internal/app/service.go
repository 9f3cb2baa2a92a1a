package app

import (
	"context"

	"diligence-backend/internal/core"
)

// ApplicationService is the single interface all adapters (Web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// CreateOrganization registers an advisory firm.
	CreateOrganization(ctx context.Context, name string) (*core.Organization, error)

	// CreateDeal opens a new diligence engagement.
	CreateDeal(ctx context.Context, req CreateDealRequest) (*core.Deal, error)

	// GetDeal returns one deal by ID.
	GetDeal(ctx context.Context, dealID string) (*core.Deal, error)

	// ListDeals returns all deals for an organization, newest first.
	ListDeals(ctx context.Context, organizationID string) ([]core.Deal, error)

	// UpdateDealStatus moves a deal through its review lifecycle.
	UpdateDealStatus(ctx context.Context, dealID, status string) error

	// IngestGLFile runs the full general ledger pipeline for one uploaded
	// file: record, parse, validate, persist, extract client accounts and
	// raise audit flags. Parse failures are persisted on the file record and
	// returned as an *IngestError carrying the failure kind.
	IngestGLFile(ctx context.Context, req IngestFileRequest) (*IngestGLResult, error)

	// IngestPLFile runs the monthly P&L pipeline for one uploaded file.
	IngestPLFile(ctx context.Context, req IngestFileRequest) (*IngestPLResult, error)

	// GetFileStatus returns the processing state of an uploaded file.
	GetFileStatus(ctx context.Context, fileID string) (*core.UploadedFile, error)

	// ListFiles returns all uploaded files for a deal, newest first.
	ListFiles(ctx context.Context, dealID string) ([]core.UploadedFile, error)

	// RunMapper classifies a deal's unmapped client accounts against the
	// master chart of accounts and persists the mappings.
	RunMapper(ctx context.Context, dealID string) (*MapperRunResult, error)

	// ListMappings returns the persisted account mappings for a deal so
	// callers can review where each client account landed.
	ListMappings(ctx context.Context, dealID string) ([]core.AccountMapping, error)

	// ListClientAccounts returns the extracted client accounts for a deal.
	ListClientAccounts(ctx context.Context, dealID string) ([]core.ClientAccount, error)

	// ListTransactions returns a deal's persisted GL transactions in row
	// order. A limit of zero or less returns all of them.
	ListTransactions(ctx context.Context, dealID string, limit int) ([]core.GLTransactionRow, error)

	// ListAuditFlags returns the anomaly flags raised for a deal.
	ListAuditFlags(ctx context.Context, dealID string) ([]core.AuditFlag, error)

	// ListPLHeaders returns the reporting periods extracted for a deal.
	ListPLHeaders(ctx context.Context, dealID string) ([]core.MonthlyPLHeader, error)

	// ListPLLineItems returns the line items for one reporting period.
	ListPLLineItems(ctx context.Context, headerID string) ([]core.PLLineItemRecord, error)
}
