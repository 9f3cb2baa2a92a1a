package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// FileStatus tracks an uploaded file through its processing lifecycle.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// Failure kinds persisted on a failed file so callers can branch on the cause
// instead of parsing a message.
const (
	FailureHeaderDetection   = "header_detection_failed"
	FailureTrialBalance      = "trial_balance_failed"
	FailureUnsupportedFormat = "unsupported_format"
	FailurePLParsing         = "pl_parsing_failed"
	FailureProcessing        = "processing_error"
)

// Deal statuses. New deals start active.
const (
	DealStatusActive    = "active"
	DealStatusReview    = "review"
	DealStatusCompleted = "completed"
	DealStatusArchived  = "archived"
)

// UnmappedLowConfidence is the sentinel mapped name for client accounts the
// classifier could not place confidently. Accounts carrying it re-enter the
// mapper queue on the next run.
const UnmappedLowConfidence = "Unmapped (Low Confidence)"

// File types accepted by the upload endpoints.
const (
	FileTypeGL        = "general_ledger"
	FileTypeMonthlyPL = "monthly_pl"
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Deal is one diligence engagement. All ingested data hangs off a deal.
type Deal struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ClientName     string    `json:"client_name"`
	Status         string    `json:"status"`
	Industry       string    `json:"industry,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type UploadedFile struct {
	ID               string     `json:"id"`
	DealID           string     `json:"deal_id"`
	OrganizationID   string     `json:"organization_id"`
	FileType         string     `json:"file_type"`
	OriginalFilename string     `json:"original_filename"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	Status           FileStatus `json:"status"`
	ErrorKind        *string    `json:"error_kind,omitempty"`
	ParseErrors      []string   `json:"parse_errors,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// ClientAccount is one distinct account string aggregated from a deal's GL
// transactions. It is the unit the mapping agent classifies.
type ClientAccount struct {
	ID               string          `json:"id"`
	DealID           string          `json:"deal_id"`
	OrganizationID   string          `json:"organization_id"`
	OriginalAccount  string          `json:"original_account_string"`
	SampleDesc       string          `json:"sample_descriptions,omitempty"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// MasterAccount is one entry of the standard chart of accounts that client
// accounts are mapped onto.
type MasterAccount struct {
	ID          string `json:"id"`
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type AccountMapping struct {
	ID              string    `json:"id"`
	DealID          string    `json:"deal_id"`
	ClientAccountID string    `json:"client_account_id"`
	MasterAccountID *string   `json:"master_account_id,omitempty"`
	MappedName      string    `json:"mapped_account_name"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning"`
	CreatedAt       time.Time `json:"created_at"`
}

// MonthlyPLHeader is one reporting period extracted from a P&L file. The
// period always spans a full calendar month.
type MonthlyPLHeader struct {
	ID             string    `json:"id"`
	DealID         string    `json:"deal_id"`
	UploadedFileID string    `json:"uploaded_file_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	PeriodName     string    `json:"period_name"`
}

// PLLineItemRecord is the persisted form of one extracted P&L line for one
// period.
type PLLineItemRecord struct {
	ID           string          `json:"id"`
	HeaderID     string          `json:"header_id"`
	DealID       string          `json:"deal_id"`
	LineName     string          `json:"line_name"`
	Amount       decimal.Decimal `json:"amount"`
	DisplayOrder int             `json:"display_order"`
	IndentLevel  int             `json:"indent_level"`
	IsSubtotal   bool            `json:"is_subtotal"`
}

// AuditFlag is a deterministic anomaly flag raised against one GL transaction.
type AuditFlag struct {
	ID            string          `json:"id"`
	DealID        string          `json:"deal_id"`
	TransactionID string          `json:"gl_transaction_id"`
	Reason        string          `json:"reason"`
	Matched       string          `json:"matched_text,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}
