package app

import (
	"fmt"

	"diligence-backend/internal/ingest"
)

// IngestGLResult is returned by IngestGLFile on success.
type IngestGLResult struct {
	FileID            string       `json:"file_id"`
	Stats             ingest.Stats `json:"stats"`
	TransactionsSaved int          `json:"transactions_saved"`
	AccountsExtracted int          `json:"accounts_extracted"`
	AuditFlagsRaised  int          `json:"audit_flags_raised"`

	// MapperRun is nil when the post-ingest mapper run failed; the accounts
	// stay queued for an explicit run.
	MapperRun *MapperRunResult `json:"mapper_run,omitempty"`
}

// IngestPLResult is returned by IngestPLFile on success.
type IngestPLResult struct {
	FileID         string `json:"file_id"`
	PeriodCount    int    `json:"period_count"`
	LineItemCount  int    `json:"line_item_count"`
	LineItemsSaved int    `json:"line_items_saved"`
}

// MapperRunResult is returned by RunMapper.
type MapperRunResult struct {
	AccountsConsidered int `json:"accounts_considered"`
	MappingsSaved      int `json:"mappings_saved"`
	LowConfidence      int `json:"low_confidence"`
}

// IngestError reports a pipeline failure already recorded on the file record.
// Kind is one of the core.Failure* constants.
type IngestError struct {
	FileID string
	Kind   string
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion failed (%s): %v", e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
