package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"diligence-backend/internal/ai"
	"diligence-backend/internal/core"
	"diligence-backend/internal/ingest"
)

type appService struct {
	pool     *pgxpool.Pool
	deals    core.DealService
	files    core.FileService
	txs      core.TransactionService
	pl       core.PLService
	mappings core.MappingService
	mapper   ai.MapperService
	auditor  *ai.Auditor
	cfg      ingest.Config
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	deals core.DealService,
	files core.FileService,
	txs core.TransactionService,
	pl core.PLService,
	mappings core.MappingService,
	mapper ai.MapperService,
) ApplicationService {
	return &appService{
		pool:     pool,
		deals:    deals,
		files:    files,
		txs:      txs,
		pl:       pl,
		mappings: mappings,
		mapper:   mapper,
		auditor:  ai.NewAuditor(),
		cfg:      ingest.DefaultConfig(),
	}
}

func (s *appService) CreateOrganization(ctx context.Context, name string) (*core.Organization, error) {
	return s.deals.CreateOrganization(ctx, name)
}

func (s *appService) CreateDeal(ctx context.Context, req CreateDealRequest) (*core.Deal, error) {
	return s.deals.CreateDeal(ctx, core.DealInput{
		OrganizationID: req.OrganizationID,
		ClientName:     req.ClientName,
		Industry:       req.Industry,
		Notes:          req.Notes,
	})
}

func (s *appService) GetDeal(ctx context.Context, dealID string) (*core.Deal, error) {
	return s.deals.GetDeal(ctx, dealID)
}

func (s *appService) ListDeals(ctx context.Context, organizationID string) ([]core.Deal, error) {
	return s.deals.ListDeals(ctx, organizationID)
}

func (s *appService) UpdateDealStatus(ctx context.Context, dealID, status string) error {
	return s.deals.UpdateDealStatus(ctx, dealID, status)
}

// IngestGLFile runs the general ledger pipeline synchronously. The file record
// always reflects the outcome, including failures, so status polling works the
// same whether the caller waited or not.
func (s *appService) IngestGLFile(ctx context.Context, req IngestFileRequest) (*IngestGLResult, error) {
	deal, err := s.deals.GetDeal(ctx, req.DealID)
	if err != nil {
		return nil, err
	}

	file, err := s.files.CreateFile(ctx, core.FileInput{
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FileType:         core.FileTypeGL,
		OriginalFilename: req.Filename,
		FileSizeBytes:    int64(len(req.Content)),
	})
	if err != nil {
		return nil, err
	}
	if err := s.files.MarkProcessing(ctx, file.ID); err != nil {
		return nil, err
	}

	result, err := ingest.ProcessGLFile(req.Content, deal.ID, deal.OrganizationID, req.Filename, req.Validate, s.cfg)
	if err != nil {
		return nil, s.failFile(ctx, file.ID, err, parseDiagnostics(err))
	}

	saved, err := s.txs.InsertTransactions(ctx, file.ID, result.Transactions)
	if err != nil {
		return nil, s.failFile(ctx, file.ID, err, nil)
	}

	extracted, err := s.txs.ExtractClientAccounts(ctx, deal.ID)
	if err != nil {
		return nil, s.failFile(ctx, file.ID, err, nil)
	}

	// Audit only this file's rows, best effort. A flagging failure must not
	// undo a successful ingestion.
	flagged := 0
	if flags := s.auditor.Audit(saved); len(flags) > 0 {
		if flagged, err = s.txs.InsertAuditFlags(ctx, flags); err != nil {
			log.Printf("audit: persisting flags for file %s: %v", file.ID, err)
			flagged = 0
		}
	}

	// Classify the refreshed account queue while we are here. A mapper
	// failure must not fail the ingestion either; the accounts stay queued.
	mapperRun, err := s.RunMapper(ctx, deal.ID)
	if err != nil {
		log.Printf("mapper: run after ingest of file %s: %v", file.ID, err)
		mapperRun = nil
	}

	if err := s.files.MarkCompleted(ctx, file.ID, result.Stats.ParseErrors); err != nil {
		return nil, err
	}

	return &IngestGLResult{
		FileID:            file.ID,
		Stats:             result.Stats,
		TransactionsSaved: len(saved),
		AccountsExtracted: extracted,
		AuditFlagsRaised:  flagged,
		MapperRun:         mapperRun,
	}, nil
}

// IngestPLFile runs the monthly P&L pipeline synchronously.
func (s *appService) IngestPLFile(ctx context.Context, req IngestFileRequest) (*IngestPLResult, error) {
	deal, err := s.deals.GetDeal(ctx, req.DealID)
	if err != nil {
		return nil, err
	}

	file, err := s.files.CreateFile(ctx, core.FileInput{
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FileType:         core.FileTypeMonthlyPL,
		OriginalFilename: req.Filename,
		FileSizeBytes:    int64(len(req.Content)),
	})
	if err != nil {
		return nil, err
	}
	if err := s.files.MarkProcessing(ctx, file.ID); err != nil {
		return nil, err
	}

	result, err := ingest.ParsePLFile(req.Content, req.Filename, s.cfg)
	if err != nil {
		return nil, s.failFile(ctx, file.ID, err, nil)
	}

	saved, err := s.pl.SavePLResult(ctx, deal.ID, file.ID, result)
	if err != nil {
		return nil, s.failFile(ctx, file.ID, err, nil)
	}

	if err := s.files.MarkCompleted(ctx, file.ID, nil); err != nil {
		return nil, err
	}

	return &IngestPLResult{
		FileID:         file.ID,
		PeriodCount:    len(result.Periods),
		LineItemCount:  len(result.LineItems),
		LineItemsSaved: saved,
	}, nil
}

func (s *appService) GetFileStatus(ctx context.Context, fileID string) (*core.UploadedFile, error) {
	return s.files.GetFile(ctx, fileID)
}

func (s *appService) ListFiles(ctx context.Context, dealID string) ([]core.UploadedFile, error) {
	return s.files.ListFiles(ctx, dealID)
}

// RunMapper classifies every unmapped client account for the deal and
// persists the results, including low-confidence placeholders.
func (s *appService) RunMapper(ctx context.Context, dealID string) (*MapperRunResult, error) {
	if _, err := s.deals.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}

	unmapped, err := s.txs.ListUnmappedAccounts(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if len(unmapped) == 0 {
		return &MapperRunResult{}, nil
	}

	coa, err := s.mappings.ListMasterAccounts(ctx)
	if err != nil {
		return nil, err
	}

	proposed, err := s.mapper.MapAccounts(ctx, unmapped, coa)
	if err != nil {
		return nil, fmt.Errorf("mapper run for deal %s: %w", dealID, err)
	}

	saved, err := s.mappings.SaveMappings(ctx, proposed)
	if err != nil {
		return nil, err
	}

	low := 0
	for _, m := range proposed {
		if m.MappedName == core.UnmappedLowConfidence {
			low++
		}
	}

	return &MapperRunResult{
		AccountsConsidered: len(unmapped),
		MappingsSaved:      saved,
		LowConfidence:      low,
	}, nil
}

func (s *appService) ListMappings(ctx context.Context, dealID string) ([]core.AccountMapping, error) {
	return s.mappings.ListMappings(ctx, dealID)
}

func (s *appService) ListClientAccounts(ctx context.Context, dealID string) ([]core.ClientAccount, error) {
	return s.txs.ListClientAccounts(ctx, dealID)
}

func (s *appService) ListTransactions(ctx context.Context, dealID string, limit int) ([]core.GLTransactionRow, error) {
	return s.txs.ListTransactions(ctx, dealID, limit)
}

func (s *appService) ListAuditFlags(ctx context.Context, dealID string) ([]core.AuditFlag, error) {
	return s.txs.ListAuditFlags(ctx, dealID)
}

func (s *appService) ListPLHeaders(ctx context.Context, dealID string) ([]core.MonthlyPLHeader, error) {
	return s.pl.ListHeaders(ctx, dealID)
}

func (s *appService) ListPLLineItems(ctx context.Context, headerID string) ([]core.PLLineItemRecord, error) {
	return s.pl.ListLineItems(ctx, headerID)
}

// failFile records the failure on the file record and wraps the cause in an
// *IngestError carrying the classified kind.
func (s *appService) failFile(ctx context.Context, fileID string, cause error, diagnostics []string) error {
	kind := classifyFailure(cause)
	if err := s.files.MarkFailed(ctx, fileID, kind, diagnostics); err != nil {
		log.Printf("ingest: marking file %s failed: %v", fileID, err)
	}
	return &IngestError{FileID: fileID, Kind: kind, Err: cause}
}

func classifyFailure(err error) string {
	var (
		unsupported *ingest.UnsupportedFormatError
		header      *ingest.HeaderDetectionError
		balance     *ingest.TrialBalanceError
		pl          *ingest.PLParseError
	)
	switch {
	case errors.As(err, &unsupported):
		return core.FailureUnsupportedFormat
	case errors.As(err, &header):
		return core.FailureHeaderDetection
	case errors.As(err, &balance):
		return core.FailureTrialBalance
	case errors.As(err, &pl):
		return core.FailurePLParsing
	default:
		return core.FailureProcessing
	}
}

// parseDiagnostics surfaces the human-readable detail of a parse failure so it
// is stored alongside the error kind.
func parseDiagnostics(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}
