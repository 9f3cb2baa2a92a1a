package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxStoredParseErrors caps the per-row diagnostics persisted with a file.
// Full counts live in the ingestion stats; the stored sample is for display.
const maxStoredParseErrors = 20

type FileService interface {
	CreateFile(ctx context.Context, input FileInput) (*UploadedFile, error)
	GetFile(ctx context.Context, fileID string) (*UploadedFile, error)
	ListFiles(ctx context.Context, dealID string) ([]UploadedFile, error)
	MarkProcessing(ctx context.Context, fileID string) error
	MarkCompleted(ctx context.Context, fileID string, parseErrors []string) error
	MarkFailed(ctx context.Context, fileID, errorKind string, parseErrors []string) error
}

type FileInput struct {
	DealID           string
	OrganizationID   string
	FileType         string
	OriginalFilename string
	FileSizeBytes    int64
}

type fileService struct {
	pool *pgxpool.Pool
}

// NewFileService constructs a FileService backed by PostgreSQL.
func NewFileService(pool *pgxpool.Pool) FileService {
	return &fileService{pool: pool}
}

func (s *fileService) CreateFile(ctx context.Context, input FileInput) (*UploadedFile, error) {
	if input.FileType != FileTypeGL && input.FileType != FileTypeMonthlyPL {
		return nil, fmt.Errorf("unknown file type %q", input.FileType)
	}

	f := &UploadedFile{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO uploaded_files (deal_id, organization_id, file_type, original_filename, file_size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, deal_id, organization_id, file_type, original_filename,
		          file_size_bytes, status, error_kind, parse_errors, created_at, processed_at`,
		input.DealID, input.OrganizationID, input.FileType, input.OriginalFilename, input.FileSizeBytes,
	).Scan(
		&f.ID, &f.DealID, &f.OrganizationID, &f.FileType, &f.OriginalFilename,
		&f.FileSizeBytes, &f.Status, &f.ErrorKind, &f.ParseErrors, &f.CreatedAt, &f.ProcessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create file record for %q: %w", input.OriginalFilename, err)
	}
	return f, nil
}

func (s *fileService) GetFile(ctx context.Context, fileID string) (*UploadedFile, error) {
	f := &UploadedFile{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, deal_id, organization_id, file_type, original_filename,
		       file_size_bytes, status, error_kind, parse_errors, created_at, processed_at
		FROM uploaded_files
		WHERE id = $1`,
		fileID,
	).Scan(
		&f.ID, &f.DealID, &f.OrganizationID, &f.FileType, &f.OriginalFilename,
		&f.FileSizeBytes, &f.Status, &f.ErrorKind, &f.ParseErrors, &f.CreatedAt, &f.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("file %s not found", fileID)
		}
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return f, nil
}

func (s *fileService) ListFiles(ctx context.Context, dealID string) ([]UploadedFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, organization_id, file_type, original_filename,
		       file_size_bytes, status, error_kind, parse_errors, created_at, processed_at
		FROM uploaded_files
		WHERE deal_id = $1
		ORDER BY created_at DESC`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []UploadedFile
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(
			&f.ID, &f.DealID, &f.OrganizationID, &f.FileType, &f.OriginalFilename,
			&f.FileSizeBytes, &f.Status, &f.ErrorKind, &f.ParseErrors, &f.CreatedAt, &f.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *fileService) MarkProcessing(ctx context.Context, fileID string) error {
	return s.setStatus(ctx, fileID, `
		UPDATE uploaded_files
		SET status = 'processing', error_kind = NULL, parse_errors = NULL
		WHERE id = $1`)
}

func (s *fileService) MarkCompleted(ctx context.Context, fileID string, parseErrors []string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE uploaded_files
		SET status = 'completed', parse_errors = $2, processed_at = NOW()
		WHERE id = $1`,
		fileID, capErrors(parseErrors),
	)
	if err != nil {
		return fmt.Errorf("mark file %s completed: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	return nil
}

func (s *fileService) MarkFailed(ctx context.Context, fileID, errorKind string, parseErrors []string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE uploaded_files
		SET status = 'failed', error_kind = $2, parse_errors = $3, processed_at = NOW()
		WHERE id = $1`,
		fileID, errorKind, capErrors(parseErrors),
	)
	if err != nil {
		return fmt.Errorf("mark file %s failed: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	return nil
}

func (s *fileService) setStatus(ctx context.Context, fileID, query string) error {
	tag, err := s.pool.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("update file %s: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	return nil
}

func capErrors(parseErrors []string) []string {
	if len(parseErrors) > maxStoredParseErrors {
		return parseErrors[:maxStoredParseErrors]
	}
	return parseErrors
}
