package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"diligence-backend/internal/app"
	"diligence-backend/internal/core"
)

func (h *Handler) uploadGLFile(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	// validate=false skips the trial balance check for partial-year exports.
	req.Validate = r.URL.Query().Get("validate") != "false"

	result, err := h.svc.IngestGLFile(r.Context(), req)
	if err != nil {
		writeIngestError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) uploadPLFile(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.svc.IngestPLFile(r.Context(), req)
	if err != nil {
		writeIngestError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getFileStatus(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.GetFileStatus(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, file)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"files": files})
}

func (h *Handler) listPLHeaders(w http.ResponseWriter, r *http.Request) {
	headers, err := h.svc.ListPLHeaders(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"periods": headers})
}

func (h *Handler) listPLLineItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPLLineItems(r.Context(), chi.URLParam(r, "headerID"))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"line_items": items})
}

// readUpload extracts the "file" part of a multipart upload, enforcing the
// 50 MB cap before reading anything into memory.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (app.IngestFileRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "file exceeds the 50 MB upload limit", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return app.IngestFileRequest{}, false
		}
		writeError(w, r, "invalid multipart form: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return app.IngestFileRequest{}, false
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, `multipart field "file" is required`, "BAD_REQUEST", http.StatusBadRequest)
		return app.IngestFileRequest{}, false
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		writeError(w, r, "failed to read upload: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return app.IngestFileRequest{}, false
	}

	return app.IngestFileRequest{
		DealID:   dealID(r),
		Filename: header.Filename,
		Content:  content,
	}, true
}

// writeIngestError maps pipeline failures onto stable API error codes. Parse
// and validation failures are the client's problem (422); anything else is
// ours (500).
func writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	var ingestErr *app.IngestError
	if !errors.As(err, &ingestErr) {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	switch ingestErr.Kind {
	case core.FailureUnsupportedFormat:
		writeError(w, r, err.Error(), "UNSUPPORTED_FORMAT", http.StatusUnprocessableEntity)
	case core.FailureHeaderDetection:
		writeError(w, r, err.Error(), "HEADER_DETECTION_FAILED", http.StatusUnprocessableEntity)
	case core.FailureTrialBalance:
		writeError(w, r, err.Error(), "TRIAL_BALANCE_FAILED", http.StatusUnprocessableEntity)
	case core.FailurePLParsing:
		writeError(w, r, err.Error(), "PL_PARSING_FAILED", http.StatusUnprocessableEntity)
	default:
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
