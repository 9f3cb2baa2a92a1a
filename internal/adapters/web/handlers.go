package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"diligence-backend/internal/app"
)

// maxUploadBytes caps one uploaded spreadsheet at 50 MB.
const maxUploadBytes = 50 << 20

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// File uploads: body limit is managed inside the handler (multipart, up to 50 MB).
	r.Post("/api/deals/{dealID}/gl-files", h.uploadGLFile)
	r.Post("/api/deals/{dealID}/pl-files", h.uploadPLFile)

	// All other endpoints: 1 MB body limit to prevent unbounded request abuse.
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Post("/api/organizations", h.createOrganization)

		r.Post("/api/deals", h.createDeal)
		r.Get("/api/deals", h.listDeals)
		r.Get("/api/deals/{dealID}", h.getDeal)
		r.Patch("/api/deals/{dealID}/status", h.updateDealStatus)
		r.Get("/api/deals/{dealID}/files", h.listFiles)
		r.Get("/api/deals/{dealID}/accounts", h.listClientAccounts)
		r.Get("/api/deals/{dealID}/transactions", h.listTransactions)
		r.Get("/api/deals/{dealID}/audit-flags", h.listAuditFlags)
		r.Get("/api/deals/{dealID}/pl-periods", h.listPLHeaders)
		r.Get("/api/deals/{dealID}/mappings", h.listMappings)
		r.Post("/api/deals/{dealID}/mappings/run", h.runMapper)

		r.Get("/api/files/{fileID}", h.getFileStatus)
		r.Get("/api/pl-periods/{headerID}/line-items", h.listPLLineItems)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// dealID extracts the {dealID} URL parameter.
func dealID(r *http.Request) string {
	return chi.URLParam(r, "dealID")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
