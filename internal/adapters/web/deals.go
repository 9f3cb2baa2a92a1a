package web

import (
	"net/http"
	"strconv"
	"strings"

	"diligence-backend/internal/app"
)

// defaultTransactionLimit bounds the transaction grid unless the caller asks
// for more. limit=0 returns every row.
const defaultTransactionLimit = 500

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, "name is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	org, err := h.svc.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, org)
}

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
		ClientName     string `json:"client_name"`
		Industry       string `json:"industry"`
		Notes          string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrganizationID == "" || strings.TrimSpace(req.ClientName) == "" {
		writeError(w, r, "organization_id and client_name are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	deal, err := h.svc.CreateDeal(r.Context(), app.CreateDealRequest{
		OrganizationID: req.OrganizationID,
		ClientName:     req.ClientName,
		Industry:       req.Industry,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, deal)
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.svc.GetDeal(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, deal)
}

func (h *Handler) listDeals(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organization_id")
	if orgID == "" {
		writeError(w, r, "organization_id query parameter is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	deals, err := h.svc.ListDeals(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"deals": deals})
}

func (h *Handler) updateDealStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, r, "status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateDealStatus(r.Context(), dealID(r), req.Status); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": req.Status})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}

	txs, err := h.svc.ListTransactions(r.Context(), dealID(r), limit)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"transactions": txs})
}

func (h *Handler) listMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.svc.ListMappings(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"mappings": mappings})
}

func (h *Handler) listClientAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListClientAccounts(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"accounts": accounts})
}

func (h *Handler) listAuditFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.svc.ListAuditFlags(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"audit_flags": flags})
}

func (h *Handler) runMapper(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunMapper(r.Context(), dealID(r))
	if err != nil {
		writeError(w, r, err.Error(), "MAPPER_FAILED", http.StatusBadGateway)
		return
	}
	writeJSON(w, result)
}
