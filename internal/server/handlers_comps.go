package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mkoyama/shisan/internal/models"
)

// handleAssetComps handles /api/assets/{id}/comps (GET list, POST add).
func (s *Server) handleAssetComps(w http.ResponseWriter, r *http.Request, assetID string) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}
		sales, err := s.app.CompsService.List(r.Context(), assetID, limit)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"sales": sales, "count": len(sales)})

	case http.MethodPost:
		var sale models.ComparableSale
		if !DecodeJSON(w, r, &sale) {
			return
		}
		saved, err := s.app.CompsService.Add(r.Context(), assetID, &sale)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, saved)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCompByID handles /api/comps/{id} (PUT update, DELETE).
func (s *Server) handleCompByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/comps/"), "/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Path must be /api/comps/{id}")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var patch models.ComparableSale
		if !DecodeJSON(w, r, &patch) {
			return
		}
		updated, err := s.app.CompsService.Update(r.Context(), id, &patch)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.CompsService.Delete(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}
