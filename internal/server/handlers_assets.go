package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mkoyama/shisan/internal/models"
)

// handleAssetCollection handles /api/assets (GET list, POST create).
func (s *Server) handleAssetCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assets, err := s.app.Storage.AssetStorage().List(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"assets": assets, "count": len(assets)})

	case http.MethodPost:
		var a models.Asset
		if !DecodeJSON(w, r, &a) {
			return
		}
		if strings.TrimSpace(a.Name) == "" {
			WriteError(w, http.StatusBadRequest, "name is required")
			return
		}
		if strings.TrimSpace(a.Class) == "" {
			WriteError(w, http.StatusBadRequest, "class is required")
			return
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if err := s.app.Storage.AssetStorage().Save(r.Context(), &a); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, a)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeAssets dispatches /api/assets/{id} and its sub-resources.
func (s *Server) routeAssets(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		WriteError(w, http.StatusBadRequest, "Asset ID is required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleAssetByID(w, r, id)
	case len(parts) == 2 && parts[1] == "comps":
		s.handleAssetComps(w, r, id)
	case len(parts) == 2 && parts[1] == "estimate":
		s.handleAssetEstimate(w, r, id)
	case len(parts) == 2 && parts[1] == "valuation":
		s.handleAssetValuation(w, r, id)
	case len(parts) == 3 && parts[1] == "valuation" && parts[2] == "commit":
		s.handleValuationCommit(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Unknown asset resource")
	}
}

// handleAssetByID handles GET/PUT/DELETE /api/assets/{id}.
func (s *Server) handleAssetByID(w http.ResponseWriter, r *http.Request, id string) {
	store := s.app.Storage.AssetStorage()
	switch r.Method {
	case http.MethodGet:
		a, err := store.Get(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, a)

	case http.MethodPut:
		var a models.Asset
		if !DecodeJSON(w, r, &a) {
			return
		}
		a.ID = id
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Class) == "" {
			WriteError(w, http.StatusBadRequest, "name and class are required")
			return
		}
		if err := store.Save(r.Context(), &a); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, a)

	case http.MethodDelete:
		if err := store.Delete(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleAssetEstimate handles GET /api/assets/{id}/estimate.
// Query params: method (wmad|wmedian|wmean), half_life_days.
func (s *Server) handleAssetEstimate(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	method := r.URL.Query().Get("method")
	if method == "" {
		method = s.app.Config.Estimator.Method
	}
	halfLife := s.app.Config.Estimator.HalfLifeDays
	if v := r.URL.Query().Get("half_life_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "half_life_days must be an integer")
			return
		}
		halfLife = n
	}

	result, err := s.app.CompsService.EstimateForAsset(r.Context(), id, method, halfLife)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleAssetValuation handles GET /api/assets/{id}/valuation (latest committed).
func (s *Server) handleAssetValuation(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v, err := s.app.Storage.ValuationStorage().LatestForAsset(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if v == nil {
		WriteError(w, http.StatusNotFound, "No committed valuation for asset '"+id+"'")
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// handleValuationCommit handles POST /api/assets/{id}/valuation/commit.
// The estimate is recomputed from the stored sales at commit time so the
// persisted valuation always reflects the latest data.
func (s *Server) handleValuationCommit(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Method       string `json:"method"`
		HalfLifeDays int    `json:"half_life_days"`
	}
	if r.ContentLength > 0 && !DecodeJSON(w, r, &body) {
		return
	}
	if body.Method == "" {
		body.Method = s.app.Config.Estimator.Method
	}
	if body.HalfLifeDays == 0 {
		body.HalfLifeDays = s.app.Config.Estimator.HalfLifeDays
	}

	estimate, err := s.app.CompsService.EstimateForAsset(r.Context(), id, body.Method, body.HalfLifeDays)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.app.CompsService.CommitValuation(r.Context(), id, estimate); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, estimate)
}
