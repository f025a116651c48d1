package server

import (
	"net/http"
	"strconv"

	"github.com/mkoyama/shisan/internal/models"
	"github.com/mkoyama/shisan/internal/services/rebalance"
)

// handleTargets handles /api/rebalance/targets (GET, PUT).
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		targets, err := s.app.RebalanceService.GetTargets(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"targets": targets})

	case http.MethodPut:
		var body struct {
			Targets []models.TargetAllocation `json:"targets"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		if err := s.app.RebalanceService.SetTargets(r.Context(), body.Targets); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"targets": body.Targets})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleTolerance handles /api/rebalance/tolerance (GET, PUT).
func (s *Server) handleTolerance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		v, err := s.app.RebalanceService.GetTolerancePct(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]float64{"tolerance_pct": v})

	case http.MethodPut:
		var body struct {
			TolerancePct float64 `json:"tolerance_pct"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		if err := s.app.RebalanceService.SetTolerancePct(r.Context(), body.TolerancePct); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]float64{"tolerance_pct": body.TolerancePct})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleCurrent handles GET /api/rebalance/current.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	current, err := s.app.RebalanceService.CurrentByClass(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, current)
}

// handlePlan handles GET /api/rebalance/plan.
// Query params: adjust_to (target|mid), min_trade_jpy, format (json|csv).
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	adjustTo := r.URL.Query().Get("adjust_to")
	minTrade := 0.0
	if v := r.URL.Query().Get("min_trade_jpy"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "min_trade_jpy must be a number")
			return
		}
		minTrade = f
	}

	plan, err := s.app.RebalanceService.Plan(r.Context(), adjustTo, minTrade)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		data, err := rebalance.ToCSV(plan)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="rebalance_plan.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	WriteJSON(w, http.StatusOK, plan)
}
