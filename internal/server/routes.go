package server

import (
	"net/http"
	"time"

	"github.com/mkoyama/shisan/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Market data
	mux.HandleFunc("/api/market/stock/", s.handleStockQuote)
	mux.HandleFunc("/api/market/fx/", s.handleFxRate)
	mux.HandleFunc("/api/market/metal/", s.handleMetalPrice)

	// Assets and comparable sales
	mux.HandleFunc("/api/assets/", s.routeAssets)
	mux.HandleFunc("/api/assets", s.handleAssetCollection)
	mux.HandleFunc("/api/comps/", s.handleCompByID)

	// Rebalance
	mux.HandleFunc("/api/rebalance/targets", s.handleTargets)
	mux.HandleFunc("/api/rebalance/tolerance", s.handleTolerance)
	mux.HandleFunc("/api/rebalance/current", s.handleCurrent)
	mux.HandleFunc("/api/rebalance/plan", s.handlePlan)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"market_enabled": s.app.Config.Market.Enabled,
		"uptime":         time.Since(s.app.StartupTime).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
