package server

import (
	"net/http"
	"strings"
)

// handleStockQuote handles GET /api/market/stock/{exchange}/{symbol}.
func (s *Server) handleStockQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/market/stock/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "Path must be /api/market/stock/{exchange}/{symbol}")
		return
	}

	quote, err := s.app.QuoteService.GetStockQuote(r.Context(), parts[0], parts[1])
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}

// handleFxRate handles GET /api/market/fx/{pair}, e.g. /api/market/fx/USDJPY.
func (s *Server) handleFxRate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pair := strings.TrimPrefix(r.URL.Path, "/api/market/fx/")
	if pair == "" {
		WriteError(w, http.StatusBadRequest, "Path must be /api/market/fx/{pair}")
		return
	}

	quote, err := s.app.QuoteService.GetFxRate(r.Context(), pair)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}

// handleMetalPrice handles GET /api/market/metal/{metal}.
func (s *Server) handleMetalPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	metal := strings.TrimPrefix(r.URL.Path, "/api/market/metal/")
	if metal == "" {
		WriteError(w, http.StatusBadRequest, "Path must be /api/market/metal/{metal}")
		return
	}

	quote, err := s.app.QuoteService.GetMetalPrice(r.Context(), metal)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}
