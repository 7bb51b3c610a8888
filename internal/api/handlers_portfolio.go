package api

import (
	"net/http"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/serializer"
)

// handleListPortfolios handles GET /api/portfolios/ - every portfolio with its properties
func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.portfolioService.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializer.Portfolios(portfolios))
}

// handleCreatePortfolio handles POST /api/portfolios/ - Create portfolio
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	payload, err := s.decodePortfolio(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	portfolio, err := s.portfolioService.Create(r.Context(), payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, serializer.Portfolio(portfolio))
}

// handleGetPortfolio handles GET /api/portfolios/{id}/ - Get portfolio details
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	portfolio, err := s.portfolioService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializer.Portfolio(portfolio))
}

// handleUpdatePortfolio handles PUT and PATCH /api/portfolios/{id}/
func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload, err := s.decodePortfolio(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	portfolio, err := s.portfolioService.Update(r.Context(), id, payload, r.Method == http.MethodPatch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializer.Portfolio(portfolio))
}

// handleDeletePortfolio handles DELETE /api/portfolios/{id}/ - removes the
// portfolio and every property it owns
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.portfolioService.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodePortfolio(w http.ResponseWriter, r *http.Request) (*serializer.PortfolioPayload, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}

	payload, err := serializer.DecodePortfolio(body)
	if err != nil {
		return nil, apperrors.NewMalformedBodyError(err)
	}
	return payload, nil
}
