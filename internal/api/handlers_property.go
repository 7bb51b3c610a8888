package api

import (
	"net/http"
	"net/url"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/serializer"
)

// handleListProperties handles GET /api/properties/ - filtered, ordered and
// paginated FeatureCollection
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q, err := query.ParsePropertyQuery(r.URL.Query(), s.pageOptions)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.propertyService.List(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondGeoJSON(w, http.StatusOK, serializer.PropertyPage(page.Properties, page.Page, requestURL(r)))
}

// handleCreateProperty handles POST /api/properties/
func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	payload, err := s.decodeProperty(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	property, err := s.propertyService.Create(r.Context(), payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondGeoJSON(w, http.StatusCreated, serializer.PropertyFeature(property))
}

// handleGetProperty handles GET /api/properties/{id}/
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	property, err := s.propertyService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondGeoJSON(w, http.StatusOK, serializer.PropertyFeature(property))
}

// handleUpdateProperty handles PUT and PATCH /api/properties/{id}/
func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload, err := s.decodeProperty(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	property, err := s.propertyService.Update(r.Context(), id, payload, r.Method == http.MethodPatch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondGeoJSON(w, http.StatusOK, serializer.PropertyFeature(property))
}

// handleDeleteProperty handles DELETE /api/properties/{id}/
func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.propertyService.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeProperty(w http.ResponseWriter, r *http.Request) (*serializer.PropertyPayload, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}

	payload, err := serializer.DecodeProperty(body)
	if err != nil {
		return nil, apperrors.NewMalformedBodyError(err)
	}
	return payload, nil
}

// requestURL rebuilds the absolute URL the client used, for pagination links.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	return &u
}
