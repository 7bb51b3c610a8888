package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/types"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client went away
	}
}

// respondGeoJSON sends a GeoJSON response.
func respondGeoJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client went away
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 2_621_440

// readBody reads the request body up to maxBodyBytes. An empty body reads as
// an empty object.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewMalformedBodyError(fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, apperrors.NewMalformedBodyError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError("id", "must be an integer")
	}
	return id, nil
}

// respondError writes the error envelope for err. Server errors are logged
// with their cause and reported without internal detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	if apperrors.IsSystemError(catErr) {
		logging.FromContext(r.Context()).
			WithError(err).
			WithField("code", catErr.Code).
			Error("request failed")

		catErr = &apperrors.CategorizedError{
			Category:   catErr.Category,
			StatusCode: catErr.StatusCode,
			Code:       catErr.Code,
			Message:    "An internal error occurred",
		}
	} else if apperrors.IsUserError(catErr) {
		logging.FromContext(r.Context()).
			WithField("code", catErr.Code).
			Debug("request rejected")
	}

	if catErr.StatusCode == http.StatusTooManyRequests {
		if wait, ok := catErr.Details["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(wait))
		}
	}

	respondJSON(w, catErr.StatusCode, types.ErrorResponse{Error: catErr.ToServiceError()})
}
