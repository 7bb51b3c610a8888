package serializer

import (
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/validation"
)

// PortfolioJSON is the wire form of a portfolio. Properties is read-only and
// always present, empty when the portfolio owns nothing.
type PortfolioJSON struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	CreatedAt  time.Time          `json:"created_at"`
	Properties []*geojson.Feature `json:"properties"`
}

// Portfolio renders a portfolio with its nested property features.
func Portfolio(p *models.Portfolio) *PortfolioJSON {
	return &PortfolioJSON{
		ID:         p.ID,
		Name:       p.Name,
		CreatedAt:  p.CreatedAt.UTC(),
		Properties: PropertyFeatures(p.Properties),
	}
}

// Portfolios renders a portfolio list. It never returns nil.
func Portfolios(list []*models.Portfolio) []*PortfolioJSON {
	out := make([]*PortfolioJSON, 0, len(list))
	for _, p := range list {
		out = append(out, Portfolio(p))
	}
	return out
}

// PortfolioPayload is a decoded portfolio write. id, created_at and
// properties are read-only and ignored.
type PortfolioPayload struct {
	Name   optional[string]
	Errors validation.FieldErrors
}

// DecodePortfolio parses a portfolio body.
func DecodePortfolio(body []byte) (*PortfolioPayload, error) {
	top, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	payload := &PortfolioPayload{Errors: make(validation.FieldErrors)}
	decodeStringField(top, FieldName, &payload.Name, payload.Errors)
	return payload, nil
}

// Apply copies the decoded fields onto dst.
func (pl *PortfolioPayload) Apply(dst *models.Portfolio, partial bool) validation.FieldErrors {
	errs := make(validation.FieldErrors)
	for field, msgs := range pl.Errors {
		errs[field] = append(errs[field], msgs...)
	}
	applyString(&dst.Name, pl.Name, FieldName, partial, errs)
	return errs
}

