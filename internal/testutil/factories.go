package testutil

import (
	"github.com/paulmach/orb"
	"github.com/property-portfolio/internal/models"
)

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// PropertyOption customizes a property built by NewProperty.
type PropertyOption func(*models.Property)

// WithPortfolio assigns the property to a portfolio.
func WithPortfolio(id int64) PropertyOption {
	return func(p *models.Property) { p.PortfolioID = Int64Ptr(id) }
}

// WithLocation places the property at lon/lat.
func WithLocation(lon, lat float64) PropertyOption {
	return func(p *models.Property) { p.Location = orb.Point{lon, lat} }
}

// WithRisks sets relevant and handled risk counts.
func WithRisks(relevant, handled int) PropertyOption {
	return func(p *models.Property) {
		p.RelevantRisks = relevant
		p.HandledRisks = handled
	}
}

// WithValue sets the estimated value.
func WithValue(v int64) PropertyOption {
	return func(p *models.Property) { p.EstimatedValue = v }
}

// WithName sets name and address.
func WithName(name string) PropertyOption {
	return func(p *models.Property) {
		p.Name = name
		p.Address = name
	}
}

// NewProperty returns a valid, normalized property in central Oslo.
func NewProperty(opts ...PropertyOption) *models.Property {
	p := &models.Property{
		Name:               "Karl Johans Gate 1",
		Address:            "Karl Johans Gate 1",
		ZipCode:            "0154",
		City:               "Oslo",
		Location:           orb.Point{10.7522, 59.9139},
		EstimatedValue:     45_000_000,
		RelevantRisks:      4,
		HandledRisks:       2,
		TotalFinancialRisk: 1_500_000,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
