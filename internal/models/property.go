package models

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/property-portfolio/internal/validation"
)

// Value and count ceilings shared by the validation tags and the fixture generator.
const (
	MaxCurrencyAmount = 1_000_000_000
	MaxRiskCount      = 1000
)

// Property is a real-estate asset with location, valuation and risk tracking.
type Property struct {
	ID                 int64     `json:"id" db:"id"`
	PortfolioID        *int64    `json:"portfolio" db:"portfolio_id"`
	Name               string    `json:"name" db:"name" validate:"required,max=100"`
	Address            string    `json:"address" db:"address" validate:"required,max=255"`
	ZipCode            string    `json:"zip_code" db:"zip_code" validate:"required,zipcode"`
	City               string    `json:"city" db:"city" validate:"required,max=100"`
	Location           orb.Point `json:"-" db:"location" validate:"-"`
	EstimatedValue     int64     `json:"estimated_value" db:"estimated_value" validate:"gte=0,lte=1000000000"`
	RelevantRisks      int       `json:"relevant_risks" db:"relevant_risks" validate:"gte=0,lte=1000"`
	HandledRisks       int       `json:"handled_risks" db:"handled_risks" validate:"gte=0,lte=1000"`
	TotalFinancialRisk int64     `json:"total_financial_risk" db:"total_financial_risk" validate:"gte=0,lte=1000000000"`
}

// Normalize trims every text field and title-cases name and address.
func (p *Property) Normalize() {
	p.Name = validation.TitleCase(p.Name)
	p.Address = validation.TitleCase(p.Address)
	p.ZipCode = strings.TrimSpace(p.ZipCode)
	p.City = strings.TrimSpace(p.City)
}

// Validate checks the field rules, then the risk rule. The risk rule only runs
// once every field is individually valid.
func (p *Property) Validate() error {
	errs := validation.Struct(p)
	for field, msgs := range validation.Point("location", p.Location.Lon(), p.Location.Lat()) {
		if errs == nil {
			errs = make(validation.FieldErrors)
		}
		errs[field] = append(errs[field], msgs...)
	}
	if len(errs) > 0 {
		return errs
	}
	return validation.CheckRisks(p.HandledRisks, p.RelevantRisks)
}

// Copy returns an independent copy of the property.
func (p *Property) Copy() *Property {
	c := *p
	if p.PortfolioID != nil {
		id := *p.PortfolioID
		c.PortfolioID = &id
	}
	return &c
}

// InPortfolio reports whether the property belongs to the given portfolio.
func (p *Property) InPortfolio(portfolioID int64) bool {
	return p.PortfolioID != nil && *p.PortfolioID == portfolioID
}

var _ validation.Entity = (*Property)(nil)
