// Package models provides the persisted entities of the property service.
package models

import (
	"time"

	"github.com/property-portfolio/internal/validation"
)

// Portfolio is a named grouping that owns zero or more properties.
type Portfolio struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,max=100"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Properties is the read-only back-reference filled in by the repository.
	Properties []*Property `json:"-" db:"-" validate:"-"`
}

// Normalize trims and title-cases the name.
func (p *Portfolio) Normalize() {
	p.Name = validation.TitleCase(p.Name)
}

// Validate checks the field rules.
func (p *Portfolio) Validate() error {
	return validation.Struct(p).Err()
}

// Copy returns a shallow copy without the properties back-reference.
func (p *Portfolio) Copy() *Portfolio {
	c := *p
	c.Properties = nil
	return &c
}

var _ validation.Entity = (*Portfolio)(nil)
