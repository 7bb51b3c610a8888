// Package testutil provides in-memory repositories and fixtures for tests
// that do not need PostgreSQL.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/storage"
	"github.com/property-portfolio/internal/validation"
)

// MemoryStore holds portfolios and properties behind one lock so the
// cascade delete is atomic, as it is in the database.
type MemoryStore struct {
	mu              sync.Mutex
	portfolios      map[int64]*models.Portfolio
	properties      map[int64]*models.Property
	nextPortfolioID int64
	nextPropertyID  int64

	// Now stamps created_at. Tests may replace it.
	Now func() time.Time
}

// NewMemoryStore creates an empty store.
//
// Example usage:
//
//	store := testutil.NewMemoryStore()
//	portfolios := service.NewPortfolioService(store.Portfolios())
//	properties := service.NewPropertyService(store.Properties(), store.Portfolios())
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[int64]*models.Portfolio),
		properties: make(map[int64]*models.Property),
		Now:        time.Now,
	}
}

// Portfolios returns the portfolio repository view of the store.
func (s *MemoryStore) Portfolios() *MemoryPortfolioRepository {
	return &MemoryPortfolioRepository{store: s}
}

// Properties returns the property repository view of the store.
func (s *MemoryStore) Properties() *MemoryPropertyRepository {
	return &MemoryPropertyRepository{store: s}
}

// PropertyCount returns the number of stored properties.
func (s *MemoryStore) PropertyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.properties)
}

func guard(e validation.Entity) error {
	if err := e.Validate(); err != nil {
		return apperrors.NewInvariantViolationError(err)
	}
	return nil
}

// MemoryPortfolioRepository implements the portfolio repository in memory.
type MemoryPortfolioRepository struct {
	store *MemoryStore
}

// Create stores a copy of the portfolio and assigns id and created_at.
func (r *MemoryPortfolioRepository) Create(_ context.Context, portfolio *models.Portfolio) error {
	if err := guard(portfolio); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPortfolioID++
	portfolio.ID = s.nextPortfolioID
	portfolio.CreatedAt = s.Now().UTC()
	portfolio.Properties = []*models.Property{}
	s.portfolios[portfolio.ID] = portfolio.Copy()
	return nil
}

// GetByID returns the portfolio with its properties ordered by id.
func (r *MemoryPortfolioRepository) GetByID(_ context.Context, id int64) (*models.Portfolio, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, storage.ErrNotFound)
	}
	return s.withProperties(stored), nil
}

// List returns every portfolio ordered by id.
func (r *MemoryPortfolioRepository) List(_ context.Context) ([]*models.Portfolio, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, s.withProperties(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update replaces the name of a stored portfolio.
func (r *MemoryPortfolioRepository) Update(_ context.Context, portfolio *models.Portfolio) error {
	if err := guard(portfolio); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.portfolios[portfolio.ID]
	if !ok {
		return fmt.Errorf("portfolio %d: %w", portfolio.ID, storage.ErrNotFound)
	}
	stored.Name = portfolio.Name
	portfolio.CreatedAt = stored.CreatedAt
	return nil
}

// Delete removes the portfolio and its properties.
func (r *MemoryPortfolioRepository) Delete(_ context.Context, id int64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[id]; !ok {
		return 0, fmt.Errorf("portfolio %d: %w", id, storage.ErrNotFound)
	}

	var removed int64
	for pid, p := range s.properties {
		if p.InPortfolio(id) {
			delete(s.properties, pid)
			removed++
		}
	}
	delete(s.portfolios, id)
	return removed, nil
}

// Exists reports whether the portfolio exists.
func (r *MemoryPortfolioRepository) Exists(_ context.Context, id int64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.portfolios[id]
	return ok, nil
}

// withProperties must be called with the lock held.
func (s *MemoryStore) withProperties(stored *models.Portfolio) *models.Portfolio {
	p := stored.Copy()
	p.Properties = []*models.Property{}
	for _, prop := range s.properties {
		if prop.InPortfolio(p.ID) {
			p.Properties = append(p.Properties, prop.Copy())
		}
	}
	sort.Slice(p.Properties, func(i, j int) bool { return p.Properties[i].ID < p.Properties[j].ID })
	return p
}

// MemoryPropertyRepository implements the property repository in memory.
type MemoryPropertyRepository struct {
	store *MemoryStore
}

// Create stores a copy of the property and assigns its id.
func (r *MemoryPropertyRepository) Create(_ context.Context, property *models.Property) error {
	if err := guard(property); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReference(property); err != nil {
		return err
	}

	s.nextPropertyID++
	property.ID = s.nextPropertyID
	s.properties[property.ID] = property.Copy()
	return nil
}

// GetByID returns a copy of the stored property.
func (r *MemoryPropertyRepository) GetByID(_ context.Context, id int64) (*models.Property, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %d: %w", id, storage.ErrNotFound)
	}
	return p.Copy(), nil
}

// Update replaces a stored property.
func (r *MemoryPropertyRepository) Update(_ context.Context, property *models.Property) error {
	if err := guard(property); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[property.ID]; !ok {
		return fmt.Errorf("property %d: %w", property.ID, storage.ErrNotFound)
	}
	if err := s.checkReference(property); err != nil {
		return err
	}
	s.properties[property.ID] = property.Copy()
	return nil
}

// Delete removes a property.
func (r *MemoryPropertyRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[id]; !ok {
		return fmt.Errorf("property %d: %w", id, storage.ErrNotFound)
	}
	delete(s.properties, id)
	return nil
}

// List filters, orders and windows the stored properties.
func (r *MemoryPropertyRepository) List(_ context.Context, filter query.PropertyFilter, limit, offset int) ([]*models.Property, error) {
	matched := r.matching(filter)
	filter.Sort(matched)

	if offset >= len(matched) {
		return []*models.Property{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

// Count returns the number of properties passing the filter.
func (r *MemoryPropertyRepository) Count(_ context.Context, filter query.PropertyFilter) (int, error) {
	return len(r.matching(filter)), nil
}

func (r *MemoryPropertyRepository) matching(filter query.PropertyFilter) []*models.Property {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if filter.Matches(p) {
			out = append(out, p.Copy())
		}
	}
	return out
}

// checkReference mirrors the foreign key. Must be called with the lock held.
func (s *MemoryStore) checkReference(p *models.Property) error {
	if p.PortfolioID == nil {
		return nil
	}
	if _, ok := s.portfolios[*p.PortfolioID]; !ok {
		return apperrors.NewValidationError(validation.FieldErrors{
			"portfolio": {"Referenced portfolio does not exist."},
		})
	}
	return nil
}
