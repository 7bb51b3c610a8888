package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/storage"
	"github.com/property-portfolio/internal/validation"
)

// PropertyRepository interface for property data operations
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id int64) (*models.Property, error)
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter query.PropertyFilter, limit, offset int) ([]*models.Property, error)
	Count(ctx context.Context, filter query.PropertyFilter) (int, error)
}

// PortfolioLookup is the slice of the portfolio repository the property
// service needs.
type PortfolioLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// PropertyChanges applies decoded request fields to a property.
type PropertyChanges interface {
	Apply(dst *models.Property, partial bool) validation.FieldErrors
}

// PropertyPage is one page of a property listing.
type PropertyPage struct {
	Properties []*models.Property
	Page       query.Page
}

// PropertyService handles property management
type PropertyService struct {
	propertyRepo PropertyRepository
	portfolios   PortfolioLookup
}

// NewPropertyService creates a new property service
func NewPropertyService(propertyRepo PropertyRepository, portfolios PortfolioLookup) *PropertyService {
	return &PropertyService{propertyRepo: propertyRepo, portfolios: portfolios}
}

// List returns the requested page of the filtered collection.
func (s *PropertyService) List(ctx context.Context, q *query.PropertyQuery) (*PropertyPage, error) {
	count, err := s.propertyRepo.Count(ctx, q.Filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count properties", err)
	}

	page, err := q.Page.Resolve(count)
	if err != nil {
		return nil, err
	}

	props, err := s.propertyRepo.List(ctx, q.Filter, page.Size, page.Offset())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list properties", err)
	}

	return &PropertyPage{Properties: props, Page: page}, nil
}

// Get returns one property.
func (s *PropertyService) Get(ctx context.Context, id int64) (*models.Property, error) {
	property, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("get property", id, err)
	}
	return property, nil
}

// Create validates and stores a new property.
func (s *PropertyService) Create(ctx context.Context, changes PropertyChanges) (*models.Property, error) {
	property := &models.Property{}
	if err := s.clean(ctx, property, changes.Apply(property, false)); err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"property_id":  property.ID,
		"portfolio_id": property.PortfolioID,
	}).Info("property created")

	return property, nil
}

// Update applies changes to an existing property. The stored values fill in
// anything a partial update leaves out, so the risk rule always sees the
// merged record.
func (s *PropertyService) Update(ctx context.Context, id int64, changes PropertyChanges, partial bool) (*models.Property, error) {
	existing, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("get property", id, err)
	}

	property := existing.Copy()
	if err := s.clean(ctx, property, changes.Apply(property, partial)); err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Update(ctx, property); err != nil {
		return nil, s.mapRepoError("update property", id, err)
	}

	logging.FromContext(ctx).WithField("property_id", id).Info("property updated")
	return property, nil
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	if err := s.propertyRepo.Delete(ctx, id); err != nil {
		return s.mapRepoError("delete property", id, err)
	}

	logging.FromContext(ctx).WithField("property_id", id).Info("property deleted")
	return nil
}

// clean resolves the portfolio reference, then normalizes and validates.
func (s *PropertyService) clean(ctx context.Context, property *models.Property, errs validation.FieldErrors) error {
	if property.PortfolioID != nil && !errs.Has("portfolio") {
		exists, err := s.portfolios.Exists(ctx, *property.PortfolioID)
		if err != nil {
			return apperrors.NewDatabaseError("check portfolio", err)
		}
		if !exists {
			errs.Add("portfolio", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *property.PortfolioID))
		}
	}

	return validation.CleanWith(property, errs)
}

func (s *PropertyService) mapRepoError(op string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewNotFoundError("property", id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
