// Package service implements the portfolio and property use cases on top of
// the repositories.
package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/storage"
	"github.com/property-portfolio/internal/validation"
)

// Repository interfaces for dependency injection

// PortfolioRepository interface for portfolio data operations
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetByID(ctx context.Context, id int64) (*models.Portfolio, error)
	List(ctx context.Context) ([]*models.Portfolio, error)
	Update(ctx context.Context, portfolio *models.Portfolio) error
	Delete(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// PortfolioChanges applies decoded request fields to a portfolio.
type PortfolioChanges interface {
	Apply(dst *models.Portfolio, partial bool) validation.FieldErrors
}

// PortfolioService handles portfolio management
type PortfolioService struct {
	portfolioRepo PortfolioRepository
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(portfolioRepo PortfolioRepository) *PortfolioService {
	return &PortfolioService{portfolioRepo: portfolioRepo}
}

// List returns every portfolio with its properties.
func (s *PortfolioService) List(ctx context.Context) ([]*models.Portfolio, error) {
	portfolios, err := s.portfolioRepo.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list portfolios", err)
	}
	return portfolios, nil
}

// Get returns one portfolio with its properties.
func (s *PortfolioService) Get(ctx context.Context, id int64) (*models.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("get portfolio", id, err)
	}
	return portfolio, nil
}

// Create validates and stores a new portfolio.
func (s *PortfolioService) Create(ctx context.Context, changes PortfolioChanges) (*models.Portfolio, error) {
	portfolio := &models.Portfolio{}
	if err := validation.CleanWith(portfolio, changes.Apply(portfolio, false)); err != nil {
		return nil, err
	}

	if err := s.portfolioRepo.Create(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"portfolio_id": portfolio.ID,
		"name":         portfolio.Name,
	}).Info("portfolio created")

	return portfolio, nil
}

// Update applies changes to an existing portfolio. With partial set, absent
// fields keep their stored values.
func (s *PortfolioService) Update(ctx context.Context, id int64, changes PortfolioChanges, partial bool) (*models.Portfolio, error) {
	existing, err := s.portfolioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("get portfolio", id, err)
	}

	portfolio := existing.Copy()
	if err := validation.CleanWith(portfolio, changes.Apply(portfolio, partial)); err != nil {
		return nil, err
	}

	if err := s.portfolioRepo.Update(ctx, portfolio); err != nil {
		return nil, s.mapRepoError("update portfolio", id, err)
	}
	portfolio.Properties = existing.Properties

	logging.FromContext(ctx).WithField("portfolio_id", id).Info("portfolio updated")
	return portfolio, nil
}

// Delete removes a portfolio and all of its properties.
func (s *PortfolioService) Delete(ctx context.Context, id int64) error {
	removed, err := s.portfolioRepo.Delete(ctx, id)
	if err != nil {
		return s.mapRepoError("delete portfolio", id, err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"portfolio_id":       id,
		"properties_deleted": removed,
	}).Info("portfolio deleted")

	return nil
}

func (s *PortfolioService) mapRepoError(op string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewNotFoundError("portfolio", id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
