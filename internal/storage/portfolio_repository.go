package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/property-portfolio/internal/models"
)

// PortfolioRepository handles portfolio data persistence
type PortfolioRepository struct {
	db *PostgresDB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *PostgresDB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Create creates a new portfolio and fills in id and created_at.
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if err := guard(portfolio); err != nil {
		return err
	}

	q := `
		INSERT INTO portfolios (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, q, portfolio.Name).Scan(&portfolio.ID, &portfolio.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	portfolio.Properties = []*models.Property{}
	return nil
}

// GetByID retrieves a portfolio by ID together with its properties.
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	q := `
		SELECT id, name, created_at
		FROM portfolios
		WHERE id = $1
	`

	var portfolio models.Portfolio
	err := r.db.Pool().QueryRow(ctx, q, id).Scan(&portfolio.ID, &portfolio.Name, &portfolio.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE portfolio_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio properties: %w", err)
	}
	defer rows.Close()

	portfolio.Properties, err = collectProperties(rows)
	if err != nil {
		return nil, err
	}

	return &portfolio, nil
}

// List returns every portfolio ordered by id. Properties are loaded with one
// extra query and attached to their owners.
func (r *PortfolioRepository) List(ctx context.Context) ([]*models.Portfolio, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT id, name, created_at FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]*models.Portfolio, 0)
	byID := make(map[int64]*models.Portfolio)
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.Properties = []*models.Property{}
		portfolios = append(portfolios, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	if len(portfolios) == 0 {
		return portfolios, nil
	}

	propRows, err := r.db.Pool().Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE portfolio_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio properties: %w", err)
	}
	defer propRows.Close()

	props, err := collectProperties(propRows)
	if err != nil {
		return nil, err
	}
	for _, prop := range props {
		if owner, ok := byID[*prop.PortfolioID]; ok {
			owner.Properties = append(owner.Properties, prop)
		}
	}

	return portfolios, nil
}

// Update renames an existing portfolio. created_at is never written.
func (r *PortfolioRepository) Update(ctx context.Context, portfolio *models.Portfolio) error {
	if err := guard(portfolio); err != nil {
		return err
	}

	q := `
		UPDATE portfolios
		SET name = $2
		WHERE id = $1
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(ctx, q, portfolio.ID, portfolio.Name).Scan(&portfolio.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("portfolio %d: %w", portfolio.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	return nil
}

// Delete removes a portfolio and every property it owns in one transaction.
// It returns the number of properties removed.
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // nolint:errcheck // no-op after commit
	}()

	props, err := tx.Exec(ctx, `DELETE FROM properties WHERE portfolio_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete portfolio properties: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit portfolio delete: %w", err)
	}

	return props.RowsAffected(), nil
}

// Exists reports whether a portfolio with the id exists.
func (r *PortfolioRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM portfolios WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio: %w", err)
	}
	return exists, nil
}
