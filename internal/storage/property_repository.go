package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
)

const propertyColumns = `
	id, portfolio_id, name, address, zip_code, city,
	ST_X(location), ST_Y(location),
	estimated_value, relevant_risks, handled_risks, total_financial_risk`

// orderColumns maps the public ordering names to SQL columns.
var orderColumns = map[string]string{
	"id":              "id",
	"name":            "name",
	"estimated_value": "estimated_value",
	"relevant_risks":  "relevant_risks",
	"handled_risks":   "handled_risks",
}

// PropertyRepository handles property data persistence
type PropertyRepository struct {
	db *PostgresDB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *PostgresDB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create inserts a property and fills in its id.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if err := guard(p); err != nil {
		return err
	}

	q := `
		INSERT INTO properties (
			portfolio_id, name, address, zip_code, city, location,
			estimated_value, relevant_risks, handled_risks, total_financial_risk
		)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326), $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.Pool().QueryRow(ctx, q,
		p.PortfolioID,
		p.Name,
		p.Address,
		p.ZipCode,
		p.City,
		p.Location.Lon(),
		p.Location.Lat(),
		p.EstimatedValue,
		p.RelevantRisks,
		p.HandledRisks,
		p.TotalFinancialRisk,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	return nil
}

// GetByID retrieves a property by ID
func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(r.db.Pool().QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("property %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return p, nil
}

// Update replaces every writable column of an existing property.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	if err := guard(p); err != nil {
		return err
	}

	q := `
		UPDATE properties
		SET portfolio_id = $2, name = $3, address = $4, zip_code = $5, city = $6,
			location = ST_SetSRID(ST_MakePoint($7, $8), 4326),
			estimated_value = $9, relevant_risks = $10, handled_risks = $11,
			total_financial_risk = $12
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, q,
		p.ID,
		p.PortfolioID,
		p.Name,
		p.Address,
		p.ZipCode,
		p.City,
		p.Location.Lon(),
		p.Location.Lat(),
		p.EstimatedValue,
		p.RelevantRisks,
		p.HandledRisks,
		p.TotalFinancialRisk,
	)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("property %d: %w", p.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a property.
func (r *PropertyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("property %d: %w", id, ErrNotFound)
	}

	return nil
}

// List returns one window of the filtered, ordered collection.
func (r *PropertyRepository) List(ctx context.Context, filter query.PropertyFilter, limit, offset int) ([]*models.Property, error) {
	where, args := propertyWhere(filter)

	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM properties%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		propertyColumns, where, orderBy(filter.Ordering), len(args)-1, len(args))

	rows, err := r.db.Pool().Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

// Count returns the size of the filtered collection.
func (r *PropertyRepository) Count(ctx context.Context, filter query.PropertyFilter) (int, error) {
	where, args := propertyWhere(filter)

	var count int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM properties`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}

	return count, nil
}

// propertyWhere builds the WHERE clause for a filter. The bounding box test
// is inclusive of its edges.
func propertyWhere(filter query.PropertyFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.PortfolioID != nil {
		args = append(args, *filter.PortfolioID)
		conditions = append(conditions, fmt.Sprintf("portfolio_id = $%d", len(args)))
	}

	if filter.BBox != nil {
		b := filter.BBox
		args = append(args, b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"ST_Intersects(location, ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326))", n-3, n-2, n-1, n))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderBy(ordering []query.Ordering) string {
	if len(ordering) == 0 {
		ordering = query.DefaultOrdering
	}

	terms := make([]string, 0, len(ordering))
	for _, o := range ordering {
		col, ok := orderColumns[o.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}

	if len(terms) == 0 {
		return "id ASC"
	}
	return strings.Join(terms, ", ")
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.PortfolioID,
		&p.Name,
		&p.Address,
		&p.ZipCode,
		&p.City,
		&p.Location[0],
		&p.Location[1],
		&p.EstimatedValue,
		&p.RelevantRisks,
		&p.HandledRisks,
		&p.TotalFinancialRisk,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProperties(rows pgx.Rows) ([]*models.Property, error) {
	props := make([]*models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return props, nil
}
