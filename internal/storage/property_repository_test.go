package storage

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyWhere(t *testing.T) {
	id := int64(3)
	bbox := orb.Bound{Min: orb.Point{10.7, 59.9}, Max: orb.Point{10.8, 60.0}}

	tests := []struct {
		name     string
		filter   query.PropertyFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{name: "no filter", wantSQL: "", wantArgs: nil},
		{
			name:     "portfolio",
			filter:   query.PropertyFilter{PortfolioID: &id},
			wantSQL:  " WHERE portfolio_id = $1",
			wantArgs: []interface{}{int64(3)},
		},
		{
			name:     "portfolio and bbox",
			filter:   query.PropertyFilter{PortfolioID: &id, BBox: &bbox},
			wantSQL:  " WHERE portfolio_id = $1 AND ST_Intersects(location, ST_MakeEnvelope($2, $3, $4, $5, 4326))",
			wantArgs: []interface{}{int64(3), 10.7, 59.9, 10.8, 60.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := propertyWhere(tt.filter)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "id ASC", orderBy(nil))
	assert.Equal(t, "estimated_value DESC, name ASC, id ASC",
		orderBy(query.ParseOrdering("-estimated_value,name")))
	assert.Equal(t, "id ASC", orderBy([]query.Ordering{{Field: "location"}}))
}

func TestGuard_RejectsInvalidEntity(t *testing.T) {
	p := validProperty(nil)
	p.HandledRisks = p.RelevantRisks + 1

	err := guard(p)
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "INTERNAL_ERROR", catErr.Code)
	assert.Equal(t, 500, catErr.StatusCode)
}

func validProperty(portfolioID *int64) *models.Property {
	return &models.Property{
		PortfolioID:        portfolioID,
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
}
