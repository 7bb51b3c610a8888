package serializer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	p := &models.Portfolio{
		ID:         2,
		Name:       "Oslo Portfolio",
		CreatedAt:  time.Date(2024, 5, 1, 13, 0, 0, 0, oslo),
		Properties: []*models.Property{sampleProperty()},
	}

	data, err := json.Marshal(Portfolio(p))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(2), out["id"])
	assert.Equal(t, "Oslo Portfolio", out["name"])
	assert.Equal(t, "2024-05-01T12:00:00Z", out["created_at"])
	require.Len(t, out["properties"], 1)
	assert.Equal(t, "Feature", out["properties"].([]interface{})[0].(map[string]interface{})["type"])
}

func TestPortfolios_Empty(t *testing.T) {
	data, err := json.Marshal(Portfolios(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = json.Marshal(Portfolio(&models.Portfolio{ID: 1, Name: "Empty"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"properties":[]`)
}

func TestDecodePortfolio(t *testing.T) {
	payload, err := DecodePortfolio([]byte(`{"id": 9, "name": "bergen", "created_at": "2020-01-01T00:00:00Z", "properties": [1, 2]}`))
	require.NoError(t, err)

	p := &models.Portfolio{ID: 3}
	assert.Empty(t, payload.Apply(p, false))
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "bergen", p.Name)
	assert.True(t, p.CreatedAt.IsZero())

	payload, err = DecodePortfolio([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{validation.MsgRequired}, payload.Apply(&models.Portfolio{}, false)[FieldName])
	assert.Empty(t, payload.Apply(&models.Portfolio{}, true))

	_, err = DecodePortfolio([]byte(`"name"`))
	assert.ErrorIs(t, err, ErrMalformedJSON)
}
