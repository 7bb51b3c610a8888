package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/serializer"
	"github.com/property-portfolio/internal/testutil"
	"github.com/property-portfolio/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ PortfolioRepository = (*testutil.MemoryPortfolioRepository)(nil)
	_ PropertyRepository  = (*testutil.MemoryPropertyRepository)(nil)
)

func portfolioChanges(t *testing.T, body string) PortfolioChanges {
	t.Helper()
	payload, err := serializer.DecodePortfolio([]byte(body))
	require.NoError(t, err)
	return payload
}

func newServices() (*testutil.MemoryStore, *PortfolioService, *PropertyService) {
	store := testutil.NewMemoryStore()
	return store,
		NewPortfolioService(store.Portfolios()),
		NewPropertyService(store.Properties(), store.Portfolios())
}

func TestPortfolioService_Create(t *testing.T) {
	_, portfolios, _ := newServices()
	ctx := context.Background()

	p, err := portfolios.Create(ctx, portfolioChanges(t, `{"name":"  oslo portfolio "}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Oslo Portfolio", p.Name)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := portfolios.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oslo Portfolio", got.Name)
	assert.Empty(t, got.Properties)
}

func TestPortfolioService_Create_Invalid(t *testing.T) {
	_, portfolios, _ := newServices()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing name", body: `{}`, message: validation.MsgRequired},
		{name: "blank name", body: `{"name":"   "}`, message: validation.MsgBlank},
		{name: "null name", body: `{"name":null}`, message: validation.MsgNull},
		{name: "too long", body: `{"name":"` + strings.Repeat("a", 101) + `"}`, message: "Ensure this field has no more than 100 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := portfolios.Create(context.Background(), portfolioChanges(t, tt.body))
			var fieldErrs validation.FieldErrors
			require.True(t, errors.As(err, &fieldErrs), "got %v", err)
			assert.Equal(t, []string{tt.message}, fieldErrs["name"])
		})
	}
}

func TestPortfolioService_Update(t *testing.T) {
	_, portfolios, _ := newServices()
	ctx := context.Background()

	created, err := portfolios.Create(ctx, portfolioChanges(t, `{"name":"oslo"}`))
	require.NoError(t, err)

	updated, err := portfolios.Update(ctx, created.ID, portfolioChanges(t, `{"name":"bergen portfolio"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "Bergen Portfolio", updated.Name)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	// A partial update with no fields is a no-op.
	same, err := portfolios.Update(ctx, created.ID, portfolioChanges(t, `{}`), true)
	require.NoError(t, err)
	assert.Equal(t, "Bergen Portfolio", same.Name)

	// A full update with no fields is rejected.
	_, err = portfolios.Update(ctx, created.ID, portfolioChanges(t, `{}`), false)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
}

func TestPortfolioService_NotFound(t *testing.T) {
	_, portfolios, _ := newServices()
	ctx := context.Background()

	_, err := portfolios.Get(ctx, 99)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))

	_, err = portfolios.Update(ctx, 99, portfolioChanges(t, `{"name":"x"}`), false)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))

	err = portfolios.Delete(ctx, 99)
	assert.Equal(t, 404, apperrors.GetHTTPStatusCode(err))
}

func TestPortfolioService_DeleteCascades(t *testing.T) {
	store, portfolios, properties := newServices()
	ctx := context.Background()

	doomed, err := portfolios.Create(ctx, portfolioChanges(t, `{"name":"doomed"}`))
	require.NoError(t, err)
	kept, err := portfolios.Create(ctx, portfolioChanges(t, `{"name":"kept"}`))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := properties.Create(ctx, propertyChanges(t, propertyBody(doomed.ID, 4, 2)))
		require.NoError(t, err)
	}
	_, err = properties.Create(ctx, propertyChanges(t, propertyBody(kept.ID, 4, 2)))
	require.NoError(t, err)

	require.NoError(t, portfolios.Delete(ctx, doomed.ID))
	assert.Equal(t, 1, store.PropertyCount())

	list, err := portfolios.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)
	assert.Len(t, list[0].Properties, 1)
}
