package query

import (
	"net/url"
	"testing"

	"github.com/paulmach/orb"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestParseBBox(t *testing.T) {
	bound, err := ParseBBox("10.7, 59.9,10.8,60.0")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{10.7, 59.9}, bound.Min)
	assert.Equal(t, orb.Point{10.8, 60.0}, bound.Max)

	invalid := []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d", "1,2,NaN,4"}
	for _, raw := range invalid {
		_, err := ParseBBox(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseBBox_SwappedCorners(t *testing.T) {
	for _, raw := range []string{"10.8,60.0,10.7,59.9", "10.8,59.9,10.7,60.0", "10.7,60.0,10.8,59.9"} {
		bound, err := ParseBBox(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, orb.Point{10.7, 59.9}, bound.Min, raw)
		assert.Equal(t, orb.Point{10.8, 60.0}, bound.Max, raw)
	}
}

func TestBBoxInclusion(t *testing.T) {
	bound, err := ParseBBox("10.7,59.9,10.8,60.0")
	require.NoError(t, err)
	f := PropertyFilter{BBox: &bound}

	assert.True(t, f.Matches(&models.Property{Location: orb.Point{10.7522, 59.9139}}))
	assert.False(t, f.Matches(&models.Property{Location: orb.Point{5.3242, 60.3913}}))
	// Edges count as inside.
	assert.True(t, f.Matches(&models.Property{Location: orb.Point{10.7, 60.0}}))
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{raw: "", expected: "id"},
		{raw: "secret", expected: "id"},
		{raw: "-estimated_value", expected: "-estimated_value,id"},
		{raw: "-estimated_value,name", expected: "-estimated_value,name,id"},
		{raw: "name,-id", expected: "name,-id"},
		{raw: "name,name,bogus", expected: "name,id"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			terms := ParseOrdering(tt.raw)
			out := ""
			for i, o := range terms {
				if i > 0 {
					out += ","
				}
				out += o.String()
			}
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestParsePropertyQuery(t *testing.T) {
	q, err := ParsePropertyQuery(url.Values{
		"portfolio": {"3"},
		"in_bbox":   {"10.7,59.9,10.8,60.0"},
		"ordering":  {"-relevant_risks"},
		"page":      {"2"},
		"page_size": {"25"},
	}, DefaultPageOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(3), *q.Filter.PortfolioID)
	require.NotNil(t, q.Filter.BBox)
	assert.Equal(t, []Ordering{{Field: "relevant_risks", Descending: true}, {Field: "id"}}, q.Filter.Ordering)
	assert.Equal(t, PageRequest{Number: 2, Size: 25}, q.Page)

	// Empty filters are ignored.
	q, err = ParsePropertyQuery(url.Values{"portfolio": {""}, "in_bbox": {""}}, DefaultPageOptions())
	require.NoError(t, err)
	assert.Nil(t, q.Filter.PortfolioID)
	assert.Nil(t, q.Filter.BBox)
}

func TestParsePropertyQuery_Invalid(t *testing.T) {
	_, err := ParsePropertyQuery(url.Values{"portfolio": {"x"}, "in_bbox": {"1,2"}}, DefaultPageOptions())
	fieldErrs, ok := err.(validation.FieldErrors)
	require.True(t, ok, "got %T", err)
	assert.True(t, fieldErrs.Has(ParamPortfolio))
	assert.True(t, fieldErrs.Has(ParamInBBox))

	_, err = ParsePropertyQuery(url.Values{"page": {"0"}}, DefaultPageOptions())
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestFilterMatchesPortfolio(t *testing.T) {
	f := PropertyFilter{PortfolioID: int64Ptr(2)}

	assert.True(t, f.Matches(&models.Property{PortfolioID: int64Ptr(2)}))
	assert.False(t, f.Matches(&models.Property{PortfolioID: int64Ptr(3)}))
	assert.False(t, f.Matches(&models.Property{}))
	assert.True(t, PropertyFilter{}.Matches(&models.Property{}))
}

func TestFilterSort(t *testing.T) {
	props := []*models.Property{
		{ID: 3, Name: "B", EstimatedValue: 10},
		{ID: 1, Name: "A", EstimatedValue: 30},
		{ID: 2, Name: "C", EstimatedValue: 10},
	}

	ids := func() []int64 {
		out := make([]int64, len(props))
		for i, p := range props {
			out[i] = p.ID
		}
		return out
	}

	PropertyFilter{}.Sort(props)
	assert.Equal(t, []int64{1, 2, 3}, ids())

	PropertyFilter{Ordering: ParseOrdering("estimated_value")}.Sort(props)
	assert.Equal(t, []int64{2, 3, 1}, ids())

	PropertyFilter{Ordering: ParseOrdering("-estimated_value,-name")}.Sort(props)
	assert.Equal(t, []int64{1, 2, 3}, ids())
}
