package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRequest(t *testing.T) {
	opts := PageOptions{DefaultPageSize: 10, MaxPageSize: 100}

	tests := []struct {
		name     string
		values   url.Values
		expected PageRequest
		err      error
	}{
		{name: "defaults", values: url.Values{}, expected: PageRequest{Number: 1, Size: 10}},
		{name: "explicit size", values: url.Values{"page_size": {"100"}}, expected: PageRequest{Number: 1, Size: 100}},
		{name: "size capped", values: url.Values{"page_size": {"200"}}, expected: PageRequest{Number: 1, Size: 100}},
		{name: "bad size falls back", values: url.Values{"page_size": {"-3"}}, expected: PageRequest{Number: 1, Size: 10}},
		{name: "non-numeric size falls back", values: url.Values{"page_size": {"lots"}}, expected: PageRequest{Number: 1, Size: 10}},
		{name: "overflowing size capped", values: url.Values{"page_size": {"99999999999999999999"}}, expected: PageRequest{Number: 1, Size: 100}},
		{name: "overflowing negative size falls back", values: url.Values{"page_size": {"-99999999999999999999"}}, expected: PageRequest{Number: 1, Size: 10}},
		{name: "last", values: url.Values{"page": {"last"}}, expected: PageRequest{Number: 1, Last: true, Size: 10}},
		{name: "page zero", values: url.Values{"page": {"0"}}, err: ErrInvalidPage},
		{name: "page text", values: url.Values{"page": {"two"}}, err: ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParsePageRequest(tt.values, opts)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestResolve(t *testing.T) {
	page, err := PageRequest{Number: 1, Size: 100}.Resolve(150)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, Size: 100, Count: 150, Pages: 2}, page)
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrevious())
	assert.Equal(t, 0, page.Offset())

	page, err = PageRequest{Last: true, Size: 100}.Resolve(150)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 100, page.Offset())

	// The first page of an empty collection exists.
	page, err = PageRequest{Number: 1, Size: 10}.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pages)

	_, err = PageRequest{Number: 3, Size: 100}.Resolve(150)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestPageLinks(t *testing.T) {
	base, err := url.Parse("http://example.com/api/properties/?page=2&page_size=10&portfolio=1")
	require.NoError(t, err)

	page := Page{Number: 2, Size: 10, Count: 35, Pages: 4}
	require.NotNil(t, page.NextURL(base))
	assert.Equal(t, "http://example.com/api/properties/?page=3&page_size=10&portfolio=1", *page.NextURL(base))
	assert.Equal(t, "http://example.com/api/properties/?page_size=10&portfolio=1", *page.PreviousURL(base))

	page.Number = 3
	assert.Equal(t, "http://example.com/api/properties/?page=2&page_size=10&portfolio=1", *page.PreviousURL(base))

	page.Number = 4
	assert.Nil(t, page.NextURL(base))
	assert.Nil(t, page.NextURL(nil))
}
