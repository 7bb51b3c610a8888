package query

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidPage is returned for a page number that is malformed or out of range.
var ErrInvalidPage = errors.New("Invalid page.")

// Page size defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageOptions configures page size handling.
type PageOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPageOptions returns the stock page size settings.
func DefaultPageOptions() PageOptions {
	return PageOptions{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}
}

// PageRequest is the requested page before the collection size is known.
type PageRequest struct {
	Number int
	Last   bool
	Size   int
}

// Page is a resolved page over a collection of Count items.
type Page struct {
	Number int
	Size   int
	Count  int
	Pages  int
}

// ParsePageRequest reads page and page_size. An invalid page_size falls back to
// the default and an oversized one, even past the int range, is capped. An invalid page is ErrInvalidPage.
func ParsePageRequest(values url.Values, opts PageOptions) (PageRequest, error) {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}

	req := PageRequest{Number: 1, Size: opts.DefaultPageSize}

	if raw := strings.TrimSpace(values.Get(ParamPageSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		switch {
		case err == nil && size > 0:
			req.Size = min(size, opts.MaxPageSize)
		case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
			req.Size = opts.MaxPageSize
		}
	}

	if raw := strings.TrimSpace(values.Get(ParamPage)); raw != "" {
		if raw == "last" {
			req.Last = true
			return req, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, ErrInvalidPage
		}
		req.Number = n
	}

	return req, nil
}

// Resolve fixes the page against the collection size. The first page always
// exists, even for an empty collection.
func (r PageRequest) Resolve(count int) (Page, error) {
	size := r.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	pages := 1
	if count > 0 {
		pages = (count + size - 1) / size
	}

	number := r.Number
	if r.Last {
		number = pages
	}
	if number < 1 || number > pages {
		return Page{}, ErrInvalidPage
	}

	return Page{Number: number, Size: size, Count: count, Pages: pages}, nil
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool {
	return p.Number < p.Pages
}

// HasPrevious reports whether a preceding page exists.
func (p Page) HasPrevious() bool {
	return p.Number > 1
}

// NextURL returns the link to the following page, or nil.
func (p Page) NextURL(base *url.URL) *string {
	if base == nil || !p.HasNext() {
		return nil
	}
	link := replaceQueryParam(base, ParamPage, strconv.Itoa(p.Number+1))
	return &link
}

// PreviousURL returns the link to the preceding page, or nil. The link to the
// first page carries no page parameter.
func (p Page) PreviousURL(base *url.URL) *string {
	if base == nil || !p.HasPrevious() {
		return nil
	}
	var link string
	if p.Number == 2 {
		link = removeQueryParam(base, ParamPage)
	} else {
		link = replaceQueryParam(base, ParamPage, strconv.Itoa(p.Number-1))
	}
	return &link
}

func replaceQueryParam(base *url.URL, key, value string) string {
	u := *base
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func removeQueryParam(base *url.URL, key string) string {
	u := *base
	q := u.Query()
	q.Del(key)
	u.RawQuery = q.Encode()
	return u.String()
}
