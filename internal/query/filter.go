// Package query turns property list query parameters into a filter, an
// ordering and a page request.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/validation"
)

// Query parameter names.
const (
	ParamPortfolio = "portfolio"
	ParamInBBox    = "in_bbox"
	ParamOrdering  = "ordering"
	ParamPage      = "page"
	ParamPageSize  = "page_size"
)

// OrderingFields is the allow-list of sortable property fields.
var OrderingFields = []string{"id", "name", "estimated_value", "relevant_risks", "handled_risks"}

// DefaultOrdering is applied when no valid ordering is requested.
var DefaultOrdering = []Ordering{{Field: "id"}}

// Ordering is one sort key.
type Ordering struct {
	Field      string
	Descending bool
}

func (o Ordering) String() string {
	if o.Descending {
		return "-" + o.Field
	}
	return o.Field
}

// PropertyFilter restricts the property collection. Nil members do not filter.
type PropertyFilter struct {
	PortfolioID *int64
	BBox        *orb.Bound
	Ordering    []Ordering
}

// PropertyQuery is a parsed property list request.
type PropertyQuery struct {
	Filter PropertyFilter
	Page   PageRequest
}

// ParsePropertyQuery parses list parameters. Malformed filters are returned as
// validation.FieldErrors keyed by parameter name.
func ParsePropertyQuery(values url.Values, opts PageOptions) (*PropertyQuery, error) {
	errs := make(validation.FieldErrors)
	q := &PropertyQuery{}

	if raw, ok := lookup(values, ParamPortfolio); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			errs.Add(ParamPortfolio, "A valid integer is required.")
		} else {
			q.Filter.PortfolioID = &id
		}
	}

	if raw, ok := lookup(values, ParamInBBox); ok {
		bound, err := ParseBBox(raw)
		if err != nil {
			errs.Add(ParamInBBox, err.Error())
		} else {
			q.Filter.BBox = &bound
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	q.Filter.Ordering = ParseOrdering(values.Get(ParamOrdering))

	page, err := ParsePageRequest(values, opts)
	if err != nil {
		return nil, err
	}
	q.Page = page

	return q, nil
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat". Swapped corners are
// normalized rather than rejected.
func ParseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("Invalid bbox string supplied for parameter %s", ParamInBBox)
	}

	var coords [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return orb.Bound{}, fmt.Errorf("Invalid bbox string supplied for parameter %s", ParamInBBox)
		}
		coords[i] = v
	}

	// Either pair of opposite corners describes the same box.
	return orb.Bound{
		Min: orb.Point{min(coords[0], coords[2]), min(coords[1], coords[3])},
		Max: orb.Point{max(coords[0], coords[2]), max(coords[1], coords[3])},
	}, nil
}

// ParseOrdering parses a comma separated ordering list. Fields outside the
// allow-list are dropped; if nothing remains the default ordering is used.
// A non-id ordering gets id appended so pages are stable.
func ParseOrdering(raw string) []Ordering {
	var out []Ordering
	seen := make(map[string]bool)
	hasID := false

	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		o := Ordering{Field: term}
		if strings.HasPrefix(term, "-") {
			o = Ordering{Field: term[1:], Descending: true}
		}
		if !allowedOrdering(o.Field) || seen[o.Field] {
			continue
		}
		seen[o.Field] = true
		if o.Field == "id" {
			hasID = true
		}
		out = append(out, o)
	}

	if len(out) == 0 {
		return DefaultOrdering
	}
	if !hasID {
		out = append(out, Ordering{Field: "id"})
	}
	return out
}

// Matches reports whether p passes the filter.
func (f PropertyFilter) Matches(p *models.Property) bool {
	if f.PortfolioID != nil && !p.InPortfolio(*f.PortfolioID) {
		return false
	}
	if f.BBox != nil && !f.BBox.Contains(p.Location) {
		return false
	}
	return true
}

// Sort orders properties in place using the filter's ordering.
func (f PropertyFilter) Sort(props []*models.Property) {
	ordering := f.Ordering
	if len(ordering) == 0 {
		ordering = DefaultOrdering
	}
	sort.SliceStable(props, func(i, j int) bool {
		for _, o := range ordering {
			c := compare(props[i], props[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b *models.Property, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "estimated_value":
		return cmpInt64(a.EstimatedValue, b.EstimatedValue)
	case "relevant_risks":
		return cmpInt64(int64(a.RelevantRisks), int64(b.RelevantRisks))
	case "handled_risks":
		return cmpInt64(int64(a.HandledRisks), int64(b.HandledRisks))
	default:
		return cmpInt64(a.ID, b.ID)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func allowedOrdering(field string) bool {
	for _, f := range OrderingFields {
		if f == field {
			return true
		}
	}
	return false
}

// lookup returns a parameter only when it is present and non-empty.
func lookup(values url.Values, key string) (string, bool) {
	v := values.Get(key)
	return v, v != ""
}
