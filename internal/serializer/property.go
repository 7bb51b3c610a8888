// Package serializer maps entities to and from their wire representation:
// GeoJSON features for properties and plain JSON for portfolios.
package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/validation"
)

// ErrMalformedJSON is returned when a request body is not a JSON object.
var ErrMalformedJSON = errors.New("malformed JSON body")

// Property wire field names.
const (
	FieldPortfolio          = "portfolio"
	FieldName               = "name"
	FieldAddress            = "address"
	FieldZipCode            = "zip_code"
	FieldCity               = "city"
	FieldLocation           = "location"
	FieldEstimatedValue     = "estimated_value"
	FieldRelevantRisks      = "relevant_risks"
	FieldHandledRisks       = "handled_risks"
	FieldTotalFinancialRisk = "total_financial_risk"
)

// PropertyFeature renders a property as a GeoJSON Feature. The id sits on the
// feature; every other field except the geometry goes into properties.
func PropertyFeature(p *models.Property) *geojson.Feature {
	f := geojson.NewFeature(p.Location)
	f.ID = p.ID

	var portfolio interface{}
	if p.PortfolioID != nil {
		portfolio = *p.PortfolioID
	}

	f.Properties = geojson.Properties{
		FieldPortfolio:          portfolio,
		FieldName:               p.Name,
		FieldAddress:            p.Address,
		FieldZipCode:            p.ZipCode,
		FieldCity:               p.City,
		FieldEstimatedValue:     p.EstimatedValue,
		FieldRelevantRisks:      p.RelevantRisks,
		FieldHandledRisks:       p.HandledRisks,
		FieldTotalFinancialRisk: p.TotalFinancialRisk,
	}
	return f
}

// PropertyFeatures renders a slice of properties. It never returns nil.
func PropertyFeatures(props []*models.Property) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(props))
	for _, p := range props {
		features = append(features, PropertyFeature(p))
	}
	return features
}

// PropertyPage renders one page of properties as a FeatureCollection carrying
// count, next and previous members.
func PropertyPage(props []*models.Property, page query.Page, base *url.URL) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = PropertyFeatures(props)

	var next, previous interface{}
	if link := page.NextURL(base); link != nil {
		next = *link
	}
	if link := page.PreviousURL(base); link != nil {
		previous = *link
	}

	fc.ExtraMembers = geojson.Properties{
		"count":    page.Count,
		"next":     next,
		"previous": previous,
	}
	return fc
}

// PropertyPayload is a decoded, not yet validated property write. Fields that
// were absent from the body are left unset; fields that failed to decode are
// recorded in Errors.
type PropertyPayload struct {
	Portfolio          optional[*int64]
	Name               optional[string]
	Address            optional[string]
	ZipCode            optional[string]
	City               optional[string]
	Location           optional[orb.Point]
	EstimatedValue     optional[int64]
	RelevantRisks      optional[int64]
	HandledRisks       optional[int64]
	TotalFinancialRisk optional[int64]

	Errors validation.FieldErrors
}

type optional[T any] struct {
	Set   bool
	Value T
}

func (o *optional[T]) set(v T) {
	o.Set = true
	o.Value = v
}

// DecodeProperty parses a property body. Both the Feature form
// ({"type":"Feature","geometry":...,"properties":{...}}) and the flat form with a
// "location" geometry member are accepted. Read-only members are ignored.
func DecodeProperty(body []byte) (*PropertyPayload, error) {
	top, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	fields := top
	geometry, hasGeometry := top[FieldLocation]
	if isFeature(top) {
		fields = map[string]json.RawMessage{}
		if raw, ok := top["properties"]; ok && !isNull(raw) {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, fmt.Errorf("%w: properties must be an object", ErrMalformedJSON)
			}
		}
		geometry, hasGeometry = top["geometry"]
	}

	payload := &PropertyPayload{Errors: make(validation.FieldErrors)}

	if raw, ok := fields[FieldPortfolio]; ok {
		if id, msg := decodeForeignKey(raw); msg != "" {
			payload.Errors.Add(FieldPortfolio, msg)
		} else {
			payload.Portfolio.set(id)
		}
	}

	decodeStringField(fields, FieldName, &payload.Name, payload.Errors)
	decodeStringField(fields, FieldAddress, &payload.Address, payload.Errors)
	decodeStringField(fields, FieldZipCode, &payload.ZipCode, payload.Errors)
	decodeStringField(fields, FieldCity, &payload.City, payload.Errors)

	decodeIntField(fields, FieldEstimatedValue, &payload.EstimatedValue, payload.Errors)
	decodeIntField(fields, FieldRelevantRisks, &payload.RelevantRisks, payload.Errors)
	decodeIntField(fields, FieldHandledRisks, &payload.HandledRisks, payload.Errors)
	decodeIntField(fields, FieldTotalFinancialRisk, &payload.TotalFinancialRisk, payload.Errors)

	if hasGeometry {
		if point, msg := decodePoint(geometry); msg != "" {
			payload.Errors.Add(FieldLocation, msg)
		} else {
			payload.Location.set(point)
		}
	}

	return payload, nil
}

// Apply copies the decoded fields onto dst. Unless partial is set, every
// required field must be present. The returned errors include decode errors.
func (pl *PropertyPayload) Apply(dst *models.Property, partial bool) validation.FieldErrors {
	errs := make(validation.FieldErrors)
	for field, msgs := range pl.Errors {
		errs[field] = append(errs[field], msgs...)
	}

	// portfolio is nullable and never required.
	if pl.Portfolio.Set {
		dst.PortfolioID = pl.Portfolio.Value
	}

	applyString(&dst.Name, pl.Name, FieldName, partial, errs)
	applyString(&dst.Address, pl.Address, FieldAddress, partial, errs)
	applyString(&dst.ZipCode, pl.ZipCode, FieldZipCode, partial, errs)
	applyString(&dst.City, pl.City, FieldCity, partial, errs)

	applyInt64(&dst.EstimatedValue, pl.EstimatedValue, FieldEstimatedValue, partial, errs)
	applyInt64(&dst.TotalFinancialRisk, pl.TotalFinancialRisk, FieldTotalFinancialRisk, partial, errs)

	var relevant, handled int64 = int64(dst.RelevantRisks), int64(dst.HandledRisks)
	applyInt64(&relevant, pl.RelevantRisks, FieldRelevantRisks, partial, errs)
	applyInt64(&handled, pl.HandledRisks, FieldHandledRisks, partial, errs)
	dst.RelevantRisks = clampToInt(relevant)
	dst.HandledRisks = clampToInt(handled)

	switch {
	case pl.Location.Set:
		dst.Location = pl.Location.Value
	case !partial && !errs.Has(FieldLocation):
		errs.Add(FieldLocation, validation.MsgRequired)
	}

	return errs
}

func applyString(dst *string, v optional[string], field string, partial bool, errs validation.FieldErrors) {
	switch {
	case v.Set:
		*dst = v.Value
	case !partial && !errs.Has(field):
		errs.Add(field, validation.MsgRequired)
	}
}

func applyInt64(dst *int64, v optional[int64], field string, partial bool, errs validation.FieldErrors) {
	switch {
	case v.Set:
		*dst = v.Value
	case !partial && !errs.Has(field):
		errs.Add(field, validation.MsgRequired)
	}
}

// clampToInt keeps out-of-range counts out of range after narrowing, so the
// bound checks still reject them.
func clampToInt(v int64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}

func decodeStringField(fields map[string]json.RawMessage, name string, dst *optional[string], errs validation.FieldErrors) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	if isNull(raw) {
		errs.Add(name, validation.MsgNull)
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		dst.set(s)
		return
	}

	// Numbers are accepted and kept in their literal form.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		dst.set(n.String())
		return
	}

	errs.Add(name, "Not a valid string.")
}

func decodeIntField(fields map[string]json.RawMessage, name string, dst *optional[int64], errs validation.FieldErrors) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	if isNull(raw) {
		errs.Add(name, validation.MsgNull)
		return
	}

	v, ok := parseInteger(raw)
	if !ok {
		errs.Add(name, "A valid integer is required.")
		return
	}
	dst.set(v)
}

func decodeForeignKey(raw json.RawMessage) (*int64, string) {
	if isNull(raw) {
		return nil, ""
	}
	v, ok := parseInteger(raw)
	if !ok {
		return nil, fmt.Sprintf("Incorrect type. Expected pk value, received %s.", jsonKind(raw))
	}
	return &v, ""
}

// parseInteger accepts JSON numbers and numeric strings with an integral value.
func parseInteger(raw json.RawMessage) (int64, bool) {
	var text string
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		text = n.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}

	text = strings.TrimSpace(text)
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, true
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func decodePoint(raw json.RawMessage) (orb.Point, string) {
	if isNull(raw) {
		return orb.Point{}, validation.MsgNull
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return orb.Point{}, "Invalid GeoJSON geometry."
	}

	point, ok := g.Geometry().(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Sprintf("Expected a Point geometry, received %s.", g.Type)
	}

	// orb fills missing coordinates with zero, so the arity is checked here.
	var shape struct {
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil || len(shape.Coordinates) < 2 || len(shape.Coordinates) > 3 {
		return orb.Point{}, "A Point needs longitude and latitude coordinates."
	}

	return point, ""
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedJSON)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedJSON)
	}
	return top, nil
}

func isFeature(top map[string]json.RawMessage) bool {
	raw, ok := top["type"]
	if !ok {
		return false
	}
	var t string
	return json.Unmarshal(raw, &t) == nil && t == "Feature"
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '"':
		return "str"
	case '{':
		return "dict"
	case '[':
		return "list"
	case 't', 'f':
		return "bool"
	default:
		return "number"
	}
}
