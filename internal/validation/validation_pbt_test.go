package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRiskRuleProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("handled <= relevant is accepted", prop.ForAll(
		func(relevant, delta int) bool {
			return CheckRisks(relevant-delta%(relevant+1), relevant) == nil
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.Property("handled > relevant is rejected", prop.ForAll(
		func(relevant, excess int) bool {
			return CheckRisks(relevant+excess, relevant) != nil
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func TestZipCodeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any four digits are a valid zip code", prop.ForAll(
		func(n int) bool {
			return Struct(&sample{Name: "a", ZipCode: fmt.Sprintf("%04d", n)})["zip_code"] == nil
		},
		gen.IntRange(0, 9999),
	))

	properties.Property("other lengths are rejected", prop.ForAll(
		func(digits string) bool {
			if len(digits) == 4 {
				return true
			}
			return Struct(&sample{Name: "a", ZipCode: digits}).Has("zip_code")
		},
		gen.NumString(),
	))

	properties.TestingRun(t)
}

func TestCoordinateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("in-range coordinates are accepted", prop.ForAll(
		func(lon, lat float64) bool {
			return Point("location", lon, lat) == nil
		},
		gen.Float64Range(-180, 180),
		gen.Float64Range(-90, 90),
	))

	properties.Property("latitude beyond the poles is rejected", prop.ForAll(
		func(lon, over float64) bool {
			return Point("location", lon, 90+over).Has("location") &&
				Point("location", lon, -90-over).Has("location")
		},
		gen.Float64Range(-180, 180),
		gen.Float64Range(0.000001, 1000),
	))

	properties.TestingRun(t)
}

func TestTitleCaseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("title casing is idempotent", prop.ForAll(
		func(s string) bool {
			once := TitleCase(s)
			return TitleCase(once) == once
		},
		gen.AlphaString(),
	))

	properties.Property("result carries no surrounding whitespace", prop.ForAll(
		func(s string) bool {
			out := TitleCase("  " + s + "\t")
			return out == strings.TrimSpace(out)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
