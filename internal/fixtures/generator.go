// Package fixtures generates demo portfolios and properties across Norway
// and the rest of Europe.
package fixtures

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/models"
	"github.com/property-portfolio/internal/validation"
)

// Default property counts.
const (
	DefaultNorwegian = 50
	DefaultEuropean  = 450
)

// PortfolioCreator persists portfolios.
type PortfolioCreator interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
}

// PropertyCreator persists properties.
type PropertyCreator interface {
	Create(ctx context.Context, property *models.Property) error
}

// Options controls a generator run. A zero Seed picks one from the clock.
type Options struct {
	Seed      uint64
	Norwegian int
	European  int
}

// Result summarizes a generator run.
type Result struct {
	Seed       uint64
	Portfolios int
	Properties int
}

type city struct {
	name      string
	lat, lon  float64
	radius    float64
	portfolio int
}

// Portfolio indexes into portfolioNames.
const (
	osloPortfolio = iota
	bergenPortfolio
	trondheimPortfolio
	stavangerPortfolio
	nordicPortfolio
	centralEuropePortfolio
	southernEuropePortfolio
)

var portfolioNames = []string{
	"Oslo Portfolio",
	"Bergen Portfolio",
	"Trondheim Portfolio",
	"Stavanger Portfolio",
	"Nordic Portfolio",
	"Central Europe Portfolio",
	"Southern Europe Portfolio",
}

var norwegianCities = []city{
	{name: "Oslo", lat: 59.9139, lon: 10.7522, radius: 0.05, portfolio: osloPortfolio},
	{name: "Bergen", lat: 60.3913, lon: 5.3242, radius: 0.04, portfolio: bergenPortfolio},
	{name: "Trondheim", lat: 63.4305, lon: 10.3951, radius: 0.04, portfolio: trondheimPortfolio},
	{name: "Stavanger", lat: 58.9700, lon: 5.7331, radius: 0.03, portfolio: stavangerPortfolio},
}

var europeanCities = []city{
	{name: "Stockholm", lat: 59.3293, lon: 18.0686, radius: 0.06, portfolio: nordicPortfolio},
	{name: "Copenhagen", lat: 55.6761, lon: 12.5683, radius: 0.05, portfolio: nordicPortfolio},
	{name: "Helsinki", lat: 60.1699, lon: 24.9384, radius: 0.05, portfolio: nordicPortfolio},
	{name: "Berlin", lat: 52.5200, lon: 13.4050, radius: 0.08, portfolio: centralEuropePortfolio},
	{name: "Munich", lat: 48.1351, lon: 11.5820, radius: 0.06, portfolio: centralEuropePortfolio},
	{name: "Amsterdam", lat: 52.3676, lon: 4.9041, radius: 0.05, portfolio: centralEuropePortfolio},
	{name: "Brussels", lat: 50.8503, lon: 4.3517, radius: 0.05, portfolio: centralEuropePortfolio},
	{name: "Paris", lat: 48.8566, lon: 2.3522, radius: 0.07, portfolio: centralEuropePortfolio},
	{name: "Vienna", lat: 48.2082, lon: 16.3738, radius: 0.06, portfolio: centralEuropePortfolio},
	{name: "Zurich", lat: 47.3769, lon: 8.5417, radius: 0.04, portfolio: centralEuropePortfolio},
	{name: "Madrid", lat: 40.4168, lon: -3.7038, radius: 0.07, portfolio: southernEuropePortfolio},
	{name: "Barcelona", lat: 41.3851, lon: 2.1734, radius: 0.06, portfolio: southernEuropePortfolio},
	{name: "Rome", lat: 41.9028, lon: 12.4964, radius: 0.07, portfolio: southernEuropePortfolio},
	{name: "Milan", lat: 45.4642, lon: 9.1900, radius: 0.06, portfolio: southernEuropePortfolio},
	{name: "Athens", lat: 37.9838, lon: 23.7275, radius: 0.06, portfolio: southernEuropePortfolio},
	{name: "Lisbon", lat: 38.7223, lon: -9.1393, radius: 0.05, portfolio: southernEuropePortfolio},
}

var norwegianStreets = map[string][]string{
	"Oslo":      {"Karl Johans gate", "Grønland", "Torggata", "Bogstadveien", "Møllergata"},
	"Bergen":    {"Torgallmenningen", "Bryggen", "Strandgaten", "Kong Oscars gate", "Marken"},
	"Trondheim": {"Munkegata", "Nordre gate", "Olav Tryggvasons gate", "Thomas Angells gate", "Fjordgata"},
	"Stavanger": {"Øvre Holmegate", "Kirkegata", "Pedersgata", "Kongsgata", "Løkkeveien"},
}

var europeanStreets = []string{
	"Main Street", "High Street", "Church Street", "Market Street",
	"Station Road", "Park Avenue", "Royal Street", "Castle Road",
	"Harbor Street", "Lake View", "Mountain Road", "River Street",
	"Old Town Road", "New Street", "West Street", "East Street",
}

var streetSuffixes = []string{"North", "South", "East", "West", ""}

// ranges for one region's generated properties.
type profile struct {
	maxStreetNumber        int
	minValue, maxValue     int64
	maxRelevantRisks       int
	minRiskPct, maxRiskPct float64
}

var (
	norwegianProfile = profile{maxStreetNumber: 100, minValue: 5_000_000, maxValue: 50_000_000, maxRelevantRisks: 10, minRiskPct: 0.02, maxRiskPct: 0.10}
	europeanProfile  = profile{maxStreetNumber: 200, minValue: 200_000, maxValue: 10_000_000, maxRelevantRisks: 15, minRiskPct: 0.02, maxRiskPct: 0.15}
)

// Generator writes fixtures through the repositories, so generated rows pass
// the same validation as API writes.
type Generator struct {
	portfolios PortfolioCreator
	properties PropertyCreator
}

// NewGenerator creates a generator backed by the given repositories.
func NewGenerator(portfolios PortfolioCreator, properties PropertyCreator) *Generator {
	return &Generator{portfolios: portfolios, properties: properties}
}

// Generate creates the seven demo portfolios and the requested number of
// properties around Norwegian and other European cities.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Result, error) {
	if opts.Norwegian < 0 || opts.European < 0 {
		return nil, fmt.Errorf("property counts must not be negative")
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}

	logger := logging.FromContext(ctx).WithField("seed", opts.Seed)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	ids := make([]int64, len(portfolioNames))
	for i, name := range portfolioNames {
		p := &models.Portfolio{Name: name}
		if err := validation.Clean(p); err != nil {
			return nil, fmt.Errorf("portfolio %q: %w", name, err)
		}
		if err := g.portfolios.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to create portfolio %q: %w", name, err)
		}
		ids[i] = p.ID
	}

	result := &Result{Seed: opts.Seed, Portfolios: len(ids)}

	for i := 0; i < opts.Norwegian; i++ {
		c := norwegianCities[rng.IntN(len(norwegianCities))]
		streets := norwegianStreets[c.name]
		street := streets[rng.IntN(len(streets))]

		if err := g.create(ctx, newProperty(rng, c, street, ids[c.portfolio], norwegianProfile)); err != nil {
			return result, err
		}
		result.Properties++
	}

	for i := 0; i < opts.European; i++ {
		c := europeanCities[rng.IntN(len(europeanCities))]
		street := strings.TrimSpace(europeanStreets[rng.IntN(len(europeanStreets))] + " " + streetSuffixes[rng.IntN(len(streetSuffixes))])

		if err := g.create(ctx, newProperty(rng, c, street, ids[c.portfolio], europeanProfile)); err != nil {
			return result, err
		}
		result.Properties++
	}

	logger.WithFields(map[string]interface{}{
		"portfolios": result.Portfolios,
		"properties": result.Properties,
	}).Info("fixtures generated")

	return result, nil
}

func (g *Generator) create(ctx context.Context, p *models.Property) error {
	if err := validation.Clean(p); err != nil {
		return fmt.Errorf("property %q: %w", p.Name, err)
	}
	if err := g.properties.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create property %q: %w", p.Name, err)
	}
	return nil
}

func newProperty(rng *rand.Rand, c city, street string, portfolioID int64, pr profile) *models.Property {
	lat := c.lat + uniform(rng, -c.radius, c.radius)
	lon := c.lon + uniform(rng, -c.radius, c.radius)
	label := fmt.Sprintf("%s %d", street, 1+rng.IntN(pr.maxStreetNumber))

	relevant := 1 + rng.IntN(pr.maxRelevantRisks)
	handled := rng.IntN(relevant + 1)
	value := pr.minValue + rng.Int64N(pr.maxValue-pr.minValue+1)

	return &models.Property{
		PortfolioID:        &portfolioID,
		Name:               label,
		Address:            label,
		ZipCode:            fmt.Sprintf("%04d", rng.IntN(10000)),
		City:               c.name,
		Location:           orb.Point{lon, lat},
		EstimatedValue:     value,
		RelevantRisks:      relevant,
		HandledRisks:       handled,
		TotalFinancialRisk: int64(float64(value) * uniform(rng, pr.minRiskPct, pr.maxRiskPct)),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
