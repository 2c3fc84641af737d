package sources

import (
	"context"
	"time"

	"smartbiz-ml/internal/business"
)

// StaticContext serves a fixed festival calendar and market context.
// Festival dates are projected onto the year of the requested instant.
type StaticContext struct {
	Weather      business.Weather
	Economy      business.EconomicIndicators
	MarketEvents []business.MarketEvent
}

type festivalDay struct {
	name   string
	month  time.Month
	day    int
	impact string
}

var festivalCalendar = []festivalDay{
	{"Diwali", time.November, 1, "high"},
	{"Holi", time.March, 13, "medium"},
	{"Eid", time.April, 10, "medium"},
}

// NewStaticContext returns the default context: mild weather, a growing
// economy, a positive harvest season for grains and a negative monsoon for vegetables.
func NewStaticContext() *StaticContext {
	return &StaticContext{
		Weather: business.Weather{Temperature: 28, Humidity: 65, Rainfall: 0},
		Economy: business.EconomicIndicators{Inflation: 4.2, GDPGrowth: 6.8, ConsumerIndex: 112},
		MarketEvents: []business.MarketEvent{
			{Event: "harvest_season", Impact: "positive", Products: []string{"rice", "wheat"}},
			{Event: "monsoon", Impact: "negative", Products: []string{"vegetables"}},
		},
	}
}

// Festivals returns the calendar for the given year.
func Festivals(year int, loc *time.Location) []business.Festival {
	out := make([]business.Festival, len(festivalCalendar))
	for i, f := range festivalCalendar {
		out[i] = business.Festival{Name: f.name, Date: time.Date(year, f.month, f.day, 0, 0, 0, 0, loc), Impact: f.impact}
	}
	return out
}

func (s *StaticContext) ExternalFactors(ctx context.Context, now time.Time) (business.ExternalFactors, error) {
	if err := ctx.Err(); err != nil {
		return business.ExternalFactors{}, err
	}
	loc := now.Location()
	// Include next year's calendar so forecasts crossing new year still see upcoming festivals.
	festivals := append(Festivals(now.Year(), loc), Festivals(now.Year()+1, loc)...)
	return business.ExternalFactors{
		Festivals:    festivals,
		Weather:      s.Weather,
		Economy:      s.Economy,
		MarketEvents: append([]business.MarketEvent(nil), s.MarketEvents...),
	}, nil
}
