package business

import "time"

// Festival is an entry of the festival calendar.
type Festival struct {
	Name   string    `json:"name"`
	Date   time.Time `json:"date"`
	Impact string    `json:"impact"` // high, medium, low
}

// Weather is the current local weather reading.
type Weather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
}

// EconomicIndicators are macro figures used as market context.
type EconomicIndicators struct {
	Inflation     float64 `json:"inflation"`
	GDPGrowth     float64 `json:"gdpGrowth"`
	ConsumerIndex float64 `json:"consumerIndex"`
}

// MarketEvent is a known event that moves demand for some products.
type MarketEvent struct {
	Event    string   `json:"event"`
	Impact   string   `json:"impact"` // positive, negative
	Products []string `json:"products"`
}

// ExternalFactors bundles the contextual facts used by demand forecasting.
type ExternalFactors struct {
	Festivals    []Festival         `json:"festivals"`
	Weather      Weather            `json:"weather"`
	Economy      EconomicIndicators `json:"economicIndicators"`
	MarketEvents []MarketEvent      `json:"marketEvents"`
}

// CompetitorPrice is an observed competitor shelf price.
type CompetitorPrice struct {
	ProductID  string  `json:"productId"`
	Competitor string  `json:"competitor"`
	Price      float64 `json:"price"`
}

// SupplierTerms describes how a product is replenished.
type SupplierTerms struct {
	ProductID    string  `json:"productId"`
	Supplier     string  `json:"supplier"`
	LeadTimeDays float64 `json:"leadTimeDays"`
	OrderCost    float64 `json:"orderCost"`
	FillRate     float64 `json:"fillRate"`
}

// StorageConstraints bounds the stock the business can hold.
type StorageConstraints struct {
	MaxTotalUnits   int     `json:"maxTotalUnits,omitempty"`
	HoldingCostRate float64 `json:"holdingCostRate,omitempty"`
}

// MarketConditions summarises the environment a price is set in.
type MarketConditions struct {
	Economy       EconomicIndicators `json:"economy"`
	Weather       Weather            `json:"weather"`
	DemandOutlook string             `json:"demandOutlook"`
}

// MarketTrends summarises macro direction for sales forecasting.
type MarketTrends struct {
	GDPGrowth float64 `json:"gdpGrowth"`
	Inflation float64 `json:"inflation"`
	Direction string  `json:"direction"` // expanding, stable, contracting
}
