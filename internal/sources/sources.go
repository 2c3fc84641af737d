// Package sources holds the collaborators the engine reads business data and
// market context from.
package sources

import (
	"context"
	"time"

	"smartbiz-ml/internal/business"
)

// SalesProvider returns the sales history.
type SalesProvider interface {
	Sales(ctx context.Context) ([]business.SalesRecord, error)
}

// InventoryProvider returns the current stock positions.
type InventoryProvider interface {
	Inventory(ctx context.Context) ([]business.InventoryRecord, error)
}

// CustomerStore returns customers and their purchase transactions.
type CustomerStore interface {
	Customers(ctx context.Context) ([]business.CustomerRecord, error)
	Transactions(ctx context.Context) ([]business.TransactionRecord, error)
}

// MarketSource returns competitor, supplier and storage facts.
type MarketSource interface {
	CompetitorPrices(ctx context.Context, productID string) ([]business.CompetitorPrice, error)
	Suppliers(ctx context.Context) ([]business.SupplierTerms, error)
	StorageConstraints(ctx context.Context) (business.StorageConstraints, error)
}

// ContextSource returns the external factors in effect at now.
type ContextSource interface {
	ExternalFactors(ctx context.Context, now time.Time) (business.ExternalFactors, error)
}

// MarketConditionsFrom summarises external factors for price optimisation.
func MarketConditionsFrom(f business.ExternalFactors) business.MarketConditions {
	outlook := "stable"
	switch {
	case f.Economy.GDPGrowth >= 6 && f.Economy.ConsumerIndex >= 100:
		outlook = "strong"
	case f.Economy.GDPGrowth < 2:
		outlook = "weak"
	}
	return business.MarketConditions{Economy: f.Economy, Weather: f.Weather, DemandOutlook: outlook}
}

// MarketTrendsFrom derives the macro direction used by sales forecasting.
func MarketTrendsFrom(f business.ExternalFactors) business.MarketTrends {
	direction := "stable"
	switch real := f.Economy.GDPGrowth - f.Economy.Inflation; {
	case real > 1:
		direction = "expanding"
	case real < -1:
		direction = "contracting"
	}
	return business.MarketTrends{GDPGrowth: f.Economy.GDPGrowth, Inflation: f.Economy.Inflation, Direction: direction}
}
