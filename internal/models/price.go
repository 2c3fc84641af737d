package models

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/stats"
)

const (
	DefaultElasticity   = 1.2
	competitiveDiscount = 0.95
	assumedMargin       = 0.3
	priceConfidence     = 0.82
)

// PriceTrainingData is the price context the price model learns from.
type PriceTrainingData struct {
	PriceHistory []stats.PricePoint
	// DemandResponse holds fitted elasticities per product.
	DemandResponse map[string]float64
	CompetitorData []business.CompetitorPrice
	// CostData holds the unit cost per product.
	CostData map[string]float64
}

// PriceRequest asks for a price recommendation for one product.
type PriceRequest struct {
	ProductID string
	// CurrentPrice overrides the last observed price when positive.
	CurrentPrice     float64
	MarketConditions business.MarketConditions
	CompetitorPrices []business.CompetitorPrice
	// DemandElasticity overrides the trained elasticity when positive.
	DemandElasticity float64
}

// PriceImpact is the expected relative change of demand, revenue and profit.
type PriceImpact struct {
	DemandChange  float64 `json:"demandChange"`
	RevenueChange float64 `json:"revenueChange"`
	ProfitChange  float64 `json:"profitChange"`
}

// PriceFactors records the inputs a recommendation was based on.
type PriceFactors struct {
	DemandElasticity  float64                    `json:"demandElasticity"`
	CompetitorAverage float64                    `json:"competitorAverage"`
	CompetitorPrices  []business.CompetitorPrice `json:"competitorPrices"`
	MarketConditions  business.MarketConditions  `json:"marketConditions"`
	UnitCost          float64                    `json:"unitCost,omitempty"`
}

// PriceOptimization is the result of PriceOptimizer.Optimize.
type PriceOptimization struct {
	ProductID        string       `json:"productId"`
	CurrentPrice     float64      `json:"currentPrice"`
	RecommendedPrice float64      `json:"recommendedPrice"`
	ExpectedImpact   PriceImpact  `json:"expectedImpact"`
	Confidence       float64      `json:"confidence"`
	Factors          PriceFactors `json:"factors"`
	Recommendations  []string     `json:"recommendations"`
}

// PriceModel is the default competitor-anchored PriceOptimizer.
type PriceModel struct {
	state
	lastPrice   map[string]float64
	elasticity  map[string]float64
	competitors map[string][]business.CompetitorPrice
	costs       map[string]float64
}

func NewPriceModel() *PriceModel {
	return &PriceModel{}
}

func (m *PriceModel) Train(ctx context.Context, data PriceTrainingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lastPrice := make(map[string]float64)
	for _, p := range data.PriceHistory {
		// History is oldest first, so the last write wins.
		if p.Price > 0 {
			lastPrice[p.ProductID] = p.Price
		}
	}
	competitors := make(map[string][]business.CompetitorPrice)
	for _, c := range data.CompetitorData {
		competitors[c.ProductID] = append(competitors[c.ProductID], c)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrice = lastPrice
	m.elasticity = data.DemandResponse
	m.competitors = competitors
	m.costs = data.CostData
	m.trained = true

	log.Debug().Str("model", ModelPrice).Int("products", len(lastPrice)).Int("competitorPrices", len(data.CompetitorData)).Msg("Model trained")
	return nil
}

// PriceImpactFor computes the first-order demand, revenue and profit effects of
// moving from current to recommended. A positive unit cost below the current
// price switches profit to the actual margin.
func PriceImpactFor(current, recommended, elasticity, unitCost float64) PriceImpact {
	ratio := (recommended - current) / current
	demand := -ratio * elasticity
	revenue := ratio + demand + ratio*demand

	profit := revenue * (1 + assumedMargin)
	if unitCost > 0 && unitCost < current {
		profit = (recommended-unitCost)*(1+demand)/(current-unitCost) - 1
	}
	return PriceImpact{DemandChange: demand, RevenueChange: revenue, ProfitChange: profit}
}

func competitorAverage(prices []business.CompetitorPrice, productID string) (float64, bool) {
	sum, n := 0.0, 0
	for _, p := range prices {
		if p.ProductID != "" && p.ProductID != productID {
			continue
		}
		if p.Price > 0 {
			sum += p.Price
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func (m *PriceModel) Optimize(ctx context.Context, req PriceRequest) (PriceOptimization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return PriceOptimization{}, &NotTrainedError{Model: ModelPrice}
	}
	if err := ctx.Err(); err != nil {
		return PriceOptimization{}, err
	}
	if req.ProductID == "" {
		return PriceOptimization{}, business.Invalid("productId", "missing")
	}

	current := req.CurrentPrice
	if current <= 0 {
		current = m.lastPrice[req.ProductID]
	}
	if current <= 0 || math.IsNaN(current) {
		return PriceOptimization{}, business.Invalid("currentPrice", "no price known for %s", req.ProductID)
	}

	competitors := req.CompetitorPrices
	if len(competitors) == 0 {
		competitors = m.competitors[req.ProductID]
	}
	avg, ok := competitorAverage(competitors, req.ProductID)
	if !ok {
		avg = current
	}

	elasticity := req.DemandElasticity
	if elasticity <= 0 {
		elasticity = m.elasticity[req.ProductID]
	}
	if elasticity <= 0 {
		elasticity = DefaultElasticity
	}

	recommended := math.Round(avg * competitiveDiscount)
	cost := m.costs[req.ProductID]

	return PriceOptimization{
		ProductID:        req.ProductID,
		CurrentPrice:     current,
		RecommendedPrice: recommended,
		ExpectedImpact:   PriceImpactFor(current, recommended, elasticity, cost),
		Confidence:       priceConfidence,
		Factors: PriceFactors{
			DemandElasticity:  elasticity,
			CompetitorAverage: avg,
			CompetitorPrices:  competitors,
			MarketConditions:  req.MarketConditions,
			UnitCost:          cost,
		},
		Recommendations: priceRecommendations(current, recommended, avg, cost),
	}, nil
}

func priceRecommendations(current, recommended, competitorAvg, cost float64) []string {
	var recs []string
	switch {
	case recommended > current:
		recs = []string{
			"Implement gradual price increase over 2 weeks",
			"Monitor competitor response",
			"Prepare promotional campaigns if demand drops",
		}
	case recommended < current:
		recs = []string{
			fmt.Sprintf("Reduce price to %.0f to stay below the competitor average of %.2f", recommended, competitorAvg),
			"Promote the new price to capture volume from competitors",
			"Track sales volume for 2 weeks against the expected demand change",
		}
	default:
		recs = []string{
			"Hold the current price, it is aligned with the market",
			"Monitor competitor response",
		}
	}
	if cost > 0 && recommended <= cost {
		recs = append(recs, fmt.Sprintf("Recommended price does not cover the unit cost of %.2f, review supplier terms", cost))
	}
	return recs
}
