package models

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/stats"
)

// Inventory actions and urgencies.
const (
	ActionUrgentReorder = "urgent_reorder"
	ActionIncrease      = "increase"
	ActionReduce        = "reduce"

	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyMedium   = "medium"
	UrgencyLow      = "low"
)

const (
	defaultLeadTimeDays = 7.0
	defaultOrderCost    = 500.0
	defaultHoldingRate  = 0.25
	defaultHoldingCost  = 10.0
	safetyStockDays     = 3.0
	stockoutSafetyDays  = 2.0
	restockHorizonDays  = 7.0
	minAnnualTurnover   = 4.0
)

// InventoryTrainingData is the stock context the inventory model learns from.
type InventoryTrainingData struct {
	InventoryHistory    []business.InventoryRecord
	SalesVelocity       map[string]float64
	StockoutEvents      []stats.StockoutEvent
	SupplierPerformance []business.SupplierTerms
}

// InventoryRequest asks for stock recommendations.
type InventoryRequest struct {
	// CurrentInventory falls back to the trained snapshot when empty.
	CurrentInventory []business.InventoryRecord
	// DemandForecast is the expected daily demand per product.
	DemandForecast     map[string]float64
	SupplierData       []business.SupplierTerms
	StorageConstraints business.StorageConstraints
	Now                time.Time
}

// StockRecommendation is the action proposed for one product.
type StockRecommendation struct {
	ProductID             string     `json:"productId"`
	ProductName           string     `json:"productName"`
	CurrentStock          int        `json:"currentStock"`
	RecommendedStock      int        `json:"recommendedStock"`
	Action                string     `json:"action"`
	Reason                string     `json:"reason"`
	Urgency               string     `json:"urgency"`
	ExpectedStockout      *time.Time `json:"expectedStockout"`
	ReorderPoint          int        `json:"reorderPoint"`
	EconomicOrderQuantity int        `json:"economicOrderQuantity"`
	DailyDemand           float64    `json:"dailyDemand"`
}

// InventoryTotals compares the value held today with the value after applying every recommendation.
type InventoryTotals struct {
	CurrentValue        float64 `json:"currentValue"`
	OptimizedValue      float64 `json:"optimizedValue"`
	Savings             float64 `json:"savings"`
	TurnoverImprovement float64 `json:"turnoverImprovement"`
}

// InventoryOptimization is the result of InventoryOptimizer.Optimize.
type InventoryOptimization struct {
	Recommendations   []StockRecommendation `json:"recommendations"`
	TotalOptimization InventoryTotals       `json:"totalOptimization"`
	Insights          []string              `json:"insights"`
}

// InventoryModel is the default reorder-point/EOQ InventoryOptimizer.
type InventoryModel struct {
	state
	inventory []business.InventoryRecord
	velocity  map[string]float64
	stockouts map[string]bool
	suppliers map[string]business.SupplierTerms
}

func NewInventoryModel() *InventoryModel {
	return &InventoryModel{}
}

func (m *InventoryModel) Train(ctx context.Context, data InventoryTrainingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stockouts := make(map[string]bool, len(data.StockoutEvents))
	for _, e := range data.StockoutEvents {
		stockouts[e.ProductID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory = data.InventoryHistory
	m.velocity = data.SalesVelocity
	m.stockouts = stockouts
	m.suppliers = supplierIndex(data.SupplierPerformance)
	m.trained = true

	log.Debug().Str("model", ModelInventory).Int("products", len(data.InventoryHistory)).Int("stockouts", len(stockouts)).Msg("Model trained")
	return nil
}

func supplierIndex(terms []business.SupplierTerms) map[string]business.SupplierTerms {
	idx := make(map[string]business.SupplierTerms, len(terms))
	for _, t := range terms {
		idx[t.ProductID] = t
	}
	return idx
}

// EconomicOrderQuantity is ceil(sqrt(2*D*S/H)); zero when there is no demand.
func EconomicOrderQuantity(annualDemand, orderCost, holdingCost float64) int {
	if annualDemand <= 0 || orderCost <= 0 || holdingCost <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(2 * annualDemand * orderCost / holdingCost)))
}

// ReorderPoint is ceil(d*L) + safety.
func ReorderPoint(dailyDemand, leadTimeDays float64, safety int) int {
	return int(math.Ceil(dailyDemand*leadTimeDays)) + safety
}

// unitValue is the valuation of one unit: cost, then price, then 1.
func unitValue(r business.InventoryRecord) float64 {
	switch {
	case r.UnitCost > 0:
		return r.UnitCost
	case r.UnitPrice > 0:
		return r.UnitPrice
	}
	return 1
}

type policy struct {
	demand   float64
	leadTime float64
	safety   int
	rop      int
	eoq      int
}

func (m *InventoryModel) policyFor(r business.InventoryRecord, demand float64, suppliers map[string]business.SupplierTerms, holdingRate float64) policy {
	terms, ok := suppliers[r.ProductID]
	if !ok {
		terms = m.suppliers[r.ProductID]
	}
	lead := terms.LeadTimeDays
	if lead <= 0 {
		lead = defaultLeadTimeDays
	}
	orderCost := terms.OrderCost
	if orderCost <= 0 {
		orderCost = defaultOrderCost
	}
	holding := defaultHoldingCost
	if r.UnitCost > 0 {
		holding = r.UnitCost * holdingRate
	}

	days := safetyStockDays
	if m.stockouts[r.ProductID] {
		days += stockoutSafetyDays
	}
	safety := max(r.MinStock, int(math.Ceil(demand*days)))

	return policy{
		demand:   demand,
		leadTime: lead,
		safety:   safety,
		rop:      ReorderPoint(demand, lead, safety),
		eoq:      EconomicOrderQuantity(365*demand, orderCost, holding),
	}
}

// classify decides the action for one product. ok is false when no action is needed.
func classify(r business.InventoryRecord, p policy, now time.Time) (rec StockRecommendation, ok bool) {
	stock := r.CurrentStock
	cover := math.Inf(1)
	if p.demand > 0 {
		cover = float64(stock) / p.demand
	}
	target := p.safety + p.eoq
	if r.MaxStock > 0 && target > r.MaxStock {
		target = max(r.MaxStock, p.rop)
	}

	rec = StockRecommendation{
		ProductID:             r.ProductID,
		ProductName:           r.DisplayName(),
		CurrentStock:          stock,
		ReorderPoint:          p.rop,
		EconomicOrderQuantity: p.eoq,
		DailyDemand:           p.demand,
	}
	if !math.IsInf(cover, 1) {
		at := business.Day(now).AddDate(0, 0, int(math.Floor(cover)))
		rec.ExpectedStockout = &at
	}

	switch {
	case stock < p.rop && cover <= p.leadTime:
		rec.Action, rec.Urgency = ActionUrgentReorder, UrgencyCritical
		rec.RecommendedStock = max(target, p.rop)
		rec.Reason = fmt.Sprintf("Stock covers %.0f days, less than the %.0f day supplier lead time", cover, p.leadTime)
	case stock < p.rop:
		rec.Action, rec.Urgency = ActionIncrease, UrgencyHigh
		rec.RecommendedStock = max(target, p.rop)
		rec.Reason = fmt.Sprintf("Below reorder point of %d units", p.rop)
	case p.demand*(p.leadTime+restockHorizonDays) > float64(stock):
		horizon := p.leadTime + restockHorizonDays
		rec.Action, rec.Urgency = ActionIncrease, UrgencyMedium
		rec.RecommendedStock = max(target, int(math.Ceil(p.demand*horizon))+p.safety)
		rec.Reason = fmt.Sprintf("Forecast demand over the next %.0f days exceeds current stock", horizon)
	case r.MaxStock > 0 && stock > r.MaxStock:
		rec.Action, rec.Urgency = ActionReduce, UrgencyLow
		rec.RecommendedStock = min(r.MaxStock, max(target, p.rop))
		rec.Reason = fmt.Sprintf("Stock above maximum level of %d units", r.MaxStock)
	case stock > p.rop && 365*p.demand/float64(stock) < minAnnualTurnover:
		recommended := max(target, p.rop)
		if recommended >= stock {
			return rec, false
		}
		rec.Action, rec.Urgency = ActionReduce, UrgencyLow
		rec.RecommendedStock = recommended
		rec.Reason = fmt.Sprintf("Slow-moving inventory (%.1f turns per year), reduce to optimize cash flow", 365*p.demand/float64(stock))
	default:
		return rec, false
	}
	return rec, true
}

func urgencyRank(u string) int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	}
	return 3
}

func (m *InventoryModel) Optimize(ctx context.Context, req InventoryRequest) (InventoryOptimization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return InventoryOptimization{}, &NotTrainedError{Model: ModelInventory}
	}
	if err := ctx.Err(); err != nil {
		return InventoryOptimization{}, err
	}

	inventory := req.CurrentInventory
	if len(inventory) == 0 {
		inventory = m.inventory
	}
	for i, r := range inventory {
		if err := business.ValidateInventory(r); err != nil {
			return InventoryOptimization{}, fmt.Errorf("inventory[%d]: %w", i, err)
		}
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	holdingRate := req.StorageConstraints.HoldingCostRate
	if holdingRate <= 0 {
		holdingRate = defaultHoldingRate
	}
	suppliers := supplierIndex(req.SupplierData)

	recs := []StockRecommendation{}
	for _, r := range inventory {
		demand := req.DemandForecast[r.ProductID]
		if demand <= 0 {
			demand = m.velocity[r.ProductID]
		}
		if rec, ok := classify(r, m.policyFor(r, demand, suppliers, holdingRate), now); ok {
			recs = append(recs, rec)
		}
	}
	applyStorageCap(inventory, recs, req.StorageConstraints.MaxTotalUnits)

	slices.SortStableFunc(recs, func(a, b StockRecommendation) int {
		if d := urgencyRank(a.Urgency) - urgencyRank(b.Urgency); d != 0 {
			return d
		}
		if a.ProductID < b.ProductID {
			return -1
		}
		if a.ProductID > b.ProductID {
			return 1
		}
		return 0
	})

	return InventoryOptimization{
		Recommendations:   recs,
		TotalOptimization: inventoryTotals(inventory, recs),
		Insights:          inventoryInsights(recs, now),
	}, nil
}

// applyStorageCap scales increases down proportionally when the projected total exceeds capacity.
func applyStorageCap(inventory []business.InventoryRecord, recs []StockRecommendation, capacity int) {
	if capacity <= 0 {
		return
	}
	planned := make(map[string]int, len(recs))
	for _, r := range recs {
		planned[r.ProductID] = r.RecommendedStock
	}

	base, increase := 0, 0
	for _, r := range inventory {
		target, ok := planned[r.ProductID]
		switch {
		case !ok:
			base += r.CurrentStock
		case target > r.CurrentStock:
			base += r.CurrentStock
			increase += target - r.CurrentStock
		default:
			base += target
		}
	}
	if increase == 0 || base+increase <= capacity {
		return
	}

	factor := stats.Clamp(float64(capacity-base)/float64(increase), 0, 1)
	for i := range recs {
		delta := recs[i].RecommendedStock - recs[i].CurrentStock
		if delta <= 0 {
			continue
		}
		recs[i].RecommendedStock = recs[i].CurrentStock + int(math.Floor(float64(delta)*factor))
		recs[i].Reason += " (limited by storage capacity)"
	}
}

func inventoryTotals(inventory []business.InventoryRecord, recs []StockRecommendation) InventoryTotals {
	planned := make(map[string]int, len(recs))
	for _, r := range recs {
		planned[r.ProductID] = r.RecommendedStock
	}
	var totals InventoryTotals
	for _, r := range inventory {
		v := unitValue(r)
		totals.CurrentValue += float64(r.CurrentStock) * v
		if target, ok := planned[r.ProductID]; ok {
			totals.OptimizedValue += float64(target) * v
		} else {
			totals.OptimizedValue += float64(r.CurrentStock) * v
		}
	}
	totals.Savings = totals.CurrentValue - totals.OptimizedValue
	if totals.OptimizedValue > 0 {
		// Same annual demand over a different average stock.
		totals.TurnoverImprovement = totals.CurrentValue/totals.OptimizedValue - 1
	}
	return totals
}

func inventoryInsights(recs []StockRecommendation, now time.Time) []string {
	var urgent, increase, reduce int
	for _, r := range recs {
		switch r.Action {
		case ActionUrgentReorder:
			urgent++
		case ActionIncrease:
			increase++
		case ActionReduce:
			reduce++
		}
	}

	var insights []string
	if urgent > 0 {
		insights = append(insights, fmt.Sprintf("%d products need an urgent reorder", urgent))
	}
	if m := now.Month(); (m >= time.September && m <= time.December) && urgent+increase > 0 {
		insights = append(insights, "Festival season approaching - increase staple food inventory")
	}
	if reduce > 0 {
		insights = append(insights, "Slow-moving items identified - consider promotional pricing")
	}
	insights = append(insights, "Supplier lead times factored into reorder calculations")
	return insights
}
