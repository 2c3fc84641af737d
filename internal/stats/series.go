package stats

import (
	"math"
	"slices"
	"sort"
	"time"

	"smartbiz-ml/internal/business"
)

// DailySeries is a dense day-by-day series starting at Start.
type DailySeries struct {
	Start  time.Time
	Values []float64
}

// dailyBuckets spreads values over every calendar day between the first and last observation.
func dailyBuckets(dates []time.Time, values []float64) DailySeries {
	if len(dates) == 0 {
		return DailySeries{}
	}
	first := business.Day(dates[0])
	last := first
	for _, d := range dates[1:] {
		day := business.Day(d)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	days := int(math.Round(daysBetween(first, last))) + 1
	buckets := make([]float64, days)
	for i, d := range dates {
		idx := int(math.Round(daysBetween(first, business.Day(d))))
		if idx >= 0 && idx < days {
			buckets[idx] += values[i]
		}
	}
	return DailySeries{Start: first, Values: buckets}
}

// DailyDemand returns the units sold per day for one product.
func DailyDemand(sales []business.SalesRecord, productID string) DailySeries {
	var dates []time.Time
	var units []float64
	for _, s := range sales {
		if s.ProductID != productID {
			continue
		}
		dates = append(dates, s.Date)
		units = append(units, s.Units())
	}
	return dailyBuckets(dates, units)
}

// DailyRevenue returns the summed sale amount per day across all products.
func DailyRevenue(sales []business.SalesRecord) DailySeries {
	dates := make([]time.Time, len(sales))
	amounts := make([]float64, len(sales))
	for i, s := range sales {
		dates[i] = s.Date
		amounts[i] = s.Amount
	}
	return dailyBuckets(dates, amounts)
}

// SalesVelocity returns average units per day for each product over the whole sales window.
func SalesVelocity(sales []business.SalesRecord) map[string]float64 {
	velocity := make(map[string]float64)
	if len(sales) == 0 {
		return velocity
	}
	first, last := sales[0].Date, sales[0].Date
	for _, s := range sales {
		velocity[s.ProductID] += s.Units()
		if s.Date.Before(first) {
			first = s.Date
		}
		if s.Date.After(last) {
			last = s.Date
		}
	}
	days := math.Round(daysBetween(business.Day(first), business.Day(last))) + 1
	for id := range velocity {
		velocity[id] /= days
	}
	return velocity
}

// PricePoint is the average unit price and units sold of a product on one day.
type PricePoint struct {
	ProductID string    `json:"productId"`
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Units     float64   `json:"units"`
}

// ExtractPriceHistory aggregates sales into per-product daily price points, oldest first.
func ExtractPriceHistory(sales []business.SalesRecord) []PricePoint {
	type key struct {
		product string
		day     time.Time
	}
	amounts := make(map[key]float64)
	units := make(map[key]float64)
	for _, s := range sales {
		k := key{s.ProductID, business.Day(s.Date)}
		amounts[k] += s.Amount
		units[k] += s.Units()
	}

	points := make([]PricePoint, 0, len(units))
	for k, u := range units {
		points = append(points, PricePoint{ProductID: k.product, Date: k.day, Price: amounts[k] / u, Units: u})
	}
	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].ProductID < points[j].ProductID
	})
	return points
}

// StockoutEvent flags a product whose stock ran out or fell under its minimum.
type StockoutEvent struct {
	ProductID    string  `json:"productId"`
	CurrentStock int     `json:"currentStock"`
	MinStock     int     `json:"minStock"`
	DaysOfCover  float64 `json:"daysOfCover"`
}

// IdentifyStockouts finds products that are out of stock or below minimum while still selling.
func IdentifyStockouts(inventory []business.InventoryRecord, sales []business.SalesRecord) []StockoutEvent {
	velocity := SalesVelocity(sales)
	var events []StockoutEvent
	for _, r := range inventory {
		if r.CurrentStock > 0 && r.CurrentStock >= r.MinStock {
			continue
		}
		cover := math.Inf(1)
		if v := velocity[r.ProductID]; v > 0 {
			cover = float64(r.CurrentStock) / v
		} else if r.CurrentStock > 0 {
			// Not selling and above zero: a low minimum is not a stockout.
			continue
		}
		events = append(events, StockoutEvent{
			ProductID:    r.ProductID,
			CurrentStock: r.CurrentStock,
			MinStock:     r.MinStock,
			DaysOfCover:  cover,
		})
	}
	return events
}

// OrderTrend compares a customer's recent window with the window before it.
type OrderTrend struct {
	RecentOrders int
	PriorOrders  int
	RecentSpend  float64
	PriorSpend   float64
}

// DecliningFrequency reports fewer orders in the recent window than in the prior one.
func (o OrderTrend) DecliningFrequency() bool {
	return o.PriorOrders > 0 && o.RecentOrders < o.PriorOrders
}

// ReducedSpending reports a drop of more than 20% in spend between windows.
func (o OrderTrend) ReducedSpending() bool {
	return o.PriorSpend > 0 && o.RecentSpend < 0.8*o.PriorSpend
}

// CalculateOrderTrend splits transactions into [now-window, now] and [now-2*window, now-window).
func CalculateOrderTrend(txs []business.TransactionRecord, now time.Time, window time.Duration) OrderTrend {
	var trend OrderTrend
	recentStart := now.Add(-window)
	priorStart := now.Add(-2 * window)
	for _, t := range txs {
		switch {
		case !t.Date.Before(recentStart) && !t.Date.After(now):
			trend.RecentOrders++
			trend.RecentSpend += t.Amount
		case !t.Date.Before(priorStart) && t.Date.Before(recentStart):
			trend.PriorOrders++
			trend.PriorSpend += t.Amount
		}
	}
	return trend
}

// EngagementScores rates each customer in [0,1] from recency and recent order count.
func EngagementScores(customers []business.CustomerRecord, txs []business.TransactionRecord, now time.Time) map[string]float64 {
	byCustomer := make(map[string][]business.TransactionRecord)
	for _, t := range txs {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	scores := make(map[string]float64, len(customers))
	for _, c := range customers {
		ctx := byCustomer[c.ID]
		recencyScore := 0.0
		if r := Recency(ctx, now); !math.IsInf(r, 1) {
			recencyScore = 1 / (1 + r/DefaultOrderGapDays)
		}
		trend := CalculateOrderTrend(ctx, now, ChurnInactivityDays*hoursPerDay*time.Hour)
		freqScore := math.Min(float64(trend.RecentOrders)/6, 1)
		scores[c.ID] = 0.5*recencyScore + 0.5*freqScore
	}
	return scores
}

// TopProducts ranks products by units sold, highest first, ties by ID.
func TopProducts(sales []business.SalesRecord) []string {
	units := make(map[string]float64)
	for _, s := range sales {
		units[s.ProductID] += s.Units()
	}
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if units[a] != units[b] {
			if units[a] > units[b] {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return ids
}
