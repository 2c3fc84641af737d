package stats

import (
	"math"
	"slices"
	"time"

	"smartbiz-ml/internal/business"
)

const (
	// DefaultOrderGapDays is the assumed inter-purchase interval when a customer has fewer than two orders.
	DefaultOrderGapDays = 30.0
	// ChurnInactivityDays marks a customer as churned for training labels.
	ChurnInactivityDays = 90.0

	hoursPerDay = 24.0
	daysPerYear = 365.0
)

// CustomerMetrics is the derived RFM-style view of one customer. It is never persisted.
type CustomerMetrics struct {
	CustomerID        string  `json:"customerId"`
	TotalSpent        float64 `json:"totalSpent"`
	Frequency         int     `json:"frequency"`
	Recency           float64 `json:"-"` // +Inf when the customer never purchased
	AverageOrderValue float64 `json:"averageOrderValue"`
	LifetimeValue     float64 `json:"lifetimeValue"`
	ChurnRisk         float64 `json:"churnRisk"`
	AvgOrderGap       float64 `json:"avgOrderGap"`
}

// HasPurchased reports whether the customer has at least one transaction.
func (m CustomerMetrics) HasPurchased() bool {
	return m.Frequency > 0
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / hoursPerDay
}

func sortedDates(txs []business.TransactionRecord) []time.Time {
	dates := make([]time.Time, len(txs))
	for i, t := range txs {
		dates[i] = t.Date
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// LastPurchaseDates returns the latest transaction date per customer.
func LastPurchaseDates(txs []business.TransactionRecord) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, t := range txs {
		if t.Date.After(out[t.CustomerID]) {
			out[t.CustomerID] = t.Date
		}
	}
	return out
}

// Recency returns the number of calendar days between now and the latest transaction.
// It returns +Inf for an empty list; callers treat that as "never purchased".
func Recency(txs []business.TransactionRecord, now time.Time) float64 {
	if len(txs) == 0 {
		return math.Inf(1)
	}
	last := txs[0].Date
	for _, t := range txs[1:] {
		if t.Date.After(last) {
			last = t.Date
		}
	}
	days := math.Round(daysBetween(business.Day(last), business.Day(now)))
	if days < 0 {
		return 0
	}
	return days
}

// Frequency returns the number of transactions.
func Frequency(txs []business.TransactionRecord) int {
	return len(txs)
}

// TotalSpent sums the transaction amounts.
func TotalSpent(txs []business.TransactionRecord) float64 {
	total := 0.0
	for _, t := range txs {
		total += t.Amount
	}
	return total
}

// AverageOrderValue returns the mean amount per transaction, or NaN for an empty list.
func AverageOrderValue(txs []business.TransactionRecord) float64 {
	if len(txs) == 0 {
		return math.NaN()
	}
	return TotalSpent(txs) / float64(len(txs))
}

// CustomerLifespanYears is the span between first and last purchase in years, floored at one year.
func CustomerLifespanYears(txs []business.TransactionRecord) float64 {
	if len(txs) < 2 {
		return 1
	}
	dates := sortedDates(txs)
	span := daysBetween(dates[0], dates[len(dates)-1])
	return math.Max(span/daysPerYear, 1)
}

// LifetimeValue is averageOrderValue * frequency * lifespanYears. Empty input yields 0.
func LifetimeValue(txs []business.TransactionRecord) float64 {
	if len(txs) == 0 {
		return 0
	}
	return AverageOrderValue(txs) * float64(Frequency(txs)) * CustomerLifespanYears(txs)
}

// AvgDaysBetweenOrders is the customer's own mean inter-purchase interval.
func AvgDaysBetweenOrders(txs []business.TransactionRecord) float64 {
	if len(txs) < 2 {
		return DefaultOrderGapDays
	}
	dates := sortedDates(txs)
	total := 0.0
	for i := 1; i < len(dates); i++ {
		total += daysBetween(dates[i-1], dates[i])
	}
	return total / float64(len(dates)-1)
}

// ChurnRiskFor is the piecewise churn policy for a given recency, average gap and order count.
func ChurnRiskFor(recency, avgGap float64, frequency int) float64 {
	switch {
	case recency > avgGap*2:
		return 0.8
	case recency > avgGap*1.5:
		return 0.6
	case frequency < 3:
		return 0.4
	default:
		return 0.2
	}
}

// ChurnRisk scores a customer's transactions relative to their own purchase rhythm.
func ChurnRisk(txs []business.TransactionRecord, now time.Time) float64 {
	return ChurnRiskFor(Recency(txs, now), AvgDaysBetweenOrders(txs), Frequency(txs))
}

// CalculateCustomerMetrics derives metrics for every customer. Customers without
// transactions get zero spend and order value instead of NaN.
func CalculateCustomerMetrics(customers []business.CustomerRecord, txs []business.TransactionRecord, now time.Time) []CustomerMetrics {
	byCustomer := make(map[string][]business.TransactionRecord)
	for _, t := range txs {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	out := make([]CustomerMetrics, 0, len(customers))
	for _, c := range customers {
		ctx := byCustomer[c.ID]
		aov := 0.0
		if len(ctx) > 0 {
			aov = AverageOrderValue(ctx)
		}
		out = append(out, CustomerMetrics{
			CustomerID:        c.ID,
			TotalSpent:        TotalSpent(ctx),
			Frequency:         Frequency(ctx),
			Recency:           Recency(ctx, now),
			AverageOrderValue: aov,
			LifetimeValue:     LifetimeValue(ctx),
			ChurnRisk:         ChurnRisk(ctx, now),
			AvgOrderGap:       AvgDaysBetweenOrders(ctx),
		})
	}
	return out
}

// IdentifyChurnedCustomers labels customers inactive for longer than ChurnInactivityDays.
func IdentifyChurnedCustomers(metrics []CustomerMetrics) map[string]bool {
	labels := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		labels[m.CustomerID] = m.Recency > ChurnInactivityDays
	}
	return labels
}
