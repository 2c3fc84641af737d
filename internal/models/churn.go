package models

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/stats"
)

const (
	HighRiskThreshold   = 0.5
	mediumRiskThreshold = 0.3
	neutralEngagement   = 0.5
)

// ChurnTrainingData is the labelled customer base the churn model learns from.
type ChurnTrainingData struct {
	CustomerFeatures []stats.CustomerMetrics
	ChurnLabels      map[string]bool
	EngagementData   map[string]float64
	// Customers and LastPurchases describe the trained base when a request brings no customers.
	Customers     []business.CustomerRecord
	LastPurchases map[string]time.Time
}

// ChurnCustomer is one customer to score.
type ChurnCustomer struct {
	Customer     business.CustomerRecord
	Metrics      stats.CustomerMetrics
	LastPurchase time.Time
}

// ChurnRequest asks for churn scores of a customer base.
// An empty Customers list scores the trained customer base.
type ChurnRequest struct {
	Customers         []ChurnCustomer
	RecentActivity    map[string]stats.OrderTrend
	EngagementMetrics map[string]float64
}

// AtRiskCustomer is a customer above the high-risk threshold.
type AtRiskCustomer struct {
	CustomerID       string     `json:"customerId"`
	CustomerName     string     `json:"customerName"`
	ChurnProbability float64    `json:"churnProbability"`
	RiskFactors      []string   `json:"riskFactors"`
	LastPurchase     *time.Time `json:"lastPurchase"`
	TotalSpent       float64    `json:"totalSpent"`
	Recommendations  []string   `json:"recommendations"`
}

// RetentionStrategy is a targeted campaign with its expected return.
type RetentionStrategy struct {
	Strategy          string  `json:"strategy"`
	TargetSegment     string  `json:"targetSegment"`
	Customers         int     `json:"customers"`
	ExpectedRetention float64 `json:"expectedRetention"`
	Cost              float64 `json:"cost"`
	ROI               float64 `json:"roi"`
}

// ChurnPrediction is the result of ChurnPredictor.Predict.
type ChurnPrediction struct {
	OverallChurnRate    float64             `json:"overallChurnRate"`
	HistoricalChurnRate float64             `json:"historicalChurnRate"`
	HighRiskCustomers   []AtRiskCustomer    `json:"highRiskCustomers"`
	RetentionStrategies []RetentionStrategy `json:"retentionStrategies"`
}

// ChurnModel is the default rule-based ChurnPredictor.
type ChurnModel struct {
	state
	features       map[string]stats.CustomerMetrics
	customers      map[string]business.CustomerRecord
	lastPurchases  map[string]time.Time
	engagement     map[string]float64
	historicalRate float64
}

func NewChurnModel() *ChurnModel {
	return &ChurnModel{}
}

func (m *ChurnModel) Train(ctx context.Context, data ChurnTrainingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	features := make(map[string]stats.CustomerMetrics, len(data.CustomerFeatures))
	for _, f := range data.CustomerFeatures {
		features[f.CustomerID] = f
	}
	customers := make(map[string]business.CustomerRecord, len(data.Customers))
	for _, c := range data.Customers {
		customers[c.ID] = c
	}
	churned := 0
	for _, c := range data.ChurnLabels {
		if c {
			churned++
		}
	}
	rate := 0.0
	if len(data.ChurnLabels) > 0 {
		rate = float64(churned) / float64(len(data.ChurnLabels))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = features
	m.customers = customers
	m.lastPurchases = data.LastPurchases
	m.engagement = data.EngagementData
	m.historicalRate = rate
	m.trained = true

	log.Debug().Str("model", ModelChurn).Int("customers", len(features)).Float64("historicalRate", rate).Msg("Model trained")
	return nil
}

func (m *ChurnModel) trainedCustomers() []ChurnCustomer {
	out := make([]ChurnCustomer, 0, len(m.features))
	for id, f := range m.features {
		c, ok := m.customers[id]
		if !ok {
			c = business.CustomerRecord{ID: id}
		}
		out = append(out, ChurnCustomer{Customer: c, Metrics: f, LastPurchase: m.lastPurchases[id]})
	}
	slices.SortFunc(out, func(a, b ChurnCustomer) int { return strings.Compare(a.Customer.ID, b.Customer.ID) })
	return out
}

// ChurnProbability adjusts the base churn risk with recent activity and engagement.
func ChurnProbability(risk float64, trend stats.OrderTrend, engagement float64) float64 {
	p := risk
	if trend.DecliningFrequency() {
		p += 0.1
	}
	if trend.ReducedSpending() {
		p += 0.05
	}
	p += 0.1 * (neutralEngagement - engagement)
	return stats.Clamp(p, 0, 1)
}

func riskFactors(cm stats.CustomerMetrics, trend stats.OrderTrend, engagement float64) []string {
	var factors []string
	switch {
	case !cm.HasPurchased():
		factors = append(factors, "No purchases recorded")
	case cm.Recency > cm.AvgOrderGap*1.5:
		factors = append(factors, fmt.Sprintf("No purchase in %.0f days", cm.Recency))
	}
	if trend.DecliningFrequency() {
		factors = append(factors, "Declining order frequency")
	}
	if trend.ReducedSpending() {
		factors = append(factors, "Reduced spending")
	}
	if engagement < mediumRiskThreshold {
		factors = append(factors, "Low engagement")
	}
	if cm.HasPurchased() && cm.Frequency < 3 {
		factors = append(factors, fmt.Sprintf("Only %d orders placed", cm.Frequency))
	}
	return factors
}

func churnRecommendations(cm stats.CustomerMetrics, trend stats.OrderTrend) []string {
	recs := []string{"Send personalized win-back offer"}
	if trend.DecliningFrequency() {
		recs = append(recs, "Call for feedback")
	}
	if trend.ReducedSpending() {
		recs = append(recs, "Offer a discount on frequently bought products")
	}
	if cm.Frequency < 3 {
		recs = append(recs, "Offer loyalty program enrollment")
	}
	return recs
}

func (m *ChurnModel) Predict(ctx context.Context, req ChurnRequest) (ChurnPrediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return ChurnPrediction{}, &NotTrainedError{Model: ModelChurn}
	}
	if err := ctx.Err(); err != nil {
		return ChurnPrediction{}, err
	}

	type scored struct {
		c ChurnCustomer
		p float64
	}
	all := make([]scored, 0, len(m.features))
	var spends []float64
	out := ChurnPrediction{
		HistoricalChurnRate: m.historicalRate,
		HighRiskCustomers:   []AtRiskCustomer{},
		RetentionStrategies: []RetentionStrategy{},
	}

	customers := req.Customers
	if len(customers) == 0 {
		customers = m.trainedCustomers()
	}

	sum := 0.0
	for _, c := range customers {
		cm := c.Metrics
		if cm.CustomerID == "" {
			var ok bool
			if cm, ok = m.features[c.Customer.ID]; !ok {
				cm = stats.CustomerMetrics{CustomerID: c.Customer.ID, Recency: math.Inf(1), AvgOrderGap: stats.DefaultOrderGapDays, ChurnRisk: stats.ChurnRiskFor(math.Inf(1), stats.DefaultOrderGapDays, 0)}
			}
			c.Metrics = cm
		}
		engagement, ok := req.EngagementMetrics[cm.CustomerID]
		if !ok {
			if engagement, ok = m.engagement[cm.CustomerID]; !ok {
				engagement = neutralEngagement
			}
		}
		trend := req.RecentActivity[cm.CustomerID]
		p := ChurnProbability(cm.ChurnRisk, trend, engagement)
		sum += p
		all = append(all, scored{c, p})
		if cm.HasPurchased() {
			spends = append(spends, cm.TotalSpent)
		}

		if p <= HighRiskThreshold {
			continue
		}
		at := AtRiskCustomer{
			CustomerID:       cm.CustomerID,
			CustomerName:     c.Customer.Name,
			ChurnProbability: p,
			RiskFactors:      riskFactors(cm, trend, engagement),
			TotalSpent:       cm.TotalSpent,
			Recommendations:  churnRecommendations(cm, trend),
		}
		if !c.LastPurchase.IsZero() {
			last := c.LastPurchase
			at.LastPurchase = &last
		}
		out.HighRiskCustomers = append(out.HighRiskCustomers, at)
	}
	if len(all) > 0 {
		out.OverallChurnRate = sum / float64(len(all))
	}

	slices.SortFunc(out.HighRiskCustomers, func(a, b AtRiskCustomer) int {
		if a.ChurnProbability != b.ChurnProbability {
			if a.ChurnProbability > b.ChurnProbability {
				return -1
			}
			return 1
		}
		if a.CustomerID < b.CustomerID {
			return -1
		}
		if a.CustomerID > b.CustomerID {
			return 1
		}
		return 0
	})

	// Personalized offers go to high-risk customers spending at least the median.
	median := stats.Median(spends)
	offers := RetentionStrategy{Strategy: "Personalized Offers", TargetSegment: "High-value at-risk customers", ExpectedRetention: 0.65}
	loyalty := RetentionStrategy{Strategy: "Loyalty Program", TargetSegment: "Medium-risk customers", ExpectedRetention: 0.45}
	var offersValue, loyaltyValue float64
	for _, s := range all {
		spent := s.c.Metrics.TotalSpent
		switch {
		case s.p > HighRiskThreshold && s.c.Metrics.HasPurchased() && spent >= median:
			offers.Customers++
			offersValue += spent * s.p
		case s.p > mediumRiskThreshold && s.p <= HighRiskThreshold:
			loyalty.Customers++
			loyaltyValue += spent * s.p
		}
	}
	if offers.Customers > 0 {
		offers.Cost = 500 * float64(offers.Customers)
		offers.ROI = offersValue * offers.ExpectedRetention / offers.Cost
		out.RetentionStrategies = append(out.RetentionStrategies, offers)
	}
	if loyalty.Customers > 0 {
		loyalty.Cost = 200 * float64(loyalty.Customers)
		loyalty.ROI = loyaltyValue * loyalty.ExpectedRetention / loyalty.Cost
		out.RetentionStrategies = append(out.RetentionStrategies, loyalty)
	}
	return out, nil
}
