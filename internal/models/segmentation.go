package models

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/stats"
)

// Segment names, in reporting order.
const (
	SegmentVIP     = "VIP Customers"
	SegmentRegular = "Regular Customers"
	SegmentNew     = "New Customers"
	SegmentAtRisk  = "At-Risk Customers"
)

const (
	newCustomerDays    = 90.0
	vipSpendPercentile = 85.0
	vipMinOrders       = 3
	atRiskChurnRisk    = 0.6
)

type segmentProfile struct {
	name            string
	characteristics []string
	recommendations []string
	referenceRetain float64
}

var segmentProfiles = []segmentProfile{
	{SegmentVIP, []string{"High spending", "Frequent purchases", "Long tenure"}, []string{"Exclusive offers", "Priority support", "Early access to new products"}, 0.95},
	{SegmentRegular, []string{"Moderate spending", "Regular purchases", "Price sensitive"}, []string{"Loyalty programs", "Bundle offers", "Seasonal discounts"}, 0.78},
	{SegmentNew, []string{"Recent acquisition", "Exploring products", "Need nurturing"}, []string{"Welcome offers", "Product education", "Follow-up campaigns"}, 0.45},
	{SegmentAtRisk, []string{"Declining activity", "Long gaps between purchases", "High churn risk"}, []string{"Win-back campaigns", "Special discounts", "Personal outreach"}, 0.25},
}

// SegmentationTrainingData is the customer base the segmentation model learns from.
type SegmentationTrainingData struct {
	Customers    []business.CustomerRecord
	Transactions []business.TransactionRecord
	Metrics      []stats.CustomerMetrics
	// ProductNames maps product IDs to display names for recommendations.
	ProductNames map[string]string
	Now          time.Time
}

// InsightsRequest asks for segment insights, optionally for one customer.
type InsightsRequest struct {
	CustomerID          string
	IncludeSegmentation bool
	IncludePredictions  bool
	Now                 time.Time
}

// Segment is one named customer bucket.
type Segment struct {
	Name            string   `json:"name"`
	Size            int      `json:"size"`
	Characteristics []string `json:"characteristics"`
	AverageSpending float64  `json:"averageSpending"`
	RetentionRate   float64  `json:"retentionRate"`
	Recommendations []string `json:"recommendations"`
	CustomerIDs     []string `json:"customerIds,omitempty"`
}

// ProductRecommendation is a personalised product suggestion.
type ProductRecommendation struct {
	ProductID  string  `json:"productId"`
	Product    string  `json:"product"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Action is a suggested next step with its expected impact and effort (Low, Medium, High).
type Action struct {
	Action string `json:"action"`
	Impact string `json:"impact"`
	Effort string `json:"effort"`
}

// CustomerInsights is the result of CustomerSegmenter.Analyze.
type CustomerInsights struct {
	Segments                    []Segment               `json:"segments"`
	CustomerSegment             string                  `json:"customerSegment,omitempty"`
	PersonalizedRecommendations []ProductRecommendation `json:"personalizedRecommendations"`
	NextBestActions             []Action                `json:"nextBestActions"`
}

// SegmentationModel is the default rule-based CustomerSegmenter.
type SegmentationModel struct {
	state
	segments    []Segment
	assignments map[string]string
	purchases   map[string]map[string]int // customer -> product -> orders
	monthly     map[time.Month][]string   // month -> products ranked by orders
	topSellers  []string
	names       map[string]string
}

func NewSegmentationModel() *SegmentationModel {
	return &SegmentationModel{}
}

// AssignSegment applies the segment rules in precedence order: At-Risk, New, VIP, Regular.
func AssignSegment(m stats.CustomerMetrics, tenureDays, vipSpend float64) string {
	switch {
	case m.HasPurchased() && m.ChurnRisk >= atRiskChurnRisk:
		return SegmentAtRisk
	case !m.HasPurchased() && tenureDays >= newCustomerDays:
		return SegmentAtRisk
	case tenureDays < newCustomerDays || m.Frequency < 2:
		return SegmentNew
	case m.TotalSpent >= vipSpend && m.Frequency >= vipMinOrders:
		return SegmentVIP
	}
	return SegmentRegular
}

func tenureDays(c business.CustomerRecord, txs []business.TransactionRecord, now time.Time) float64 {
	since := c.RegistrationDate
	for _, t := range txs {
		if since.IsZero() || t.Date.Before(since) {
			since = t.Date
		}
	}
	if since.IsZero() {
		return 0
	}
	return now.Sub(since).Hours() / 24
}

func rankByCount(counts map[string]int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
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

func (m *SegmentationModel) Train(ctx context.Context, data SegmentationTrainingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := data.Now
	if now.IsZero() {
		now = time.Now()
	}

	metrics := data.Metrics
	if metrics == nil {
		metrics = stats.CalculateCustomerMetrics(data.Customers, data.Transactions, now)
	}
	byID := make(map[string]stats.CustomerMetrics, len(metrics))
	var spends []float64
	for _, cm := range metrics {
		byID[cm.CustomerID] = cm
		if cm.HasPurchased() {
			spends = append(spends, cm.TotalSpent)
		}
	}
	vipSpend := stats.Percentile(spends, vipSpendPercentile)

	txsByCustomer := make(map[string][]business.TransactionRecord)
	purchases := make(map[string]map[string]int)
	monthCounts := make(map[time.Month]map[string]int)
	overall := make(map[string]int)
	for _, t := range data.Transactions {
		txsByCustomer[t.CustomerID] = append(txsByCustomer[t.CustomerID], t)
		if t.ProductID == "" {
			continue
		}
		if purchases[t.CustomerID] == nil {
			purchases[t.CustomerID] = make(map[string]int)
		}
		purchases[t.CustomerID][t.ProductID]++
		if monthCounts[t.Date.Month()] == nil {
			monthCounts[t.Date.Month()] = make(map[string]int)
		}
		monthCounts[t.Date.Month()][t.ProductID]++
		overall[t.ProductID]++
	}

	assignments := make(map[string]string, len(data.Customers))
	members := make(map[string][]stats.CustomerMetrics)
	for _, c := range data.Customers {
		cm, ok := byID[c.ID]
		if !ok {
			cm = stats.CustomerMetrics{CustomerID: c.ID, Recency: stats.Recency(nil, now), AvgOrderGap: stats.DefaultOrderGapDays}
		}
		seg := AssignSegment(cm, tenureDays(c, txsByCustomer[c.ID], now), vipSpend)
		assignments[c.ID] = seg
		members[seg] = append(members[seg], cm)
	}

	segments := make([]Segment, 0, len(segmentProfiles))
	for _, p := range segmentProfiles {
		segments = append(segments, buildSegment(p, members[p.name]))
	}

	monthly := make(map[time.Month][]string, len(monthCounts))
	for month, counts := range monthCounts {
		monthly[month] = rankByCount(counts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = segments
	m.assignments = assignments
	m.purchases = purchases
	m.monthly = monthly
	m.topSellers = rankByCount(overall)
	m.names = data.ProductNames
	m.trained = true

	log.Debug().Str("model", ModelSegmentation).Int("customers", len(data.Customers)).Float64("vipSpend", vipSpend).Msg("Model trained")
	return nil
}

func buildSegment(p segmentProfile, members []stats.CustomerMetrics) Segment {
	seg := Segment{
		Name:            p.name,
		Size:            len(members),
		Characteristics: p.characteristics,
		Recommendations: p.recommendations,
		RetentionRate:   p.referenceRetain,
	}
	if len(members) == 0 {
		return seg
	}

	spent := make([]float64, len(members))
	retained := 0
	for i, cm := range members {
		spent[i] = cm.TotalSpent
		seg.CustomerIDs = append(seg.CustomerIDs, cm.CustomerID)
		if cm.HasPurchased() && cm.Recency <= stats.ChurnInactivityDays {
			retained++
		}
	}
	seg.AverageSpending = stats.Mean(spent)
	seg.RetentionRate = float64(retained) / float64(len(members))
	return seg
}

func (m *SegmentationModel) Analyze(ctx context.Context, req InsightsRequest) (CustomerInsights, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return CustomerInsights{}, &NotTrainedError{Model: ModelSegmentation}
	}
	if err := ctx.Err(); err != nil {
		return CustomerInsights{}, err
	}

	out := CustomerInsights{
		Segments:                    []Segment{},
		PersonalizedRecommendations: []ProductRecommendation{},
		NextBestActions:             []Action{},
	}
	if req.IncludeSegmentation {
		out.Segments = cloneSegments(m.segments)
	}
	if req.CustomerID != "" {
		out.CustomerSegment = m.assignments[req.CustomerID]
	}
	if req.IncludePredictions {
		now := req.Now
		if now.IsZero() {
			now = time.Now()
		}
		out.PersonalizedRecommendations = m.recommend(req.CustomerID, now.Month())
		out.NextBestActions = m.nextBestActions()
	}
	return out, nil
}

// cloneSegments copies segments with their inner slices so callers cannot alter the trained state.
func cloneSegments(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		seg.Characteristics = slices.Clone(seg.Characteristics)
		seg.Recommendations = slices.Clone(seg.Recommendations)
		seg.CustomerIDs = slices.Clone(seg.CustomerIDs)
		out[i] = seg
	}
	return out
}

func (m *SegmentationModel) productName(id string) string {
	if name := m.names[id]; name != "" {
		return name
	}
	return id
}

func (m *SegmentationModel) recommend(customerID string, month time.Month) []ProductRecommendation {
	recs := []ProductRecommendation{}
	if customerID == "" {
		return recs
	}
	seen := make(map[string]bool)
	add := func(id, reason string, confidence float64) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		recs = append(recs, ProductRecommendation{
			ProductID:  id,
			Product:    m.productName(id),
			Reason:     reason,
			Confidence: stats.Clamp(confidence, 0, 0.95),
		})
	}

	own := m.purchases[customerID]
	if len(own) == 0 {
		for i, id := range m.topSellers {
			if i == 3 {
				break
			}
			add(id, "Popular with customers", 0.5)
		}
		return recs
	}

	ranked := rankByCount(own)
	total := 0
	for _, n := range own {
		total += n
	}
	favourite := ranked[0]
	add(favourite, "Frequently purchased", 0.5+0.4*float64(own[favourite])/float64(total))

	// Products bought by other customers who also bought the favourite.
	co := make(map[string]int)
	buyers := 0
	for other, products := range m.purchases {
		if other == customerID || products[favourite] == 0 {
			continue
		}
		buyers++
		for id := range products {
			if own[id] == 0 {
				co[id]++
			}
		}
	}
	if complement := rankByCount(co); len(complement) > 0 {
		add(complement[0], "Complementary product", 0.4+0.4*float64(co[complement[0]])/float64(buyers))
	}

	for _, id := range m.monthly[month] {
		if !seen[id] {
			add(id, "Seasonal demand", 0.65)
			break
		}
	}
	return recs
}

func (m *SegmentationModel) nextBestActions() []Action {
	actions := []Action{
		{Action: "Send personalized offer to VIP customers", Impact: "High", Effort: "Low"},
		{Action: "Launch loyalty program for regular customers", Impact: "Medium", Effort: "Medium"},
		{Action: "Create win-back campaign for at-risk customers", Impact: "High", Effort: "High"},
	}
	for _, s := range m.segments {
		if s.Name == SegmentNew && s.Size > 0 {
			actions = append(actions, Action{Action: "Send welcome offers to new customers", Impact: "Medium", Effort: "Low"})
		}
	}
	return actions
}
