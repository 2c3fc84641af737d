// Package visuals renders insight results as Mermaid charts for markdown clients.
package visuals

import (
	"fmt"
	"math"
	"strings"

	"smartbiz-ml/internal/models"
)

// maxPoints keeps xychart labels from overlapping.
const maxPoints = 60

// subsample returns the indexes to plot for n points, always keeping the last one.
func subsample(n int) []int {
	step := 1
	if n > maxPoints {
		step = int(math.Ceil(float64(n) / maxPoints))
	}
	var idx []int
	for i := 0; i < n; i++ {
		if i%step == 0 || i == n-1 {
			idx = append(idx, i)
		}
	}
	return idx
}

func quote(s string) string {
	return fmt.Sprintf("%q", strings.ReplaceAll(s, "\"", "'"))
}

func yMax(v float64) int {
	return max(1, int(math.Ceil(v*1.1)))
}

// GenerateDemandChart plots the daily demand forecast of one product.
func GenerateDemandChart(f models.DemandForecast) string {
	if len(f.Forecast) == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0
	for _, i := range subsample(len(f.Forecast)) {
		p := f.Forecast[i]
		labels = append(labels, quote(p.Date.Format("Jan02")))
		values = append(values, fmt.Sprintf("%d", p.PredictedDemand))
		maxVal = max(maxVal, p.PredictedDemand)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Demand Forecast (%s)\"\n", f.ProductID))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Units\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateSalesChart plots projected sales as bars, labelled by the period granularity.
func GenerateSalesChart(f models.SalesForecast) string {
	if len(f.Forecast) == 0 {
		return ""
	}

	layout := "Jan02"
	if f.Period == models.PeriodMonthly {
		layout = "Jan06"
	}

	var labels, values []string
	maxVal := 0
	for _, i := range subsample(len(f.Forecast)) {
		p := f.Forecast[i]
		labels = append(labels, quote(p.Date.Format(layout)))
		values = append(values, fmt.Sprintf("%d", p.PredictedSales))
		maxVal = max(maxVal, p.PredictedSales)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Sales Forecast (%s)\"\n", f.Period))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Sales\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateSegmentPie shows segment sizes. Empty segments are left out.
func GenerateSegmentPie(in models.CustomerInsights) string {
	total := 0
	for _, s := range in.Segments {
		total += s.Size
	}
	if total == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Customer Segments\n")
	for _, s := range in.Segments {
		if s.Size > 0 {
			sb.WriteString(fmt.Sprintf("    %s : %d\n", quote(s.Name), s.Size))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateInventoryChart compares current and recommended stock per product.
func GenerateInventoryChart(opt models.InventoryOptimization) string {
	if len(opt.Recommendations) == 0 {
		return ""
	}

	var labels, current, recommended []string
	maxVal := 0
	// Limit to 20 products, recommendations are already sorted by urgency.
	for _, r := range opt.Recommendations[:min(20, len(opt.Recommendations))] {
		name := r.ProductName
		if name == "" {
			name = r.ProductID
		}
		labels = append(labels, quote(name))
		current = append(current, fmt.Sprintf("%d", r.CurrentStock))
		recommended = append(recommended, fmt.Sprintf("%d", r.RecommendedStock))
		maxVal = max(maxVal, r.CurrentStock, r.RecommendedStock)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Stock: Current (bar) vs Recommended (line)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Units\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(current, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(recommended, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateChurnChart plots the churn probability of high-risk customers in percent.
func GenerateChurnChart(p models.ChurnPrediction) string {
	if len(p.HighRiskCustomers) == 0 {
		return ""
	}

	var labels, values []string
	for _, c := range p.HighRiskCustomers[:min(20, len(p.HighRiskCustomers))] {
		name := c.CustomerName
		if name == "" {
			name = c.CustomerID
		}
		labels = append(labels, quote(name))
		values = append(values, fmt.Sprintf("%.0f", c.ChurnProbability*100))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"High-Risk Customers\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Churn Probability (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// Unfence strips the markdown code fence so a chart can be embedded in HTML.
func Unfence(chart string) string {
	chart = strings.TrimPrefix(chart, "```mermaid\n")
	return strings.TrimSuffix(chart, "```")
}
