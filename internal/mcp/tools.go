package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/models"
)

type trainInput struct {
	Reload bool `json:"reload,omitempty" jsonschema:"Reload the business snapshot (database or JSONL cache) before training"`
}

type ingestInput struct {
	Records string `json:"records" jsonschema:"JSONL with one record per line, each an object with kind and data; kinds: sale, transaction, inventory, customer, competitor_price, supplier, storage"`
	Persist bool   `json:"persist,omitempty" jsonschema:"Write the merged snapshot back to the JSONL cache"`
}

type demandInput struct {
	ProductID string `json:"product_id" jsonschema:"Product to forecast"`
	Days      int    `json:"days,omitempty" jsonschema:"Forecast horizon in days (1-365, default 30)"`
}

type insightsInput struct {
	CustomerID string `json:"customer_id,omitempty" jsonschema:"Optional customer for a personal segment and recommendations"`
}

type priceInput struct {
	ProductID string `json:"product_id" jsonschema:"Product to price"`
}

type salesInput struct {
	Period string `json:"period,omitempty" jsonschema:"Forecast granularity (default daily)"`
}

type dashboardInput struct {
	ProductID    string `json:"product_id" jsonschema:"Product for the demand and price panels"`
	ForecastDays int    `json:"forecast_days,omitempty" jsonschema:"Demand horizon in days (default 30)"`
	CustomerID   string `json:"customer_id,omitempty" jsonschema:"Optional customer for personal insights"`
	Period       string `json:"period,omitempty" jsonschema:"Sales forecast granularity (default daily)"`
}

type emptyInput struct{}

// periodSchema restricts the period argument to the supported granularities.
func periodSchema[T any](field string) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to infer tool schema")
		return nil
	}
	if p, ok := schema.Properties[field]; ok {
		p.Enum = []any{string(models.PeriodDaily), string(models.PeriodWeekly), string(models.PeriodMonthly)}
	}
	return schema
}

// tool adapts a handler returning a plain value into a text result. Handler
// errors become tool errors the client can show.
func tool[In any](name string, h func(context.Context, In) (interface{}, error)) sdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		data, err := h(ctx, in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return nil, nil, err
		}
		return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: formatResult(data)}}}, nil, nil
	}
}

func (s *Server) registerTools() {
	sdk.AddTool(s.sdk, &sdk.Tool{
		Name: "train_models",
		Description: "Train all six models on the current business snapshot. MUST be called before any insight tool; " +
			"insight tools return a 'model not trained' error until then. A failing model does not stop the others.",
	}, tool("train_models", s.handleTrainModels))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "ingest_records",
		Description: "Merge sales, transactions, inventory, customers, competitor prices or supplier terms into the snapshot. Call train_models afterwards.",
	}, tool("ingest_records", s.handleIngestRecords))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_demand_forecast",
		Description: "Daily demand forecast for one product with seasonal multipliers, confidence and the external factors considered.",
	}, tool("get_demand_forecast", s.handleDemandForecast))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_customer_insights",
		Description: "Customer segmentation (VIP, Regular, New, At-Risk) with retention rates; with customer_id also that customer's segment and product recommendations.",
	}, tool("get_customer_insights", s.handleCustomerInsights))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_price_optimization",
		Description: "Competitor-anchored price recommendation for one product with expected demand, revenue and profit impact.",
	}, tool("get_price_optimization", s.handlePriceOptimization))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_inventory_optimization",
		Description: "Stock actions per product (urgent reorder, increase, reduce) from reorder points and economic order quantities.",
	}, tool("get_inventory_optimization", s.handleInventoryOptimization))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_churn_prediction",
		Description: "Churn probability of the customer base, high-risk customers and retention strategies with ROI.",
	}, tool("get_churn_prediction", s.handleChurnPrediction))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_sales_forecast",
		Description: "Total sales projection: 30 daily, 12 weekly or 6 monthly points with festival and seasonal adjustments.",
		InputSchema: periodSchema[salesInput]("period"),
	}, tool("get_sales_forecast", s.handleSalesForecast))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_dashboard",
		Description: "All six insights at once. Models that fail are listed under errors next to the results of the others.",
		InputSchema: periodSchema[dashboardInput]("period"),
	}, tool("get_dashboard", s.handleDashboard))

	sdk.AddTool(s.sdk, &sdk.Tool{
		Name:        "get_engine_status",
		Description: "Which models are trained, the last training run and the record counts of the snapshot.",
	}, tool("get_engine_status", s.handleEngineStatus))
}
