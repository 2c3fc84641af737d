package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/config"
	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/sources"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// connect starts s on an in-memory transport and returns a connected client session.
func connect(t *testing.T, s *Server) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientT, serverT := sdk.NewInMemoryTransports()
	if _, err := s.sdk.Connect(ctx, serverT, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func newTestServer(t *testing.T, cfg *config.AppConfig) (*Server, *sources.Store) {
	t.Helper()
	store := sources.NewStore()
	store.Append(business.Data{
		Sales: []business.SalesRecord{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: 500, ProductID: "rice-1kg", CustomerID: "c1"},
		},
		Inventory: []business.InventoryRecord{
			{ProductID: "rice-1kg", Name: "Rice 1kg", CurrentStock: 4, MinStock: 10, MaxStock: 200, UnitCost: 80, UnitPrice: 120},
		},
		CompetitorPrices: []business.CompetitorPrice{{ProductID: "rice-1kg", Competitor: "A", Price: 100}},
	})
	e := engine.New(engine.FromStore(store, nil), engine.WithSeed(7), engine.WithClock(func() time.Time { return testNow }))
	return NewServer(e, store, cfg), store
}

func call(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (*sdk.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) protocol error: %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s) returned no content", name)
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s) returned %T", name, res.Content[0])
	}
	return res, text.Text
}

func TestServer_ListTools(t *testing.T) {
	s, _ := newTestServer(t, nil)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, want := range []string{
		"train_models", "ingest_records", "get_demand_forecast", "get_customer_insights", "get_price_optimization",
		"get_inventory_optimization", "get_churn_prediction", "get_sales_forecast", "get_dashboard", "get_engine_status",
	} {
		if !got[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestServer_InsightBeforeTraining(t *testing.T) {
	s, _ := newTestServer(t, nil)
	cs := connect(t, s)

	res, text := call(t, cs, "get_sales_forecast", map[string]any{"period": "weekly"})
	if !res.IsError || !strings.Contains(text, "not trained") {
		t.Errorf("expected a not-trained tool error, got %v: %s", res.IsError, text)
	}
}

func TestServer_TrainThenForecast(t *testing.T) {
	s, _ := newTestServer(t, &config.AppConfig{EnableMermaidCharts: true})
	cs := connect(t, s)

	if res, text := call(t, cs, "train_models", nil); res.IsError {
		t.Fatalf("train_models failed: %s", text)
	}

	res, text := call(t, cs, "get_demand_forecast", map[string]any{"product_id": "rice-1kg", "days": 14})
	if res.IsError {
		t.Fatalf("get_demand_forecast failed: %s", text)
	}
	var env struct {
		Data struct {
			ProductID string            `json:"productId"`
			Forecast  []json.RawMessage `json:"forecast"`
		} `json:"data"`
		Chart string `json:"chart"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	if env.Data.ProductID != "rice-1kg" || len(env.Data.Forecast) != 14 {
		t.Errorf("unexpected forecast %s", text)
	}
	if !strings.HasPrefix(env.Chart, "```mermaid") {
		t.Errorf("expected a Mermaid chart, got %q", env.Chart)
	}

	res, text = call(t, cs, "get_price_optimization", map[string]any{"product_id": "rice-1kg"})
	if res.IsError || !strings.Contains(text, `"recommendedPrice": 95`) {
		t.Errorf("unexpected price result: %s", text)
	}
}

func TestServer_ChartsDisabledByDefault(t *testing.T) {
	s, _ := newTestServer(t, nil)
	cs := connect(t, s)
	call(t, cs, "train_models", nil)

	_, text := call(t, cs, "get_sales_forecast", nil)
	if strings.Contains(text, "mermaid") {
		t.Errorf("chart should be omitted when disabled: %s", text)
	}
}

func TestServer_InvalidPeriodRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)
	cs := connect(t, s)
	call(t, cs, "train_models", nil)

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: "get_sales_forecast", Arguments: map[string]any{"period": "hourly"}})
	if err == nil && !res.IsError {
		t.Error("expected hourly to be rejected")
	}
}

func TestServer_IngestRecords(t *testing.T) {
	dir := t.TempDir()
	s, store := newTestServer(t, &config.AppConfig{CacheDir: dir, Snapshot: "shop"})
	cs := connect(t, s)

	records := `{"kind":"customer","data":{"id":"c1","name":"Asha","registrationDate":"2023-06-01T00:00:00Z"}}
{"kind":"transaction","data":{"id":"t1","customerId":"c1","amount":500,"date":"2024-01-01T00:00:00Z"}}
`
	res, text := call(t, cs, "ingest_records", map[string]any{"records": records, "persist": true})
	if res.IsError {
		t.Fatalf("ingest_records failed: %s", text)
	}
	if store.Count(sources.KindCustomer) != 1 || store.Count(sources.KindTransaction) != 1 {
		t.Errorf("records not merged: %s", text)
	}

	reloaded := sources.NewStore()
	if err := reloaded.Load(dir, "shop"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Count(sources.KindCustomer) != 1 || reloaded.Count(sources.KindSale) != 1 {
		t.Error("persisted snapshot incomplete")
	}

	if res, _ := call(t, cs, "ingest_records", map[string]any{"records": "garbage"}); !res.IsError {
		t.Error("expected an error when nothing valid is ingested")
	}
}

func TestServer_IngestSkipsInvalidRecords(t *testing.T) {
	s, store := newTestServer(t, nil)
	cs := connect(t, s)

	records := `{"kind":"sale","data":{"amount":-50,"productId":"rice-1kg","date":"2024-01-02T00:00:00Z"}}
{"kind":"sale","data":{"amount":250,"productId":"rice-1kg","customerId":"c1","date":"2024-01-03T00:00:00Z"}}
`
	res, text := call(t, cs, "ingest_records", map[string]any{"records": records})
	if res.IsError {
		t.Fatalf("ingest_records failed: %s", text)
	}
	if !strings.Contains(text, `"rejected": 1`) || !strings.Contains(text, "1 records rejected") {
		t.Errorf("expected one rejected record to be reported: %s", text)
	}
	if got := store.Count(sources.KindSale); got != 2 {
		t.Errorf("sales = %d, want 2", got)
	}

	if res, text := call(t, cs, "train_models", nil); res.IsError {
		t.Fatalf("train_models should succeed after a rejected record: %s", text)
	}
	if res, text := call(t, cs, "get_sales_forecast", nil); res.IsError {
		t.Errorf("get_sales_forecast failed: %s", text)
	}
}

func TestServer_Dashboard(t *testing.T) {
	s, _ := newTestServer(t, nil)
	cs := connect(t, s)
	call(t, cs, "train_models", nil)

	res, text := call(t, cs, "get_dashboard", map[string]any{"product_id": "rice-1kg"})
	if res.IsError {
		t.Fatalf("get_dashboard failed: %s", text)
	}
	for _, key := range []string{"demandForecast", "customerInsights", "priceOptimization", "inventoryOptimization", "churnPrediction", "salesForecast"} {
		if !strings.Contains(text, `"`+key+`"`) {
			t.Errorf("dashboard missing %s", key)
		}
	}
	if strings.Contains(text, `"errors"`) {
		t.Errorf("no model should fail: %s", text)
	}
}
