package generator

import (
	"reflect"
	"testing"
	"time"
)

func testConfig(scenario string) GeneratorConfig {
	return GeneratorConfig{
		Scenario:  scenario,
		Customers: 20,
		Products:  6,
		Days:      90,
		Seed:      7,
		Now:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(testConfig(ScenarioSteady), nil)
	b := Generate(testConfig(ScenarioSteady), nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different snapshots")
	}
}

func TestGenerate_SnapshotIsValid(t *testing.T) {
	for _, scenario := range []string{ScenarioSteady, ScenarioGrowth, ScenarioChurn} {
		t.Run(scenario, func(t *testing.T) {
			days := 0
			d := Generate(testConfig(scenario), func() { days++ })

			if err := d.Validate(); err != nil {
				t.Fatalf("generated snapshot is invalid: %v", err)
			}
			if days != 90 {
				t.Errorf("expected 90 progress ticks, got %d", days)
			}
			if len(d.Customers) != 20 {
				t.Errorf("expected 20 customers, got %d", len(d.Customers))
			}
			if len(d.Inventory) != 6 || len(d.Suppliers) != 6 {
				t.Errorf("expected 6 inventory and supplier rows, got %d and %d", len(d.Inventory), len(d.Suppliers))
			}
			if len(d.CompetitorPrices) != 6*len(competitors) {
				t.Errorf("expected %d competitor prices, got %d", 6*len(competitors), len(d.CompetitorPrices))
			}
			if len(d.Sales) == 0 || len(d.Transactions) == 0 {
				t.Fatal("expected sales and transactions")
			}

			cutoff := testConfig(scenario).Now
			for _, s := range d.Sales {
				if !s.Date.Before(cutoff) {
					t.Fatalf("sale dated %v is not before %v", s.Date, cutoff)
				}
			}
		})
	}
}

func TestGenerate_ChurnScenarioSilencesHalf(t *testing.T) {
	cfg := testConfig(ScenarioChurn)
	d := Generate(cfg, nil)

	halfway := cfg.Now.AddDate(0, 0, -cfg.Days/2+1)
	for _, tx := range d.Transactions {
		var idx int
		for i, c := range d.Customers {
			if c.ID == tx.CustomerID {
				idx = i
			}
		}
		if idx%2 == 1 && tx.Date.After(halfway) {
			t.Fatalf("churned customer %s bought on %v", tx.CustomerID, tx.Date)
		}
	}
}
