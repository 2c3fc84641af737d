package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"smartbiz-ml/cmd/mockgen/generator"
	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/sources"
)

func main() {
	scenario := flag.String("scenario", generator.ScenarioSteady, "Scenario to generate: steady, growth, churn")
	outDir := flag.String("out", "./.cache", "Output directory for the snapshot")
	name := flag.String("name", "business", "Snapshot name")
	customers := flag.Int("customers", 60, "Number of customers")
	products := flag.Int("products", 8, "Number of products (max 12)")
	days := flag.Int("days", 180, "Days of history to generate")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	cfg := generator.GeneratorConfig{
		Scenario:  *scenario,
		Customers: *customers,
		Products:  *products,
		Days:      *days,
		Seed:      *seed,
		Now:       time.Now(),
	}

	fmt.Fprintf(os.Stderr, "Generating scenario '%s' (%d customers, %d products, %d days) to %s...\n", cfg.Scenario, cfg.Customers, cfg.Products, cfg.Days, *outDir)

	bar := progressbar.NewOptions(cfg.Days,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("days"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	data := generator.Generate(cfg, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	store := sources.NewStore()
	store.Append(data)
	store.SetStorageConstraints(business.StorageConstraints{MaxTotalUnits: 5000, HoldingCostRate: 0.2})

	if err := store.Save(*outDir, *name); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Done: %d sales, %d transactions written to %s\n", len(data.Sales), len(data.Transactions), sources.SnapshotPath(*outDir, *name))
}
