package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"smartbiz-ml/internal/engine"
)

var insightKinds = []string{"demand", "customers", "price", "inventory", "churn", "sales", "all"}

var insightsFlags engine.DashboardRequest

var insightsCmd = &cobra.Command{
	Use:       "insights <demand|customers|price|inventory|churn|sales|all>",
	Short:     "Train on the snapshot and print one insight (or all) as JSON",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: insightKinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		res, err := insight(cmd.Context(), rt.engine, args[0], insightsFlags)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// insight runs the getter named by kind.
func insight(ctx context.Context, e *engine.Engine, kind string, req engine.DashboardRequest) (interface{}, error) {
	if req.ForecastDays == 0 {
		req.ForecastDays = 30
	}
	switch kind {
	case "demand":
		return e.DemandForecast(ctx, req.ProductID, req.ForecastDays)
	case "customers":
		return e.CustomerInsights(ctx, req.CustomerID)
	case "price":
		return e.PriceOptimization(ctx, req.ProductID)
	case "inventory":
		return e.InventoryOptimization(ctx)
	case "churn":
		return e.ChurnPrediction(ctx)
	case "sales":
		return e.SalesForecast(ctx, req.Period)
	case "all":
		return e.Dashboard(ctx, req), nil
	}
	return nil, fmt.Errorf("unknown insight %q", kind)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	insightsCmd.Flags().StringVarP(&insightsFlags.ProductID, "product", "p", "", "product for demand and price insights")
	insightsCmd.Flags().IntVarP(&insightsFlags.ForecastDays, "days", "d", 30, "demand forecast horizon in days")
	insightsCmd.Flags().StringVarP(&insightsFlags.CustomerID, "customer", "c", "", "customer for personal insights")
	insightsCmd.Flags().StringVar(&insightsFlags.Period, "period", "daily", "sales forecast period: daily, weekly or monthly")
}
