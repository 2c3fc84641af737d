package mcp

import (
	"context"
	"fmt"

	"smartbiz-ml/internal/visuals"
)

func (s *Server) handleCustomerInsights(ctx context.Context, in insightsInput) (interface{}, error) {
	res, err := s.engine.CustomerInsights(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	return s.wrapResponse(res, visuals.GenerateSegmentPie(res)), nil
}

func (s *Server) handlePriceOptimization(ctx context.Context, in priceInput) (interface{}, error) {
	res, err := s.engine.PriceOptimization(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	var warnings []string
	if len(res.Factors.CompetitorPrices) == 0 {
		warnings = append(warnings, fmt.Sprintf("no competitor prices known for %s, the recommendation is anchored on the current price", in.ProductID))
	}
	return s.wrapResponse(res, "", warnings...), nil
}

func (s *Server) handleInventoryOptimization(ctx context.Context, _ emptyInput) (interface{}, error) {
	res, err := s.engine.InventoryOptimization(ctx)
	if err != nil {
		return nil, err
	}
	return s.wrapResponse(res, visuals.GenerateInventoryChart(res)), nil
}

func (s *Server) handleChurnPrediction(ctx context.Context, _ emptyInput) (interface{}, error) {
	res, err := s.engine.ChurnPrediction(ctx)
	if err != nil {
		return nil, err
	}
	return s.wrapResponse(res, visuals.GenerateChurnChart(res)), nil
}
