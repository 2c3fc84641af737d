package mcp

import (
	"context"

	"smartbiz-ml/internal/visuals"
)

const defaultForecastDays = 30

func (s *Server) handleDemandForecast(ctx context.Context, in demandInput) (interface{}, error) {
	days := in.Days
	if days == 0 {
		days = defaultForecastDays
	}
	res, err := s.engine.DemandForecast(ctx, in.ProductID, days)
	if err != nil {
		return nil, err
	}
	return s.wrapResponse(res, visuals.GenerateDemandChart(res)), nil
}

func (s *Server) handleSalesForecast(ctx context.Context, in salesInput) (interface{}, error) {
	period := in.Period
	if period == "" {
		period = "daily"
	}
	res, err := s.engine.SalesForecast(ctx, period)
	if err != nil {
		return nil, err
	}
	return s.wrapResponse(res, visuals.GenerateSalesChart(res)), nil
}
