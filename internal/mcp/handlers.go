package mcp

import (
	"context"
	"errors"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/visuals"
)

func (s *Server) handleTrainModels(ctx context.Context, in trainInput) (interface{}, error) {
	var warnings []string
	if in.Reload {
		if err := s.reloadSnapshot(ctx); err != nil {
			return nil, err
		}
	}

	err := s.engine.TrainModels(ctx, s.store.Snapshot())
	var inv *business.InvalidInputError
	if errors.As(err, &inv) {
		return nil, err
	}
	if err != nil {
		// Some models trained; the others are reported next to the status.
		warnings = append(warnings, err.Error())
	}
	return s.wrapResponse(s.engine.Status(), "", warnings...), nil
}

func (s *Server) handleEngineStatus(ctx context.Context, _ emptyInput) (interface{}, error) {
	return s.wrapResponse(map[string]interface{}{
		"engine":   s.engine.Status(),
		"snapshot": s.snapshotCounts(),
	}, ""), nil
}

func (s *Server) handleDashboard(ctx context.Context, in dashboardInput) (interface{}, error) {
	d := s.engine.Dashboard(ctx, engine.DashboardRequest{
		ProductID:    in.ProductID,
		ForecastDays: in.ForecastDays,
		CustomerID:   in.CustomerID,
		Period:       in.Period,
	})

	var chart string
	if d.Sales != nil {
		chart = visuals.GenerateSalesChart(*d.Sales)
	}
	return s.wrapResponse(d, chart), nil
}
