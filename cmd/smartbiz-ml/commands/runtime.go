package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/config"
	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/sources"
	"smartbiz-ml/internal/telemetry"
)

// runtime is the wired engine with its snapshot.
type runtime struct {
	store   *sources.Store
	engine  *engine.Engine
	metrics *telemetry.Metrics
}

func (rt *runtime) records() int {
	n := 0
	for _, kind := range []string{sources.KindSale, sources.KindTransaction, sources.KindInventory, sources.KindCustomer} {
		n += rt.store.Count(kind)
	}
	return n
}

// bootstrap loads the configured snapshot and builds the engine on top of it.
// With train set the models are trained before returning.
func bootstrap(ctx context.Context, cfg *config.AppConfig, train bool) (*runtime, error) {
	store := sources.NewStore()
	if err := sources.LoadSnapshot(ctx, store, cfg.DSN, cfg.CacheDir, cfg.Snapshot); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	metrics := telemetry.New()
	opts := append(cfg.Engine.Options(), engine.WithMetrics(metrics))
	rt := &runtime{
		store:   store,
		engine:  engine.New(engine.FromStore(store, sources.NewStaticContext()), opts...),
		metrics: metrics,
	}

	if train {
		if rt.records() == 0 {
			log.Warn().Str("snapshot", sources.SnapshotPath(cfg.CacheDir, cfg.Snapshot)).Msg("Snapshot is empty, run mockgen or set SMARTBIZ_DSN")
		}
		if err := rt.engine.TrainModels(ctx, store.Snapshot()); err != nil {
			return nil, fmt.Errorf("train models: %w", err)
		}
	}
	return rt, nil
}
