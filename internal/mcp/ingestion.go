package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/sources"
)

// reloadSnapshot merges the configured snapshot (database or JSONL cache) into the store.
func (s *Server) reloadSnapshot(ctx context.Context) error {
	if s.cfg.DSN == "" && s.cfg.CacheDir == "" {
		return fmt.Errorf("no snapshot configured: set SMARTBIZ_DSN or DATA_PATH")
	}
	log.Debug().Bool("database", s.cfg.DSN != "").Str("snapshot", s.cfg.Snapshot).Msg("Reloading business snapshot")
	return sources.LoadSnapshot(ctx, s.store, s.cfg.DSN, s.cfg.CacheDir, s.cfg.Snapshot)
}

func (s *Server) handleIngestRecords(ctx context.Context, in ingestInput) (interface{}, error) {
	if strings.TrimSpace(in.Records) == "" {
		return nil, fmt.Errorf("records is empty")
	}
	d, rejected, err := s.store.Merge(strings.NewReader(in.Records), "ingest_records")
	if err != nil {
		return nil, err
	}
	read := len(d.Sales) + len(d.Transactions) + len(d.Inventory) + len(d.Customers) + len(d.CompetitorPrices) + len(d.Suppliers)
	if read == 0 {
		return nil, fmt.Errorf("no valid records found (%d rejected), each line must be an object with kind and data", rejected)
	}

	var warnings []string
	if rejected > 0 {
		warnings = append(warnings, fmt.Sprintf("%d records rejected, see the log for details", rejected))
	}
	if in.Persist {
		if s.cfg.CacheDir == "" {
			warnings = append(warnings, "persist requested but no cache directory is configured")
		} else if err := s.store.Save(s.cfg.CacheDir, s.cfg.Snapshot); err != nil {
			return nil, fmt.Errorf("records merged but not saved: %w", err)
		}
	}
	warnings = append(warnings, "call train_models to include the new records in insights")

	return s.wrapResponse(map[string]interface{}{
		"ingested": map[string]int{
			sources.KindSale:        len(d.Sales),
			sources.KindTransaction: len(d.Transactions),
			sources.KindInventory:   len(d.Inventory),
			sources.KindCustomer:    len(d.Customers),
			sources.KindCompetitor:  len(d.CompetitorPrices),
			sources.KindSupplier:    len(d.Suppliers),
		},
		"rejected": rejected,
		"snapshot": s.snapshotCounts(),
	}, "", warnings...), nil
}

func (s *Server) snapshotCounts() map[string]int {
	counts := make(map[string]int)
	for _, kind := range []string{sources.KindSale, sources.KindTransaction, sources.KindInventory, sources.KindCustomer, sources.KindCompetitor, sources.KindSupplier} {
		counts[kind] = s.store.Count(kind)
	}
	return counts
}
