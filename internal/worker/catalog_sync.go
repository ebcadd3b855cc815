// Package worker contains background workers that maintain derived data
// stores.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/types"
)

// CatalogSyncWorker mirrors the broker catalog into the local SQLite
// store on a fixed interval, so dashboards keep working through broker
// outages with a recent snapshot.
type CatalogSyncWorker struct {
	source   catalog.Repository
	target   *catalog.SQLiteStore
	interval time.Duration
}

// NewCatalogSyncWorker creates a sync worker. An interval of zero
// defaults to five minutes.
func NewCatalogSyncWorker(source catalog.Repository, target *catalog.SQLiteStore, interval time.Duration) *CatalogSyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CatalogSyncWorker{source: source, target: target, interval: interval}
}

// SyncOnce pulls the full snapshot from the source and upserts it into
// the target. Entities deleted upstream are removed locally.
func (w *CatalogSyncWorker) SyncOnce(ctx context.Context) error {
	remote, err := w.source.ListEntities(ctx, types.ListFilter{})
	if err != nil {
		return fmt.Errorf("pulling catalog snapshot: %w", err)
	}
	if err := w.target.UpsertEntities(ctx, remote); err != nil {
		return fmt.Errorf("writing catalog snapshot: %w", err)
	}

	keep := make(map[string]bool, len(remote))
	for _, e := range remote {
		keep[e.ID] = true
	}
	local, err := w.target.ListEntities(ctx, types.ListFilter{})
	if err != nil {
		return fmt.Errorf("listing local catalog: %w", err)
	}
	for _, e := range local {
		if keep[e.ID] {
			continue
		}
		if err := w.target.DeleteEntity(ctx, e.Type, e.ID); err != nil {
			return fmt.Errorf("pruning entity %s: %w", e.ID, err)
		}
	}
	log.Printf("catalog_sync: %d entities synced, %d pruned", len(remote), len(local)-len(remote))
	return nil
}

// Run syncs immediately and then on every tick until the context is
// cancelled.
func (w *CatalogSyncWorker) Run(ctx context.Context) {
	if err := w.SyncOnce(ctx); err != nil {
		log.Printf("catalog_sync: initial sync: %v", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				log.Printf("catalog_sync: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
