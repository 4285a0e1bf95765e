// Package backfill generates embeddings for entities that do not have one
// yet. Every invocation processes at most one batch; re-invocation is the
// caller's job, so an external scheduler stays in control of the pace.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/metrics"
	"github.com/a8ns/storefront/plugin/embedding"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

// Entity names a backfillable entity type.
type Entity string

const (
	EntityProducts   Entity = "products"
	EntityCategories Entity = "categories"
)

// ParseEntity validates an entity_type parameter. An empty value defaults to
// products.
func ParseEntity(raw string) (Entity, error) {
	switch raw {
	case "", string(EntityProducts):
		return EntityProducts, nil
	case string(EntityCategories):
		return EntityCategories, nil
	default:
		return "", serviceerrors.InvalidArgument(
			fmt.Sprintf("invalid entity type: %s. Must be one of: products, categories", raw))
	}
}

// Status classifies a backfill progress snapshot.
type Status string

const (
	StatusDisabled          Status = "disabled"
	StatusNothingToBackfill Status = "nothing_to_backfill"
	StatusStarted           Status = "started"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
)

// Report is a derived snapshot of backfill progress, computed fresh by
// counting null embeddings. It is never persisted.
type Report struct {
	EntityType     Entity    `json:"entity_type"`
	Status         Status    `json:"status"`
	Processed      int64     `json:"processed"`
	TotalRemaining int64     `json:"total_remaining"`
	LastUpdated    time.Time `json:"last_updated"`
}

// BatchResult summarizes one RunOnce invocation.
type BatchResult struct {
	Processed int
	Failed    int
	Remaining int64
}

// maxConcurrentEmbeds bounds parallel provider calls within one batch so a
// large batch cannot flood the provider.
const maxConcurrentEmbeds = 4

// searchSettings is the slice of the runtime search configuration the runner
// reads.
type searchSettings interface {
	Enabled() bool
	Provider() embedding.Service
	Snapshot() search.Snapshot
}

// Runner fills missing entity embeddings in bounded batches.
type Runner struct {
	store    *store.Store
	settings searchSettings
}

func NewRunner(store *store.Store, settings *search.Settings) *Runner {
	return &Runner{
		store:    store,
		settings: settings,
	}
}

// RunOnce backfills up to batchSize entities of one type. Items are processed
// with bounded concurrency; each item re-reads its row first and skips itself
// if an embedding appeared in the meantime. Per-item failures are counted and
// skipped, never aborting the batch. batchSize values <= 0 use the configured
// default.
func (r *Runner) RunOnce(ctx context.Context, entity Entity, batchSize int) (*BatchResult, error) {
	provider := r.settings.Provider()
	if provider == nil {
		return nil, serviceerrors.FeatureDisabled("vector search is not enabled")
	}
	if batchSize <= 0 {
		batchSize = r.settings.Snapshot().BatchSize
	}

	var (
		processed, failed int
		err               error
	)
	switch entity {
	case EntityCategories:
		processed, failed, err = r.backfillCategories(ctx, provider, batchSize)
	default:
		processed, failed, err = r.backfillProducts(ctx, provider, batchSize)
	}
	if err != nil {
		return nil, err
	}

	remaining, err := r.countRemaining(ctx, entity)
	if err != nil {
		return nil, err
	}

	slog.Info("embedding backfill batch finished",
		slog.String("entity", string(entity)),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Int64("remaining", remaining))

	return &BatchResult{
		Processed: processed,
		Failed:    failed,
		Remaining: remaining,
	}, nil
}

// Status reports current progress for one entity type. Processed is inferred
// from the null-embedding count, so it also reflects rows embedded by
// previous batches or other replicas.
func (r *Runner) Status(ctx context.Context, entity Entity) (*Report, error) {
	report := &Report{
		EntityType:  entity,
		LastUpdated: time.Now().UTC(),
	}
	if !r.settings.Enabled() {
		report.Status = StatusDisabled
		return report, nil
	}

	var (
		total, remaining int64
		err              error
	)
	switch entity {
	case EntityCategories:
		if total, err = r.store.CountCategories(ctx); err != nil {
			return nil, err
		}
		remaining, err = r.store.CountCategoriesWithoutEmbedding(ctx)
	default:
		if total, err = r.store.CountProducts(ctx); err != nil {
			return nil, err
		}
		remaining, err = r.store.CountProductsWithoutEmbedding(ctx)
	}
	if err != nil {
		return nil, err
	}

	report.Processed = total - remaining
	report.TotalRemaining = remaining
	if remaining > 0 {
		report.Status = StatusInProgress
	} else {
		report.Status = StatusCompleted
	}
	return report, nil
}

func (r *Runner) backfillProducts(ctx context.Context, provider embedding.Service, batchSize int) (int, int, error) {
	products, err := r.store.ListProductsWithoutEmbedding(ctx, batchSize)
	if err != nil {
		return 0, 0, err
	}
	if len(products) == 0 {
		return 0, 0, nil
	}

	sem := semaphore.NewWeighted(maxConcurrentEmbeds)
	var wg sync.WaitGroup
	var processed, failed atomic.Int32

	for _, product := range products {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; stop scheduling more items.
			break
		}
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			defer sem.Release(1)

			embedded, err := r.embedProduct(ctx, provider, id)
			if err != nil {
				failed.Add(1)
				metrics.BackfillFailed.WithLabelValues(string(EntityProducts)).Inc()
				slog.Error("product embedding backfill failed",
					slog.Int("productID", int(id)),
					slog.String("error", err.Error()))
				return
			}
			if embedded {
				processed.Add(1)
				metrics.BackfillProcessed.WithLabelValues(string(EntityProducts)).Inc()
			}
		}(product.ID)
	}
	wg.Wait()

	return int(processed.Load()), int(failed.Load()), nil
}

func (r *Runner) backfillCategories(ctx context.Context, provider embedding.Service, batchSize int) (int, int, error) {
	categories, err := r.store.ListCategoriesWithoutEmbedding(ctx, batchSize)
	if err != nil {
		return 0, 0, err
	}
	if len(categories) == 0 {
		return 0, 0, nil
	}

	sem := semaphore.NewWeighted(maxConcurrentEmbeds)
	var wg sync.WaitGroup
	var processed, failed atomic.Int32

	for _, category := range categories {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			defer sem.Release(1)

			embedded, err := r.embedCategory(ctx, provider, id)
			if err != nil {
				failed.Add(1)
				metrics.BackfillFailed.WithLabelValues(string(EntityCategories)).Inc()
				slog.Error("category embedding backfill failed",
					slog.Int("categoryID", int(id)),
					slog.String("error", err.Error()))
				return
			}
			if embedded {
				processed.Add(1)
				metrics.BackfillProcessed.WithLabelValues(string(EntityCategories)).Inc()
			}
		}(category.ID)
	}
	wg.Wait()

	return int(processed.Load()), int(failed.Load()), nil
}

// embedProduct re-reads the product, generates its embedding and writes it
// back. It reports false without an error when there is nothing to do: the
// row was deleted since the scan, or another writer already embedded it.
func (r *Runner) embedProduct(ctx context.Context, provider embedding.Service, id int32) (bool, error) {
	product, err := r.store.GetProductFresh(ctx, id)
	if err != nil {
		return false, err
	}
	if product == nil || product.HasEmbedding {
		return false, nil
	}

	vector, err := provider.Embed(ctx, product.BuildSearchText())
	if err != nil {
		return false, err
	}
	if err := r.store.UpdateProductEmbedding(ctx, id, vector); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) embedCategory(ctx context.Context, provider embedding.Service, id int32) (bool, error) {
	category, err := r.store.GetCategoryFresh(ctx, id)
	if err != nil {
		return false, err
	}
	if category == nil || category.HasEmbedding {
		return false, nil
	}

	vector, err := provider.Embed(ctx, category.BuildSearchText())
	if err != nil {
		return false, err
	}
	if err := r.store.UpdateCategoryEmbedding(ctx, id, vector); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) countRemaining(ctx context.Context, entity Entity) (int64, error) {
	if entity == EntityCategories {
		return r.store.CountCategoriesWithoutEmbedding(ctx)
	}
	return r.store.CountProductsWithoutEmbedding(ctx)
}
