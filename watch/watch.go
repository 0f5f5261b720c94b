// Package watch runs the per-product observation pipeline: fetch,
// extract, persist, evaluate, notify.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pricewatch/pricewatch/config"
	"github.com/pricewatch/pricewatch/extract"
	"github.com/pricewatch/pricewatch/fetch"
	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/store"
)

// Watcher iterates the configured products once per pass. Products are
// processed sequentially and independently; one product's failure never
// aborts the rest of the pass.
type Watcher struct {
	cfg      *config.Config
	products []models.Product
	fetcher  *fetch.Fetcher
	store    *store.Store
	notifier Notifier
	Metrics  *Metrics
}

// New wires a watcher from its collaborators.
func New(cfg *config.Config, products []models.Product, fetcher *fetch.Fetcher, st *store.Store, notifier Notifier) *Watcher {
	return &Watcher{
		cfg:      cfg,
		products: products,
		fetcher:  fetcher,
		store:    st,
		notifier: notifier,
		Metrics:  NewMetrics(),
	}
}

// RunOnce performs one full pass over the product list. The returned
// result reflects per-product outcomes; the error is non-nil only when
// the pass itself could not run.
func (w *Watcher) RunOnce(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	retriesBefore := w.fetcher.Retries()
	w.fetcher.ResetCache()

	for _, product := range w.products {
		if ctx.Err() != nil {
			break
		}
		w.check(ctx, product, result)
	}

	result.EndTime = time.Now()
	result.RetryCount = w.fetcher.Retries() - retriesBefore
	w.Metrics.AddRetries(result.RetryCount)

	return result, ctx.Err()
}

// Run executes RunOnce immediately and then, when interval is positive,
// repeats it on a ticker until ctx is cancelled. The last completed
// pass's result is returned.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) (*models.RunResult, error) {
	result, err := w.RunOnce(ctx)
	if interval <= 0 || err != nil {
		return result, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, nil
		case <-ticker.C:
			next, err := w.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return next, err
			}
			result = next
		}
	}
}

func (w *Watcher) check(ctx context.Context, product models.Product, result *models.RunResult) {
	result.Checked++

	obs := models.Observation{
		ProductName: product.Name,
		URL:         product.URL,
		Target:      product.TargetPrice,
		HasTarget:   product.HasTarget,
		Selector:    product.Selector,
		ObservedAt:  time.Now().UTC(),
	}

	fetchStart := time.Now()
	body, err := w.fetcher.Get(ctx, product.URL)
	w.Metrics.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		w.fail(ctx, product, obs, models.StatusFetchError, fetch.ErrorTypeLabel(err), err, result)
		return
	}

	text, err := extract.Locate(body, product.Selector)
	if err != nil {
		status := extractionStatus(err)
		w.fail(ctx, product, obs, status, status, err, result)
		return
	}

	price, err := extract.ParsePrice(text)
	if err != nil {
		status := extractionStatus(err)
		w.fail(ctx, product, obs, status, status, err, result)
		return
	}

	obs.Price = price
	obs.HasPrice = true
	obs.Status = models.StatusOK

	// Prior history is read before appending so "previous" never means
	// the observation being written.
	previous, hasPrevious, err := w.store.Latest(ctx, product.Name)
	if err != nil {
		slog.Warn("reading prior observation failed",
			slog.String("product", product.Name),
			slog.Any("error", err),
		)
		hasPrevious = false
	}

	if err := w.store.Append(ctx, obs); err != nil {
		w.recordFailure(product, models.StatusStoreError, "store", err, result)
		return
	}
	w.Metrics.IncCheck(models.StatusOK)

	logAttrs := []any{
		slog.String("product", product.Name),
		slog.String("price", price.String()),
		slog.String("url", product.URL),
	}
	if product.HasTarget {
		logAttrs = append(logAttrs, slog.String("target", product.TargetPrice.String()))
	}
	if hasPrevious {
		logAttrs = append(logAttrs, slog.String("previous", previous.Price.String()))
	}
	slog.Info("price observed", logAttrs...)

	if !product.HasTarget || !ShouldAlert(price, product.TargetPrice) {
		return
	}

	event := models.AlertEvent{
		ProductName: product.Name,
		Price:       price,
		TargetPrice: product.TargetPrice,
	}
	if hasPrevious {
		prev := previous.Price
		event.Previous = &prev
	}

	result.AlertCount++
	w.Metrics.IncAlert()
	if err := w.notifier.Alert(event); err != nil {
		slog.Warn("alert delivery failed",
			slog.String("product", product.Name),
			slog.Any("error", err),
		)
	}
}

// extractionStatus maps an extraction failure to its observation status.
func extractionStatus(err error) string {
	var extractionErr extract.ExtractionError
	if errors.As(err, &extractionErr) && extractionErr.Reason != "" {
		return extractionErr.Reason
	}
	return models.StatusParseFailed
}

// fail records a failed check: the failure is persisted as an
// observation row with the matching status, logged, and counted.
func (w *Watcher) fail(ctx context.Context, product models.Product, obs models.Observation, status, category string, cause error, result *models.RunResult) {
	obs.Status = status
	if err := w.store.Append(ctx, obs); err != nil {
		slog.Warn("recording failed check failed",
			slog.String("product", product.Name),
			slog.Any("error", err),
		)
	}
	w.recordFailure(product, status, category, cause, result)
}

func (w *Watcher) recordFailure(product models.Product, status, category string, cause error, result *models.RunResult) {
	result.ErrorCount++
	result.ErrorsByType[category]++
	result.FailedProducts = append(result.FailedProducts, product.Name)
	w.Metrics.IncCheck(status)
	slog.Error("product check failed",
		slog.String("product", product.Name),
		slog.String("status", status),
		slog.String("url", product.URL),
		slog.Any("error", cause),
	)
}
