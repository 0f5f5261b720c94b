package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricewatch/pricewatch/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

func observation(name string, price string, at time.Time) models.Observation {
	return models.Observation{
		ProductName: name,
		URL:         "http://example.test/" + name,
		Price:       decimal.RequireFromString(price),
		HasPrice:    true,
		Target:      decimal.RequireFromString("49.99"),
		HasTarget:   true,
		Selector:    ".price",
		Status:      models.StatusOK,
		ObservedAt:  at,
	}
}

func TestAppendThenLatest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	obs := observation("Widget", "52.00", time.Now().UTC())
	if err := st.Append(ctx, obs); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, ok, err := st.Latest(ctx, "Widget")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !ok {
		t.Fatalf("latest should find the appended observation")
	}
	if got.ProductName != "Widget" {
		t.Fatalf("product = %q, want Widget", got.ProductName)
	}
	if !got.Price.Equal(obs.Price) {
		t.Fatalf("price = %s, want %s", got.Price, obs.Price)
	}
	if !got.HasTarget || !got.Target.Equal(obs.Target) {
		t.Fatalf("target = %s (has=%v), want %s", got.Target, got.HasTarget, obs.Target)
	}
}

func TestLatestEmpty(t *testing.T) {
	st := openTestStore(t)

	_, ok, err := st.Latest(context.Background(), "Widget")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ok {
		t.Fatalf("latest should report no prior observation")
	}
}

func TestLatestReturnsNewest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, price := range []string{"52.00", "51.00", "45.50"} {
		if err := st.Append(ctx, observation("Widget", price, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, ok, err := st.Latest(ctx, "Widget")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if want := decimal.RequireFromString("45.50"); !got.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", got.Price, want)
	}
}

func TestLatestSkipsFailedChecks(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	if err := st.Append(ctx, observation("Widget", "52.00", base)); err != nil {
		t.Fatalf("append: %v", err)
	}
	failed := models.Observation{
		ProductName: "Widget",
		URL:         "http://example.test/Widget",
		Selector:    ".price",
		Status:      models.StatusFetchError,
		ObservedAt:  base.Add(time.Minute),
	}
	if err := st.Append(ctx, failed); err != nil {
		t.Fatalf("append failed check: %v", err)
	}

	got, ok, err := st.Latest(ctx, "Widget")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if got.Status != models.StatusOK {
		t.Fatalf("status = %q, want ok", got.Status)
	}
	if want := decimal.RequireFromString("52.00"); !got.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", got.Price, want)
	}
}

func TestLatestIsolatedPerProduct(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := st.Append(ctx, observation("Widget", "52.00", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.Append(ctx, observation("Gadget", "99.00", now.Add(time.Minute))); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, ok, err := st.Latest(ctx, "Widget")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if want := decimal.RequireFromString("52.00"); !got.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", got.Price, want)
	}
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	prices := []string{"52.00", "51.00", "50.00", "45.50"}
	for i, price := range prices {
		if err := st.Append(ctx, observation("Widget", price, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	history, err := st.History(ctx, "Widget", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if want := decimal.RequireFromString("45.50"); !history[0].Price.Equal(want) {
		t.Fatalf("history[0].Price = %s, want %s", history[0].Price, want)
	}
	if want := decimal.RequireFromString("50.00"); !history[1].Price.Equal(want) {
		t.Fatalf("history[1].Price = %s, want %s", history[1].Price, want)
	}
}

func TestAppendFailedCheckWithoutPrice(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	failed := models.Observation{
		ProductName: "Widget",
		URL:         "http://example.test/Widget",
		Selector:    ".price",
		Status:      models.StatusSelectorNotFound,
		ObservedAt:  time.Now().UTC(),
	}
	if err := st.Append(ctx, failed); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := st.History(ctx, "Widget", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].HasPrice {
		t.Fatalf("failed check should have no price")
	}
	if history[0].Status != models.StatusSelectorNotFound {
		t.Fatalf("status = %q, want selector_not_found", history[0].Status)
	}
}
