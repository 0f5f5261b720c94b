// Package models defines data structures for the price watcher.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one configured watch target. Products are read from the
// products file at startup and are immutable for the duration of a run.
type Product struct {
	Name        string
	URL         string
	Selector    string
	TargetPrice decimal.Decimal
	HasTarget   bool
}

// Observation statuses recorded in the price history table. Failed
// checks are recorded too so gaps in the history are visible.
const (
	StatusOK               = "ok"
	StatusFetchError       = "fetch_error"
	StatusSelectorNotFound = "selector_not_found"
	StatusParseFailed      = "parse_failed"
	StatusStoreError       = "store_error"
)

// Observation is one recorded price check for a product.
type Observation struct {
	ID          int64
	ProductName string
	URL         string
	Price       decimal.Decimal
	HasPrice    bool
	Target      decimal.Decimal
	HasTarget   bool
	Selector    string
	Status      string
	ObservedAt  time.Time
}

// AlertEvent is the transient signal produced when a price reaches the
// configured target. It is emitted, not stored.
type AlertEvent struct {
	ProductName string
	Price       decimal.Decimal
	TargetPrice decimal.Decimal
	Previous    *decimal.Decimal
}

// RunResult holds the overall outcome of one pass over the product list.
type RunResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Checked        int
	AlertCount     int
	ErrorCount     int
	RetryCount     int
	FailedProducts []string
	ErrorsByType   map[string]int
}
