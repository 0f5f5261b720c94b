// Package fetch retrieves raw product pages over HTTP.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pricewatch/pricewatch/config"
)

// capture carries one request's outcome from the collector callbacks
// back to the synchronous caller.
type capture struct {
	body   []byte
	status int
	err    error
}

const captureKey = "capture"

// Fetcher retrieves page bodies for the runner. Bodies are cached per
// Fetcher instance so products sharing a URL fetch once per pass.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	cache     *lru.Cache[string, []byte]
	retries   int64
}

// New builds a fetcher configured from cfg.
func New(cfg *config.Config) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		cache:     cache,
	}

	collector.OnResponse(func(r *colly.Response) {
		if res, ok := r.Ctx.GetAny(captureKey).(*capture); ok {
			res.body = r.Body
			res.status = r.StatusCode
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		res, ok := r.Ctx.GetAny(captureKey).(*capture)
		if !ok {
			return
		}
		res.err = err
		if r != nil {
			res.status = r.StatusCode
		}
	})

	return f, nil
}

// WithTransport swaps the underlying HTTP transport. Used by tests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// ResetCache drops all cached bodies. The runner calls this at the
// start of each pass so interval mode never serves stale prices.
func (f *Fetcher) ResetCache() {
	f.cache.Purge()
}

// Retries returns the number of retry attempts made so far.
func (f *Fetcher) Retries() int {
	return int(atomic.LoadInt64(&f.retries))
}

// Get fetches url and returns the raw page body. Transient failures are
// retried with capped exponential backoff; ctx cancellation stops the
// retry loop.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if body, ok := f.cache.Get(url); ok {
		return body, nil
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			atomic.AddInt64(&f.retries, 1)
			select {
			case <-ctx.Done():
				return nil, classify(ctx.Err(), 0)
			case <-time.After(f.backoff(attempt)):
			}
		}

		body, err := f.fetch(url)
		if err == nil {
			f.cache.Add(url, body)
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetch(url string) ([]byte, error) {
	res := &capture{}
	reqCtx := colly.NewContext()
	reqCtx.Put(captureKey, res)

	reqErr := f.collector.Request("GET", url, nil, reqCtx, nil)

	// A non-2xx response surfaces both through OnError and as the
	// Request return value; the capture carries the status code.
	if res.err != nil {
		return nil, classify(res.err, res.status)
	}
	if reqErr != nil {
		return nil, classify(reqErr, res.status)
	}
	if res.status >= http.StatusMultipleChoices {
		return nil, classify(fmt.Errorf("http status %d", res.status), res.status)
	}
	return res.body, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
