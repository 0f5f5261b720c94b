package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pricewatch/pricewatch/config"
	"github.com/pricewatch/pricewatch/fetch"
	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/store"
	"github.com/pricewatch/pricewatch/watch"
)

func main() {
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	productsDefault := defaultCfg.ProductsFile
	if value, ok := config.EnvString("PRICEWATCH_PRODUCTS"); ok {
		productsDefault = value
	}
	dbDefault := defaultCfg.DBPath
	if value, ok := config.EnvString("PRICEWATCH_DB"); ok {
		dbDefault = value
	}
	intervalDefault := defaultCfg.Interval
	if value, ok, err := config.EnvDuration("PRICEWATCH_INTERVAL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PRICEWATCH_INTERVAL: %v\n", err)
		os.Exit(1)
	} else if ok {
		intervalDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("PRICEWATCH_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	productsFile := flag.String("products", productsDefault, "Path to the products YAML file")
	dbPath := flag.String("db", dbDefault, "Path to the SQLite history database")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "HTTP request timeout")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum fetch retry attempts per product")
	retryBackoff := flag.Duration("retry-backoff", defaultCfg.RetryBackoff, "Initial retry backoff")
	retryBackoffMax := flag.Duration("retry-backoff-max", defaultCfg.RetryBackoffMax, "Maximum retry backoff")
	interval := flag.Duration("interval", intervalDefault, "Repeat the pass at this interval (0 runs once)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	historyName := flag.String("history", "", "Print recent observations for a product and exit")
	historyLimit := flag.Int("history-limit", 20, "Number of history rows to print")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.ProductsFile = *productsFile
	cfg.DBPath = *dbPath
	cfg.Timeout = *timeout
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = *retryBackoff
	cfg.RetryBackoffMax = *retryBackoffMax
	cfg.Interval = *interval
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("opening history database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close history database", slog.Any("error", err))
		}
	}()

	if *historyName != "" {
		if err := printHistory(st, *historyName, *historyLimit); err != nil {
			slog.Error("reading history", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	products, err := config.LoadProducts(cfg.ProductsFile)
	if err != nil {
		slog.Error("loading products", slog.Any("error", err))
		os.Exit(1)
	}

	fetcher, err := fetch.New(cfg)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	watcher := watch.New(cfg, products, fetcher, st, watch.NewConsoleNotifier(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(watcher.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting pass",
		slog.Int("products", len(products)),
		slog.String("db", cfg.DBPath),
		slog.Duration("interval", cfg.Interval),
	)

	result, err := watcher.Run(ctx, cfg.Interval)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watch failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result)
}

func printHistory(st *store.Store, name string, limit int) error {
	observations, err := st.History(context.Background(), name, limit)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Printf("No observations for %q.\n", name)
		return nil
	}

	for _, obs := range observations {
		price := "-"
		if obs.HasPrice {
			price = obs.Price.String()
		}
		fmt.Printf("%s  %-10s  %s\n", obs.ObservedAt.Format(time.RFC3339), price, obs.Status)
	}
	return nil
}

func printSummary(result *models.RunResult) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Pass complete")
	fmt.Printf("  Checked:     %d\n", result.Checked)
	fmt.Printf("  Alerts:      %d\n", result.AlertCount)
	fmt.Printf("  Errors:      %d\n", result.ErrorCount)
	fmt.Printf("  Retries:     %d\n", result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types: %v\n", result.ErrorsByType)
	}
	if len(result.FailedProducts) > 0 {
		fmt.Printf("  Failed:      %v\n", result.FailedProducts)
	}
	fmt.Printf("  Duration:    %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Println(separator)

	if result.AlertCount == 0 {
		fmt.Println("No alerts this run.")
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
