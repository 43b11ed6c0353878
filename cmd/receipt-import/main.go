package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/grocery-receipts/internal/async"
	"github.com/joseph-ayodele/grocery-receipts/internal/catalog"
	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/export"
	"github.com/joseph-ayodele/grocery-receipts/internal/importer"
	"github.com/joseph-ayodele/grocery-receipts/internal/ingest"
	repo "github.com/joseph-ayodele/grocery-receipts/internal/repository"
	"github.com/joseph-ayodele/grocery-receipts/internal/utils"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of receipt files (.html/.htm/.json) (required)")
		watch    = flag.Bool("watch", false, "keep running and import receipts as they appear")
		dryRun   = flag.Bool("dry-run", false, "do not read or write the import ledger")
		force    = flag.Bool("force", false, "import receipts even if the ledger already has them")
		noExport = flag.Bool("no-export", false, "skip writing the XLSX report")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to EXPORT_DIR)")
		catPath  = flag.String("catalog", "", "catalog snapshot path (overrides CATALOG_PATH)")
		sinceStr = flag.String("since", "", "skip receipts dated before YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	var since time.Time
	if *sinceStr != "" {
		parsed, err := utils.ParseYMD(*sinceStr)
		if err != nil {
			printError("Error: invalid --since date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		since = parsed
	}

	cfg := common.LoadConfig()
	if *catPath != "" {
		cfg.Catalog.Path = *catPath
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each receipt gets its own run id from the importer; batchID groups them in logs.
	batchID := uuid.NewString()
	logger = logger.With("batch_id", batchID)

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Error("failed to load catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}
	resolver := importer.NewCachedCatalog(cat, 10*time.Minute)

	// No live inventory client ships with the importer; purchases are recorded
	// in memory and reported.
	recorder := importer.NewRecordingSink()
	sink := importer.NewRateLimitedSink(recorder, cfg.Import.SinkRatePerSec, cfg.Import.SinkBurst)

	imp := importer.New(resolver, sink, importer.WithLogger(logger))
	forced := imp
	var ledger repo.LedgerRepository
	if !*dryRun {
		db, err := repo.Open(ctx, repo.Config{
			DSN:             cfg.Ledger.DSN,
			MaxConns:        cfg.Ledger.MaxConns,
			MinConns:        cfg.Ledger.MinConns,
			MaxConnLifetime: cfg.Ledger.MaxConnLifetime,
			MaxConnIdleTime: cfg.Ledger.MaxConnIdleTime,
			DialTimeout:     cfg.Ledger.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open ledger", "error", err)
			os.Exit(1)
		}
		defer repo.Close(db, logger)
		if err := repo.Migrate(ctx, db); err != nil {
			logger.Error("failed to migrate ledger", "error", err)
			os.Exit(1)
		}
		ledger = repo.NewLedgerRepository(db, logger)
		imp = importer.New(resolver, sink, importer.WithLogger(logger), importer.WithLedger(ledger))
	}

	handler := &receiptHandler{
		loader: ingest.NewFSLoader(loc, logger),
		shops:  cat,
		imp:    imp,
		forced: forced,
		ledger: ledger,
		logger: logger,
		since:  since,
	}
	queue := async.NewWorkerQueue(handler, logger,
		async.WithWorkers(cfg.Import.Workers),
		async.WithQueueSize(cfg.Import.QueueSize),
		async.WithProcessTimeout(cfg.Import.ProcessTimeout),
	)

	submit := func(path string) {
		if err := queue.Enqueue(ctx, async.Job{Path: path, Force: *force}); err != nil {
			logger.Warn("enqueue failed", "path", path, "error", err)
		}
	}

	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			SkipHidden:  true,
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		logger.Info("watching for receipts", "dir", *dir)
	loop:
		for {
			select {
			case src, ok := <-events:
				if !ok {
					break loop
				}
				submit(src.Path)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watcher error", "error", err)
			case <-ctx.Done():
				break loop
			}
		}
	} else {
		sources, failures, stats, err := ingest.ScanDirectory(ctx, *dir, true)
		if err != nil {
			logger.Error("failed to scan directory", "error", err)
			os.Exit(1)
		}
		for _, f := range failures {
			logger.Warn("scan failed", "path", f.Path, "error", f.Err)
		}
		logger.Info("scan complete", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		for _, src := range sources {
			submit(src.Path)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Import.ProcessTimeout+5*time.Second)
	queue.Shutdown(shutdownCtx)
	cancel()

	reports, failed := handler.Reports()
	var purchased, skipped int
	for _, r := range reports {
		purchased += len(r.Purchased)
		skipped += len(r.Skipped)
	}

	if !*noExport && len(reports) > 0 {
		path := *out
		if path == "" {
			path = filepath.Join(cfg.Export.Dir, export.FileName(batchID, time.Now()))
		}
		xlsx, err := export.NewService(logger).ReportXLSX(context.Background(), reports)
		if err != nil {
			logger.Error("failed to build report", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, xlsx, 0644); err != nil {
			logger.Error("failed to write report", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("report written", "path", path)
	}

	logger.Info("import complete",
		"receipts", len(reports),
		"files_failed", failed,
		"items_purchased", purchased,
		"items_skipped", skipped,
		"units_recorded", len(recorder.Purchases()),
	)
	if failed > 0 {
		os.Exit(2)
	}
}
