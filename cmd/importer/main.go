// Command importer runs financial files through the import pipeline and
// prints the batch result as JSON. With -watch it stays resident and
// sweeps a directory on a cron schedule instead.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/clinicore/ledger-import/internal/domain/import/dedup"
	"github.com/clinicore/ledger-import/internal/domain/import/matcher"
	"github.com/clinicore/ledger-import/internal/domain/import/ocr"
	"github.com/clinicore/ledger-import/internal/domain/import/parser"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
	"github.com/clinicore/ledger-import/internal/domain/import/service"
	"github.com/clinicore/ledger-import/pkg/config"
	"github.com/clinicore/ledger-import/pkg/cron"
	"github.com/clinicore/ledger-import/pkg/money"
	"github.com/clinicore/ledger-import/pkg/storage"
)

type fileOutput struct {
	File         string                    `json:"file"`
	Format       string                    `json:"format"`
	Error        string                    `json:"error,omitempty"`
	TotalInflow  string                    `json:"total_inflow,omitempty"`
	TotalOutflow string                    `json:"total_outflow,omitempty"`
	Result       *record.ImportBatchResult `json:"result,omitempty"`
}

func main() {
	var (
		registryPath = flag.String("registry", "", "JSON file with counterparties and categories for entity matching")
		unitsPath    = flag.String("units", "", "JSON file with business units and card fees for the ledger dialect")
		priorPath    = flag.String("prior", "", "file with one already-imported composite key per line")
		lookupQuery  = flag.String("lookup", "", "search the registry for a counterparty or category and exit")
		watchSpec    = flag.String("watch", "", "cron spec; sweep the given directory instead of importing once")
		metricsAddr  = flag.String("metrics", "", "listen address for Prometheus metrics in watch mode (e.g. :9464)")
		pretty       = flag.Bool("pretty", false, "indent JSON output")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load()

	if *lookupQuery != "" {
		if !runLookup(*registryPath, *lookupQuery, *pretty, logger) {
			os.Exit(1)
		}
		return
	}

	svc, err := buildService(cfg, *registryPath, *unitsPath, logger)
	if err != nil {
		logger.Error("setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	priorKeys, err := loadPriorKeys(*priorPath)
	if err != nil {
		logger.Error("prior keys unreadable", slog.Any("error", err))
		os.Exit(1)
	}
	opts := service.ImportOptions{PriorKeys: priorKeys}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: importer [flags] <file|dir>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watchSpec != "" {
		if *metricsAddr != "" {
			go serveMetrics(*metricsAddr, logger)
		}
		runWatch(ctx, svc, opts, *watchSpec, flag.Arg(0), *pretty, logger)
		return
	}

	if !runOnce(ctx, svc, opts, flag.Args(), *pretty, logger) {
		os.Exit(1)
	}
}

// runLookup answers a one-off registry query over the full-text index and
// prints the ranked hits as JSON.
func runLookup(registryPath, query string, pretty bool, logger *slog.Logger) bool {
	if registryPath == "" {
		logger.Error("-lookup requires -registry")
		return false
	}
	registry, err := loadRegistry(registryPath)
	if err != nil {
		logger.Error("registry unreadable", slog.Any("error", err))
		return false
	}
	idx, err := matcher.NewSearchIndex(registry)
	if err != nil {
		logger.Error("search index setup failed", slog.Any("error", err))
		return false
	}
	defer idx.Close()

	hits, err := idx.Search(query, 10)
	if err != nil {
		logger.Error("lookup failed", slog.Any("error", err))
		return false
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(hits); err != nil {
		logger.Error("writing output", slog.Any("error", err))
		return false
	}
	return true
}

// importAndPrint runs a batch and writes the JSON report; the returned
// slice keeps the input order.
func importAndPrint(ctx context.Context, svc *service.Service, opts service.ImportOptions, files []service.InputFile, pretty bool, logger *slog.Logger) []service.FileResult {
	results := svc.ImportBatch(ctx, files, opts)

	outputs := make([]fileOutput, len(results))
	for i, res := range results {
		outputs[i] = fileOutput{
			File:   res.Name,
			Format: string(res.Format),
			Result: res.Result,
		}
		if res.Err != nil {
			outputs[i].Error = res.Err.Error()
		}
		if res.Result != nil {
			inflow, outflow := res.Result.Totals()
			outputs[i].TotalInflow = money.FormatBRL(inflow)
			outputs[i].TotalOutflow = money.FormatBRL(outflow)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(outputs); err != nil {
		logger.Error("writing output", slog.Any("error", err))
	}
	return results
}

// runOnce imports every named file (directories are expanded one level)
// and reports whether all of them succeeded.
func runOnce(ctx context.Context, svc *service.Service, opts service.ImportOptions, paths []string, pretty bool, logger *slog.Logger) bool {
	files, err := collectFiles(paths)
	if err != nil {
		logger.Error("reading inputs", slog.Any("error", err))
		return false
	}

	ok := true
	for _, res := range importAndPrint(ctx, svc, opts, files, pretty, logger) {
		if res.Err != nil {
			ok = false
		}
	}
	return ok
}

// runWatch sweeps the inbox on the cron schedule, archiving each swept
// file into processed/ or failed/ so the next sweep skips it.
func runWatch(ctx context.Context, svc *service.Service, opts service.ImportOptions, spec, dir string, pretty bool, logger *slog.Logger) {
	inbox, err := storage.NewInbox(dir)
	if err != nil {
		logger.Error("inbox setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	sweep := func(ctx context.Context) {
		pending, err := inbox.Pending()
		if err != nil {
			logger.Error("sweep failed", slog.Any("error", err))
			return
		}
		if len(pending) == 0 {
			return
		}

		files := make([]service.InputFile, 0, len(pending))
		paths := make([]string, 0, len(pending))
		for _, path := range pending {
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping unreadable file", slog.String("file", path), slog.Any("error", err))
				continue
			}
			files = append(files, service.InputFile{Name: filepath.Base(path), Data: data})
			paths = append(paths, path)
		}

		results := importAndPrint(ctx, svc, opts, files, pretty, logger)
		for i, res := range results {
			if errors.Is(res.Err, context.Canceled) {
				// Shutdown mid-sweep: leave the file for the next run.
				continue
			}
			if err := inbox.Archive(paths[i], res.Err == nil); err != nil {
				logger.Warn("could not archive swept file", slog.String("file", paths[i]), slog.Any("error", err))
			}
		}
	}
	sched := cron.NewScheduler(spec, sweep, logger)
	if err := sched.Start(); err != nil {
		logger.Error("scheduler start failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("watching", slog.String("dir", dir), slog.String("spec", spec))

	<-ctx.Done()
	<-sched.Stop().Done()
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}

func buildService(cfg *config.Config, registryPath, unitsPath string, logger *slog.Logger) (*service.Service, error) {
	ledgerCfg, err := loadLedgerConfig(cfg, unitsPath)
	if err != nil {
		return nil, fmt.Errorf("ledger config: %w", err)
	}

	svc := service.New(ledgerCfg, logger).
		WithMaxConcurrentFiles(cfg.Engine.MaxConcurrentFiles)

	if registryPath != "" {
		registry, err := loadRegistry(registryPath)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		svc = svc.WithMatcher(matcher.New(registry))
	}

	if cfg.OCR.Endpoint != "" {
		recognizer := ocr.NewHTTPRecognizer(cfg.OCR.Endpoint, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)
		svc = svc.WithOCRBridge(ocr.NewBridge(recognizer, nil, logger))
	}
	return svc, nil
}

func loadLedgerConfig(cfg *config.Config, unitsPath string) (parser.LedgerConfig, error) {
	out := parser.LedgerConfig{
		PaymentSynonyms: parser.DefaultPaymentSynonyms(),
		CardFees:        parser.DefaultCardFees(),
	}
	if cfg.Engine.CardFeeCreditPct > 0 && cfg.Engine.CardFeeDebitPct > 0 {
		out.CardFees = parser.CardFeeTable{
			Credit: decimal.NewFromFloat(cfg.Engine.CardFeeCreditPct / 100),
			Debit:  decimal.NewFromFloat(cfg.Engine.CardFeeDebitPct / 100),
		}
	}
	if unitsPath == "" {
		return out, nil
	}

	data, err := os.ReadFile(unitsPath)
	if err != nil {
		return out, err
	}
	var units []parser.BusinessUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return out, err
	}
	out.Units = units
	return out, nil
}

func loadRegistry(path string) (matcher.Registry, error) {
	var registry matcher.Registry
	data, err := os.ReadFile(path)
	if err != nil {
		return registry, err
	}
	if err := json.Unmarshal(data, &registry); err != nil {
		return registry, err
	}
	return registry, nil
}

// loadPriorKeys reads one composite key per line; blank lines are skipped.
func loadPriorKeys(path string) (dedup.KeySet, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keys := dedup.NewKeySet()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			keys.Add(line)
		}
	}
	return keys, scanner.Err()
}

// collectFiles expands directory arguments one level deep.
func collectFiles(paths []string) ([]service.InputFile, error) {
	var files []service.InputFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, service.InputFile{Name: filepath.Base(path), Data: data})
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(path, entry.Name()))
			if err != nil {
				return nil, err
			}
			files = append(files, service.InputFile{Name: entry.Name(), Data: data})
		}
	}
	return files, nil
}
