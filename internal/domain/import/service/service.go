// Package service orchestrates a file through the import pipeline:
// detect format, parse, dedup against caller-supplied prior keys, match
// entities, and assemble the batch result. Data flows strictly forward;
// each stage returns a new record set and aggregation is append-only.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/clinicore/ledger-import/internal/domain/import/archive"
	"github.com/clinicore/ledger-import/internal/domain/import/dedup"
	"github.com/clinicore/ledger-import/internal/domain/import/matcher"
	"github.com/clinicore/ledger-import/internal/domain/import/ocr"
	"github.com/clinicore/ledger-import/internal/domain/import/parser"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
	"github.com/clinicore/ledger-import/internal/domain/import/sniffer"
)

// ErrUnrecognizedFormat fails the whole file rather than guessing content.
var ErrUnrecognizedFormat = errors.New("unrecognized file format")

// defaultMaxConcurrentFiles caps batch parallelism. Two at a time keeps
// the OCR collaborator under its rate limit; plain parsing is CPU-bound
// and would tolerate more.
const defaultMaxConcurrentFiles = 2

// ImportOptions carries per-call collaborator data.
type ImportOptions struct {
	// PriorKeys is the pre-fetched set of composite keys already imported
	// for the relevant scope. Nil skips duplicate flagging.
	PriorKeys dedup.KeySet
}

// InputFile is one uploaded file in a batch.
type InputFile struct {
	Name string
	Data []byte
}

// FileResult pairs one batch file with its outcome. Err is set for
// unrecoverable per-file failures; sibling files are unaffected.
type FileResult struct {
	Name   string
	Format sniffer.Format
	Result *record.ImportBatchResult
	Err    error
}

// Service is the batch orchestrator.
type Service struct {
	ledgerCfg     parser.LedgerConfig
	entityMatcher *matcher.Matcher
	ocrBridge     *ocr.Bridge
	extractor     *archive.Extractor
	logger        *slog.Logger
	maxConcurrent int
}

// New creates the orchestrator. The ledger config is the immutable
// reference data for the spreadsheet dialect.
func New(ledgerCfg parser.LedgerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		ledgerCfg:     ledgerCfg,
		extractor:     archive.NewExtractor(logger),
		logger:        logger,
		maxConcurrent: defaultMaxConcurrentFiles,
	}
}

// WithMatcher adds entity matching for bank-dialect records.
func (s *Service) WithMatcher(m *matcher.Matcher) *Service {
	s.entityMatcher = m
	return s
}

// WithOCRBridge adds scanned-document support.
func (s *Service) WithOCRBridge(b *ocr.Bridge) *Service {
	s.ocrBridge = b
	return s
}

// WithMaxConcurrentFiles overrides the batch concurrency cap.
func (s *Service) WithMaxConcurrentFiles(n int) *Service {
	if n > 0 {
		s.maxConcurrent = n
	}
	return s
}

// ImportFile runs the full pipeline for a single file.
func (s *Service) ImportFile(ctx context.Context, filename string, data []byte, opts ImportOptions) (*record.ImportBatchResult, error) {
	format := sniffer.Detect(filename, data)

	result, err := s.parse(ctx, format, filename, data)
	if err != nil {
		filesProcessed.WithLabelValues(string(format), "failed").Inc()
		return nil, err
	}

	if opts.PriorKeys != nil {
		dedup.Flag(result, opts.PriorKeys)
	}

	// Entity matching applies to bank dialects only; the ledger dialect
	// resolves its counterparty (payer) from the row itself.
	if s.entityMatcher != nil && isBankDialect(format) {
		s.entityMatcher.MatchBatch(result)
	}

	filesProcessed.WithLabelValues(string(format), "succeeded").Inc()
	recordsParsed.Add(float64(result.TotalRecords))
	duplicatesFlagged.Add(float64(result.DuplicateRecords))
	entriesSkipped.Add(float64(len(result.SkippedEntries)))

	s.logger.Info("file imported",
		slog.String("file", filename),
		slog.String("format", string(format)),
		slog.Int("records", result.TotalRecords),
		slog.Int("duplicates", result.DuplicateRecords),
		slog.Int("invalid", result.InvalidRecords),
	)
	return result, nil
}

func (s *Service) parse(ctx context.Context, format sniffer.Format, filename string, data []byte) (*record.ImportBatchResult, error) {
	switch format {
	case sniffer.FormatOFX:
		return parser.ParseOFX(data)
	case sniffer.FormatDelimited:
		return parser.ParseDelimited(data)
	case sniffer.FormatSheet:
		return parser.ParseLedgerSheet(bytes.NewReader(data), s.ledgerCfg)
	case sniffer.FormatArchive:
		return s.extractor.Extract(data)
	case sniffer.FormatScanned:
		if s.ocrBridge == nil {
			return nil, errors.New("scanned documents require an OCR bridge")
		}
		return s.ocrBridge.ParseScanned(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, filename)
	}
}

func isBankDialect(format sniffer.Format) bool {
	switch format {
	case sniffer.FormatOFX, sniffer.FormatDelimited, sniffer.FormatScanned:
		return true
	}
	return false
}

// ImportBatch processes a multi-file upload with bounded concurrency.
// One failed file never affects its siblings; results keep input order.
func (s *Service) ImportBatch(ctx context.Context, files []InputFile, opts ImportOptions) []FileResult {
	results := make([]FileResult, len(files))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.maxConcurrent
	if workers > len(files) {
		workers = len(files)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				file := files[idx]
				result, err := s.ImportFile(ctx, file.Name, file.Data, opts)
				results[idx] = FileResult{
					Name:   file.Name,
					Format: sniffer.Detect(file.Name, file.Data),
					Result: result,
					Err:    err,
				}
			}
		}()
	}

	for idx := range files {
		// Stop feeding new files on abort; in-flight files complete so
		// partial results stay auditable.
		if ctx.Err() != nil {
			results[idx] = FileResult{Name: files[idx].Name, Err: ctx.Err()}
			continue
		}
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}
