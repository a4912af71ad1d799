// Package archive opens ZIP bundles of payer-specific spreadsheets and
// feeds each recognized entry to the payer-report parser. One bad entry is
// skipped with a logged reason; the rest of the archive still imports.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// ErrCorruptArchive indicates the container itself could not be opened.
var ErrCorruptArchive = errors.New("corrupt or unreadable archive")

// Extractor fans a ZIP container out to the payer-report parser.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an archive extractor. A nil logger disables logging.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Extract iterates archive entries, skipping directories and dot-files,
// and parses every .xls/.xlsx entry as a payer report. The archive-level
// period is the union (min start, max end) across parsed entries.
func (e *Extractor) Extract(data []byte) (*record.ImportBatchResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	result := &record.ImportBatchResult{}

	for _, entry := range zr.File {
		name := path.Base(entry.Name)
		if entry.FileInfo().IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(path.Ext(name))
		if ext != ".xls" && ext != ".xlsx" {
			continue
		}

		report, err := e.parseEntry(entry)
		if err != nil {
			e.logger.Warn("skipping archive entry", "entry", entry.Name, "error", err)
			result.SkippedEntries = append(result.SkippedEntries, fmt.Sprintf("%s: %v", entry.Name, err))
			continue
		}

		result.Records = append(result.Records, report.records...)
		result.Providers = append(result.Providers, report.summary)
		if !report.summary.PeriodStart.IsZero() {
			result.ObservePeriod(report.summary.PeriodStart)
			result.ObservePeriod(report.summary.PeriodEnd)
		}
		for _, rec := range report.records {
			result.ObservePeriod(rec.Date)
		}
	}

	result.Recount()
	return result, nil
}

func (e *Extractor) parseEntry(entry *zip.File) (*payerReport, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}

	return parsePayerReport(path.Base(entry.Name), payload)
}
