// Package ocr bridges scanned/PDF statements into the normalized record
// pipeline. Image recognition itself is an external collaborator; this
// package only rasterizes pages, validates the collaborator's tuples and
// folds them into NormalizedRecords.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// Transaction is one tuple returned by the OCR collaborator for a page.
// Type uses the collaborator's vocabulary: ENTRADA (inflow) or SAIDA.
type Transaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
}

// Recognizer is the external OCR collaborator contract: one rasterized
// page in, transaction tuples out.
type Recognizer interface {
	Recognize(ctx context.Context, page []byte) ([]Transaction, error)
}

// Rasterizer renders document pages to images the recognizer accepts.
type Rasterizer interface {
	// Pages returns one rendered image per page.
	Pages(ctx context.Context, document []byte) ([][]byte, error)
}

// ErrNoRecognizer indicates the bridge was built without an OCR collaborator.
var ErrNoRecognizer = errors.New("no OCR recognizer configured")

// Bridge folds scanned statements into the normalized pipeline.
type Bridge struct {
	recognizer Recognizer
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewBridge wires the external collaborators. A nil logger disables logging.
func NewBridge(recognizer Recognizer, rasterizer Rasterizer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{recognizer: recognizer, rasterizer: rasterizer, logger: logger}
}

// ParseScanned processes a scanned statement page by page, sequentially
// within the file. A failing page is skipped with a logged reason and never
// aborts the file. When the caller cancels, no new OCR calls are issued;
// the in-flight page completes so partial results stay auditable.
func (b *Bridge) ParseScanned(ctx context.Context, document []byte) (*record.ImportBatchResult, error) {
	result := &record.ImportBatchResult{}

	// Fast path: statements exported as PDFs often carry an embedded text
	// layer, which spares the OCR round-trips entirely.
	if recs, ok := extractTextLayer(document); ok {
		b.logger.Debug("using embedded text layer", "records", len(recs))
		for _, rec := range recs {
			result.Records = append(result.Records, rec)
			result.ObservePeriod(rec.Date)
		}
		finish(result)
		return result, nil
	}

	if b.recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if b.rasterizer == nil {
		return nil, errors.New("no page rasterizer configured")
	}

	pages, err := b.rasterizer.Pages(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize document: %w", err)
	}

	for i, page := range pages {
		if ctx.Err() != nil {
			b.logger.Info("batch aborted, stopping OCR calls", "pagesDone", i)
			break
		}

		tuples, err := b.recognizer.Recognize(ctx, page)
		if err != nil {
			b.logger.Warn("skipping failed OCR page", "page", i+1, "error", err)
			result.SkippedEntries = append(result.SkippedEntries, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}

		for _, tuple := range tuples {
			rec, ok := coerceTuple(tuple)
			if !ok {
				continue
			}
			result.Records = append(result.Records, rec)
			result.ObservePeriod(rec.Date)
		}
	}

	finish(result)
	return result, nil
}

// coerceTuple validates one collaborator tuple at the boundary before it
// enters the pipeline. Undatable tuples are dropped; zero amounts are kept
// with a warning so reviewers can tell them from real zero-value lines.
func coerceTuple(t Transaction) (record.NormalizedRecord, bool) {
	date, ok := normalizer.Date(t.Date)
	if !ok {
		return record.NormalizedRecord{}, false
	}

	direction := record.Inflow
	if strings.EqualFold(strings.TrimSpace(t.Type), "SAIDA") {
		direction = record.Outflow
	}

	amount := decimal.NewFromFloat(t.Amount).Round(2)
	if amount.IsNegative() {
		amount = amount.Neg()
		direction = record.Outflow
	}

	var warnings []string
	if amount.IsZero() {
		warnings = append(warnings, "OCR returned a zero amount")
	}

	return record.NormalizedRecord{
		Date:          date,
		Description:   normalizer.CleanDescription(t.Description),
		Amount:        amount,
		Direction:     direction,
		ParseWarnings: warnings,
	}, true
}

func finish(result *record.ImportBatchResult) {
	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Date.After(result.Records[j].Date)
	})
	result.Recount()
}
