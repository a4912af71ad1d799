package ocr

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// statementLinePattern matches a "date description amount" statement line
// in an extracted text layer.
var statementLinePattern = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+(.+?)\s+(-?[\d.,]+)\s*$`)

// extractTextLayer tries to read an embedded PDF text layer and parse
// statement lines from it. Returns ok=false when the document is not a
// PDF, has no text layer, or yields no parseable lines - callers then fall
// through to rasterization + OCR.
func extractTextLayer(document []byte) (recs []record.NormalizedRecord, ok bool) {
	if !bytes.HasPrefix(document, []byte("%PDF")) {
		return nil, false
	}

	// The pdf library panics on malformed cross-reference tables; treat
	// that the same as a missing text layer.
	defer func() {
		if recover() != nil {
			recs = nil
			ok = false
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return nil, false
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, false
	}
	raw, err := io.ReadAll(textReader)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}

	for _, line := range strings.Split(string(raw), "\n") {
		m := statementLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		date, okDate := normalizer.Date(m[1])
		if !okDate {
			continue
		}
		signed, warnings := normalizer.Amount(m[3])
		if len(warnings) > 0 {
			continue
		}
		amount, inflow := normalizer.Magnitude(signed)
		if !amount.IsPositive() {
			continue
		}

		direction := record.Outflow
		if inflow {
			direction = record.Inflow
		}
		recs = append(recs, record.NormalizedRecord{
			Date:        date,
			Description: normalizer.CleanDescription(m[2]),
			Amount:      amount,
			Direction:   direction,
		})
	}

	return recs, len(recs) > 0
}
