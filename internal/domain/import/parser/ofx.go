// Package parser implements the three dialect parsers: OFX tag/value
// statements, delimited text, and the lab-reconciliation spreadsheet layout.
// Parsers are pure, allocation-only functions safe to call in parallel.
package parser

import (
	"errors"
	"sort"
	"strings"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// ErrNoTransactions indicates an OFX payload without a single statement block.
var ErrNoTransactions = errors.New("no transaction blocks found")

// ParseOFX extracts institution metadata and every STMTTRN block from an
// OFX statement. Blocks missing a date or amount are skipped silently;
// the format is too terse for a byte offset to be actionable.
func ParseOFX(data []byte) (*record.ImportBatchResult, error) {
	text := string(normalizer.DecodeText(data))

	result := &record.ImportBatchResult{
		InstitutionName: tagValue(text, "ORG"),
		AccountID:       tagValue(text, "ACCTID"),
	}

	blocks := tagBlocks(text, "STMTTRN")
	if len(blocks) == 0 {
		return nil, ErrNoTransactions
	}

	for _, block := range blocks {
		date, ok := normalizer.OFXDate(tagValue(block, "DTPOSTED"))
		if !ok {
			continue
		}

		amountRaw := tagValue(block, "TRNAMT")
		if amountRaw == "" {
			continue
		}
		signed, warnings := normalizer.Amount(amountRaw)
		if len(warnings) > 0 {
			// TRNAMT is machine-written; if it does not parse the block is
			// garbage, not a zero-value transaction.
			continue
		}
		amount, inflow := normalizer.Magnitude(signed)

		direction := record.Outflow
		if inflow {
			direction = record.Inflow
		}

		desc := tagValue(block, "MEMO")
		if desc == "" {
			desc = tagValue(block, "NAME")
		}

		rec := record.NormalizedRecord{
			Date:        date,
			Description: normalizer.CleanDescription(desc),
			Amount:      amount,
			Direction:   direction,
			SourceID:    tagValue(block, "FITID"),
		}
		result.Records = append(result.Records, rec)
		result.ObservePeriod(date)
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Date.After(result.Records[j].Date)
	})
	result.Recount()
	return result, nil
}

// tagValue returns the text following the first <TAG>, trimmed at the next
// element. OFX is SGML-flavored: close tags are optional.
func tagValue(text, tag string) string {
	open := "<" + tag + ">"
	idx := strings.Index(text, open)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(open):]
	if end := strings.IndexAny(rest, "<\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// tagBlocks returns the contents of every <TAG>...</TAG> section. A missing
// close tag ends the block at the next open tag of the same name.
func tagBlocks(text, tag string) []string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"

	var blocks []string
	for {
		start := strings.Index(text, open)
		if start < 0 {
			return blocks
		}
		text = text[start+len(open):]

		end := strings.Index(text, closeTag)
		next := strings.Index(text, open)
		switch {
		case end >= 0 && (next < 0 || end < next):
			blocks = append(blocks, text[:end])
			text = text[end+len(closeTag):]
		case next >= 0:
			blocks = append(blocks, text[:next])
			text = text[next:]
		default:
			blocks = append(blocks, text)
			return blocks
		}
	}
}
