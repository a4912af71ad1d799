package archive

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// payerReport is one parsed spreadsheet entry: its normalized records plus
// the provider-level summary that becomes batch metadata.
type payerReport struct {
	records []record.NormalizedRecord
	summary record.ProviderSummary
}

var (
	errNoHeader       = errors.New("no header row found")
	errMissingColumns = errors.New("missing essential date/amount columns")
)

// reportPeriodPattern matches the "01/03/2025 a 31/03/2025" header cell.
var reportPeriodPattern = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+a\s+(\d{2}/\d{2}/\d{4})`)

const payerHeaderScanWindow = 20

// parsePayerReport reads one payer spreadsheet. The provider name is the
// filename minus its extension; a report is self-pay ("particular") when
// that name contains the keyword.
func parsePayerReport(fileName string, payload []byte) (*payerReport, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	provider := providerFromFileName(fileName)
	report := &payerReport{
		summary: record.ProviderSummary{
			Provider:     provider,
			FileName:     fileName,
			IsParticular: strings.Contains(normalizer.Fold(provider), "PARTICULAR"),
		},
	}

	report.summary.PeriodStart, report.summary.PeriodEnd = findReportPeriod(rows)

	headerIdx, cols, err := findPayerHeader(rows)
	if err != nil {
		return nil, err
	}

	for _, row := range rows[headerIdx+1:] {
		cell := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		date, ok := normalizer.Date(cell(cols.date))
		if !ok {
			continue
		}
		amountSigned, warnings := normalizer.Amount(cell(cols.amount))
		amount, _ := normalizer.Magnitude(amountSigned)
		if !amount.IsPositive() && len(warnings) == 0 {
			continue
		}

		rec := record.NormalizedRecord{
			Date:          date,
			Description:   normalizer.CleanDescription(cell(cols.name)),
			Amount:        amount,
			Direction:     record.Inflow,
			ParseWarnings: warnings,
		}
		report.records = append(report.records, rec)
		report.summary.RowCount++
		report.summary.Total = report.summary.Total.Add(amount)
	}

	sort.SliceStable(report.records, func(i, j int) bool {
		return report.records[i].Date.After(report.records[j].Date)
	})
	return report, nil
}

func providerFromFileName(fileName string) string {
	base := fileName
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return normalizer.CleanDescription(base)
}

type payerColumns struct {
	date   int
	name   int
	amount int
}

// findPayerHeader locates the header row by keyword and maps the essential
// columns. Payer reports vary in column order but keep recognizable labels.
func findPayerHeader(rows [][]string) (int, payerColumns, error) {
	limit := min(len(rows), payerHeaderScanWindow)

	for i := 0; i < limit; i++ {
		cols := payerColumns{date: -1, name: -1, amount: -1}
		for col, cellRaw := range rows[i] {
			h := strings.ToLower(strings.TrimSpace(cellRaw))
			switch {
			case cols.date < 0 && strings.Contains(h, "data"):
				cols.date = col
			case cols.name < 0 && (strings.Contains(h, "paciente") || strings.Contains(h, "nome")):
				cols.name = col
			case cols.amount < 0 && strings.Contains(h, "valor"):
				cols.amount = col
			}
		}
		if cols.date >= 0 && cols.amount >= 0 {
			return i, cols, nil
		}
	}

	// Fall back to a date-led data row with the fixed date/name/amount layout.
	for i := 0; i < limit; i++ {
		if len(rows[i]) > 0 && normalizer.LooksLikeDate(rows[i][0]) {
			return i - 1, payerColumns{date: 0, name: 1, amount: 2}, nil
		}
	}

	return 0, payerColumns{}, errNoHeader
}

// findReportPeriod scans the pre-table rows for a "DD/MM/YYYY a DD/MM/YYYY"
// cell. Zero times mean no period header was present.
func findReportPeriod(rows [][]string) (start, end time.Time) {
	limit := min(len(rows), payerHeaderScanWindow)
	for i := 0; i < limit; i++ {
		for _, cellRaw := range rows[i] {
			m := reportPeriodPattern.FindStringSubmatch(cellRaw)
			if m == nil {
				continue
			}
			s, okS := normalizer.Date(m[1])
			e, okE := normalizer.Date(m[2])
			if okS && okE {
				return s, e
			}
		}
	}
	return start, end
}
