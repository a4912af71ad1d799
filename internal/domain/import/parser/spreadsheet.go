package parser

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// ErrNoHeaderRow indicates neither a keyword header nor a date-led data row
// was found in the scanned window.
var ErrNoHeaderRow = errors.New("could not locate header row")

// headerScanWindow limits how deep the header discovery looks. Lab exports
// put a logo banner and filter summary above the table, never more than a
// handful of rows.
const headerScanWindow = 20

// Fixed column layout of the lab-reconciliation export, applied once the
// header row is found.
const (
	colDate = iota
	colUnit
	colCode
	colPatient
	colPayer
	colGross
	colDiscount
	colSurcharge
	colPaid
	colMethod
	colOperator
)

var ledgerHeaderKeywords = []string{
	"data", "cadastro", "codigo", "código", "paciente", "nome", "valor", "convenio", "convênio",
}

var nonDataMarkers = []string{
	"TOTAL", "SUBTOTAL", "SUB-TOTAL", "RESUMO", "UNIDADE:", "PERIODO", "PAGINA",
}

// ParseLedgerSheet reads a lab-reconciliation spreadsheet (the superset
// dialect used for cash-custody bookkeeping) into LedgerImportRows.
func ParseLedgerSheet(r io.Reader, cfg LedgerConfig) (*record.ImportBatchResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := firstSheetRows(f)
	if err != nil {
		return nil, err
	}

	headerIdx, err := findLedgerHeader(rows)
	if err != nil {
		return nil, err
	}

	result := &record.ImportBatchResult{}
	for _, row := range rows[headerIdx+1:] {
		rec, ok := parseLedgerRow(row, cfg)
		if !ok {
			continue
		}
		result.LedgerRows = append(result.LedgerRows, rec)
		result.ObservePeriod(rec.Date)
	}

	sort.SliceStable(result.LedgerRows, func(i, j int) bool {
		return result.LedgerRows[i].Date.After(result.LedgerRows[j].Date)
	})
	result.Recount()
	return result, nil
}

func firstSheetRows(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("spreadsheet is empty")
	}
	return rows, nil
}

// findLedgerHeader scans the first rows for one carrying recognizable
// header keywords. When no explicit header exists, it falls back to the
// first row whose first cell parses as a date and treats the row above it
// as the header.
func findLedgerHeader(rows [][]string) (int, error) {
	limit := min(len(rows), headerScanWindow)

	for i := 0; i < limit; i++ {
		hits := 0
		for _, cell := range rows[i] {
			lower := strings.ToLower(strings.TrimSpace(cell))
			if lower == "" {
				continue
			}
			for _, kw := range ledgerHeaderKeywords {
				if strings.Contains(lower, kw) {
					hits++
					break
				}
			}
		}
		if hits >= 2 {
			return i, nil
		}
	}

	for i := 0; i < limit; i++ {
		if len(rows[i]) > 0 && normalizer.LooksLikeDate(rows[i][0]) {
			// Header is the row above the first dated row; -1 when data
			// starts on the very first row.
			return i - 1, nil
		}
	}

	return 0, ErrNoHeaderRow
}

func parseLedgerRow(row []string, cfg LedgerConfig) (record.LedgerImportRow, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	first := cell(colDate)
	if first == "" || isNonDataMarker(first) {
		return record.LedgerImportRow{}, false
	}

	date, ok := normalizer.Date(first)
	if !ok {
		// Undatable rows cannot be reconciled; drop them outright.
		return record.LedgerImportRow{}, false
	}

	var warnings []string
	readAmount := func(idx int, field string) decimal.Decimal {
		raw := cell(idx)
		if raw == "" {
			return decimal.Zero
		}
		d, w := normalizer.Amount(raw)
		for _, msg := range w {
			warnings = append(warnings, field+": "+msg)
		}
		if d.IsNegative() {
			d = d.Neg()
		}
		return d
	}

	gross := readAmount(colGross, "gross")
	discount := readAmount(colDiscount, "discount")
	surcharge := readAmount(colSurcharge, "surcharge")
	net := readAmount(colPaid, "paid")

	// Ratio over gross+discount, kept as-is from the legacy system even
	// though it presumes gross is already net of this discount; verified
	// pending with the finance team, do not "fix" silently.
	denominator := gross.Add(discount)
	ratio := decimal.Zero
	if denominator.IsPositive() {
		ratio = discount.DivRound(denominator, 6)
	}

	methodRaw := cell(colMethod)
	method, matched := cfg.ResolvePaymentMethod(methodRaw)
	if !matched && methodRaw != "" {
		warnings = append(warnings, fmt.Sprintf("payment method %q not recognized, defaulted to PIX", methodRaw))
	}

	rec := record.LedgerImportRow{
		Date:             date,
		Description:      normalizer.JoinDescription(cell(colPatient), cell(colPayer)),
		ExternalCode:     cell(colCode),
		Patient:          cell(colPatient),
		Payer:            cell(colPayer),
		Operator:         cell(colOperator),
		GrossAmount:      gross,
		DiscountAmount:   discount,
		SurchargeAmount:  surcharge,
		NetAmount:        net,
		DiscountRatio:    ratio,
		DiscountLevel:    record.DiscountLevelFor(ratio),
		PaymentMethodRaw: methodRaw,
		PaymentMethod:    method,
	}

	unitCode, resolved := cfg.ResolveUnit(cell(colUnit), cell(colCode))
	if resolved {
		rec.BusinessUnitCode = unitCode
	} else {
		// Keep the row so financial totals remain auditable.
		rec.UnitError = fmt.Sprintf("business unit unresolved (label %q, code %q)", cell(colUnit), cell(colCode))
	}

	if method == record.PaymentCard {
		rate, fallback := cfg.CardFeeFor(methodRaw)
		rec.CardFeeRatio = rate
		rec.CardFeeAmount = net.Mul(rate).Round(2)
		rec.NetAfterFee = net.Sub(rec.CardFeeAmount)
		if fallback {
			warnings = append(warnings, "card fee computed from fallback rate")
		}
	}

	rec.ParseWarnings = warnings
	return rec, true
}

func isNonDataMarker(first string) bool {
	folded := normalizer.Fold(first)
	for _, marker := range nonDataMarkers {
		if strings.HasPrefix(folded, marker) {
			return true
		}
	}
	return false
}
