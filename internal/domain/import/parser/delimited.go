package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/clinicore/ledger-import/internal/domain/import/normalizer"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
	"github.com/clinicore/ledger-import/internal/domain/import/sniffer"
)

// ErrNoUsableColumns indicates the header row matched neither the known
// column names nor any keyword.
var ErrNoUsableColumns = errors.New("could not map date/amount columns from header")

// statementRow binds the delimited dialect's common header names directly.
// gocsv matches by header name, so one struct covers the banks that label
// columns conventionally; everything else falls back to the keyword scan.
type statementRow struct {
	Date      string `csv:"data"`
	DateAlt   string `csv:"date"`
	DateMov   string `csv:"data mov."`
	DateLanc  string `csv:"data lancamento"`
	Desc      string `csv:"descricao"`
	DescAcc   string `csv:"descrição"`
	DescHist  string `csv:"historico"`
	DescHist2 string `csv:"histórico"`
	DescMemo  string `csv:"memo"`
	DescLanc  string `csv:"lancamento"`
	Details   string `csv:"detalhes"`
	Details2  string `csv:"complemento"`
	Amount    string `csv:"valor"`
	AmountAlt string `csv:"amount"`
	Credit    string `csv:"credito"`
	CreditAcc string `csv:"crédito"`
	Debit     string `csv:"debito"`
	DebitAcc  string `csv:"débito"`
	SourceID  string `csv:"documento"`
}

// ParseDelimited parses a CSV/TSV bank export. The delimiter is ';' when
// present in the header line, else ','. Rows are kept only when the date
// parses and the amount is strictly positive; the result is sorted by date
// descending and the period bounds are the oldest/newest kept record.
func ParseDelimited(data []byte) (*record.ImportBatchResult, error) {
	text := normalizer.DecodeText(data)
	headerLine := sniffer.HeaderLine(text)
	if headerLine == "" {
		return nil, errors.New("file is empty")
	}
	delimiter := sniffer.DetectDelimiter(headerLine)

	records, err := readAll(text, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited file: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("file has no data rows")
	}

	result := &record.ImportBatchResult{}

	rows, gocsvErr := unmarshalRows(text, delimiter)
	if gocsvErr == nil && appendStructRows(result, rows) {
		finishDelimited(result)
		return result, nil
	}

	// Header names did not bind; fall back to keyword-resolved positions.
	hm := ResolveHeaderMap(records[0])
	if !hm.Usable() {
		return nil, ErrNoUsableColumns
	}
	for _, row := range records[1:] {
		appendPositionalRow(result, row, hm)
	}
	finishDelimited(result)
	return result, nil
}

func readAll(text []byte, delimiter rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func unmarshalRows(text []byte, delimiter rune) ([]statementRow, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var rows []statementRow
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// appendStructRows converts gocsv-bound rows. Returns false when the struct
// tags failed to bind both a date column and an amount column, signalling
// the keyword fallback. A date column alone is not enough: a statement whose
// amount header uses an unmapped name ("montante") must still reach the
// keyword scan.
func appendStructRows(result *record.ImportBatchResult, rows []statementRow) bool {
	dateBound := false
	amountBound := false
	for _, row := range rows {
		dateRaw := coalesce(row.Date, row.DateAlt, row.DateMov, row.DateLanc)
		singleRaw := coalesce(row.Amount, row.AmountAlt)
		creditRaw := coalesce(row.Credit, row.CreditAcc)
		debitRaw := coalesce(row.Debit, row.DebitAcc)
		if dateRaw != "" {
			dateBound = true
		}
		if singleRaw != "" || creditRaw != "" || debitRaw != "" {
			amountBound = true
		}
		date, ok := normalizer.Date(dateRaw)
		if !ok {
			continue
		}

		desc := normalizer.JoinDescription(
			coalesce(row.Desc, row.DescAcc, row.DescHist, row.DescHist2, row.DescMemo, row.DescLanc),
			coalesce(row.Details, row.Details2),
		)

		var amount decimal.Decimal
		var direction record.Direction
		var warnings []string

		if singleRaw != "" {
			signed, w := normalizer.Amount(singleRaw)
			warnings = w
			magnitude, inflow := normalizer.Magnitude(signed)
			amount = magnitude
			direction = record.Outflow
			if inflow {
				direction = record.Inflow
			}
		} else {
			amount, direction, warnings = resolveDoubleEntry(creditRaw, debitRaw)
		}

		if !amount.IsPositive() {
			continue
		}

		result.Records = append(result.Records, record.NormalizedRecord{
			Date:          date,
			Description:   desc,
			Amount:        amount,
			Direction:     direction,
			SourceID:      strings.TrimSpace(row.SourceID),
			ParseWarnings: warnings,
		})
		result.ObservePeriod(date)
	}
	return dateBound && amountBound
}

func appendPositionalRow(result *record.ImportBatchResult, row []string, hm HeaderMap) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	date, ok := normalizer.Date(cell(hm.Date))
	if !ok {
		return
	}

	desc := normalizer.JoinDescription(cell(hm.Desc), cell(hm.Details))

	var amount decimal.Decimal
	var direction record.Direction
	var warnings []string

	if hm.IsDoubleEntry() {
		amount, direction, warnings = resolveDoubleEntry(cell(hm.Credit), cell(hm.Debit))
	} else {
		signed, w := normalizer.Amount(cell(hm.Amount))
		warnings = w
		magnitude, inflow := normalizer.Magnitude(signed)
		amount = magnitude
		direction = record.Outflow
		if inflow {
			direction = record.Inflow
		}
	}

	if !amount.IsPositive() {
		return
	}

	result.Records = append(result.Records, record.NormalizedRecord{
		Date:          date,
		Description:   desc,
		Amount:        amount,
		Direction:     direction,
		ParseWarnings: warnings,
	})
	result.ObservePeriod(date)
}

// resolveDoubleEntry maps a credit/debit pair onto magnitude and direction.
// Exactly one side is expected to be non-zero per row; credit wins a tie.
func resolveDoubleEntry(creditRaw, debitRaw string) (decimal.Decimal, record.Direction, []string) {
	credit, creditWarn := normalizer.Amount(creditRaw)
	if credit.IsNegative() {
		credit = credit.Neg()
	}
	if credit.IsPositive() {
		return credit, record.Inflow, creditWarn
	}

	debit, debitWarn := normalizer.Amount(debitRaw)
	if debit.IsNegative() {
		debit = debit.Neg()
	}
	return debit, record.Outflow, debitWarn
}

func finishDelimited(result *record.ImportBatchResult) {
	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Date.After(result.Records[j].Date)
	})
	result.Recount()
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
