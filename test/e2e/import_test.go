// Package e2etest exercises the full import pipeline end to end: sniffer,
// dialect parser, dedup and entity matching, driven through the batch
// orchestrator exactly as the CLI drives it.
package e2etest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/clinicore/ledger-import/internal/domain/import/dedup"
	"github.com/clinicore/ledger-import/internal/domain/import/matcher"
	"github.com/clinicore/ledger-import/internal/domain/import/parser"
	"github.com/clinicore/ledger-import/internal/domain/import/record"
	"github.com/clinicore/ledger-import/internal/domain/import/service"
	"github.com/clinicore/ledger-import/internal/domain/import/sniffer"
)

func buildService() *service.Service {
	cfg := parser.LedgerConfig{
		Units: []parser.BusinessUnit{
			{Code: "CEN", Label: "Clinica Centro", Prefixes: []string{"C-"}},
		},
	}
	registry := matcher.Registry{
		Counterparties: []matcher.Counterparty{
			{
				ID:       uuid.New(),
				Name:     "Maria Lucia Ferreira",
				Patterns: []string{"ALUGUEL MARIA", "MARIA LUCIA"},
			},
		},
		Categories: []matcher.Category{
			{ID: uuid.New(), Name: "Aluguel", Type: "expense", Keywords: []string{"aluguel"}},
		},
	}
	return service.New(cfg, nil).WithMatcher(matcher.New(registry))
}

// TestOFXStatementImport runs a Brazilian OFX statement through the whole
// pipeline and checks normalization, direction and entity matching.
func TestOFXStatementImport(t *testing.T) {
	payload := []byte(`OFXHEADER:100
<OFX>
<FI><ORG>BANCO EXEMPLO</FI>
<ACCTID>12345-6
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250301
<TRNAMT>-150.00
<FITID>F-001
<NAME>ALUGUEL MARIA LUCIA
</STMTTRN>
</BANKTRANLIST>
</OFX>`)

	result, err := buildService().ImportFile(context.Background(), "extrato.ofx", payload, service.ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, "BANCO EXEMPLO", result.InstitutionName)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "2025-03-01", rec.Date.Format("2006-01-02"))
	assert.Equal(t, record.Outflow, rec.Direction)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, "F-001", rec.SourceID)
	assert.Equal(t, "Maria Lucia Ferreira", rec.MatchedCounterpartyName)
	assert.Equal(t, matcher.ConfidencePattern, rec.MatchConfidence)
}

// TestCSVStatementImport covers the semicolon-delimited Brazilian bank
// export: comma decimals, day-first dates, duplicate flagging.
func TestCSVStatementImport(t *testing.T) {
	payload := []byte("data;historico;valor\n" +
		"01/04/2025;PIX RECEBIDO;250,00\n" +
		"02/04/2025;TARIFA PACOTE;-29,90\n")

	prior := dedup.NewKeySet()
	prior.AddBankKey("", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), "PIX RECEBIDO", decimal.NewFromInt(250))

	result, err := buildService().ImportFile(context.Background(), "movimentos.csv", payload, service.ImportOptions{PriorKeys: prior})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	tarifa := result.Records[0]
	assert.Equal(t, record.Outflow, tarifa.Direction)
	assert.True(t, tarifa.Amount.Equal(decimal.RequireFromString("29.90")))
	assert.False(t, tarifa.IsDuplicate)

	pix := result.Records[1]
	assert.Equal(t, record.Inflow, pix.Direction)
	assert.True(t, pix.IsDuplicate, "matches a previously imported key")

	assert.Equal(t, 1, result.DuplicateRecords)
	assert.Equal(t, 1, result.ValidRecords)
}

// TestLedgerSheetImport runs a lab-reconciliation spreadsheet through the
// pipeline and checks the cash-custody derivations.
func TestLedgerSheetImport(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{
		"Data", "Unidade", "Código", "Paciente", "Convênio",
		"Valor", "Desconto", "Acréscimo", "Pago", "Forma Pagamento", "Operador",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{
		"15/03/2025", "Clinica Centro", "C-1001", "JOAO SILVA", "UNIMED",
		"85,00", "15,00", "0,00", "85,00", "CARTAO", "ANA",
	}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	result, err := buildService().ImportFile(context.Background(), "caixa.xlsx", buf.Bytes(), service.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, result.LedgerRows, 1)

	row := result.LedgerRows[0]
	assert.Equal(t, "CEN", row.BusinessUnitCode)
	assert.Equal(t, record.PaymentCard, row.PaymentMethod)
	assert.Equal(t, record.DiscountMedium, row.DiscountLevel)
	assert.True(t, row.DiscountRatio.Equal(decimal.NewFromFloat(0.15)))
	assert.False(t, row.CardFeeAmount.IsZero(), "card rows carry the settlement fee")
}

// TestArchiveImport runs a ZIP of payer spreadsheets through the pipeline.
func TestArchiveImport(t *testing.T) {
	buildSheet := func(rows [][]any) []byte {
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Período: 01/03/2025 a 31/03/2025"}))
		require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Data", "Paciente", "Valor"}))
		for i, row := range rows {
			require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+3), &row))
		}
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		return buf.Bytes()
	}

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	for name, payload := range map[string][]byte{
		"UNIMED.xlsx":       buildSheet([][]any{{"05/03/2025", "JOAO SILVA", "120,00"}}),
		"PARTICULARES.xlsx": buildSheet([][]any{{"07/03/2025", "PEDRO LIMA", "200,00"}}),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	result, err := buildService().ImportFile(context.Background(), "convenios.zip", zipBuf.Bytes(), service.ImportOptions{})
	require.NoError(t, err)

	require.Len(t, result.Providers, 2)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, "2025-03-01", result.PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2025-03-31", result.PeriodEnd.Format("2006-01-02"))

	// Archive records are ledger-side inflows, not bank-dialect records,
	// so the entity matcher leaves them untouched.
	for _, rec := range result.Records {
		assert.Equal(t, record.Inflow, rec.Direction)
		assert.Nil(t, rec.MatchedCounterparty)
	}
}

// TestMixedBatchImport uploads several formats at once and checks per-file
// isolation and result ordering.
func TestMixedBatchImport(t *testing.T) {
	files := []service.InputFile{
		{Name: "a.csv", Data: []byte("data;historico;valor\n01/04/2025;PIX A;10,00\n")},
		{Name: "unknown.bin", Data: []byte("garbage")},
		{Name: "b.csv", Data: []byte("data;historico;valor\n02/04/2025;PIX B;20,00\n")},
	}

	results := buildService().ImportBatch(context.Background(), files, service.ImportOptions{})
	require.Len(t, results, 3)

	assert.Equal(t, "a.csv", results[0].Name)
	require.NoError(t, results[0].Err)
	assert.Equal(t, sniffer.FormatDelimited, results[0].Format)

	assert.Error(t, results[1].Err)
	assert.Equal(t, sniffer.FormatUnknown, results[1].Format)

	require.NoError(t, results[2].Err)
	require.Len(t, results[2].Result.Records, 1)
}
