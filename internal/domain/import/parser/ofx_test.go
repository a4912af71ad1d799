package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102

<OFX>
<SIGNONMSGSRSV1><SONRS>
<FI><ORG>BANCO EXEMPLO<FID>001</FI>
</SONRS></SIGNONMSGSRSV1>
<BANKMSGSRSV1><STMTTRNRS><STMTRS>
<BANKACCTFROM><BANKID>001<ACCTID>12345-6</BANKACCTFROM>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250301120000[-3:BRT]
<TRNAMT>-150.00
<FITID>2025030100001
<NAME>ALUGUEL MARIA
<MEMO>ALUGUEL MARIA LUCIA
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250315
<TRNAMT>2500.00
<FITID>2025031500002
<NAME>TED RECEBIDA CONVENIO
</STMTTRN>
</BANKTRANLIST>
</STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>
`

func TestParseOFX(t *testing.T) {
	result, err := ParseOFX([]byte(sampleOFX))
	require.NoError(t, err)

	assert.Equal(t, "BANCO EXEMPLO", result.InstitutionName)
	assert.Equal(t, "12345-6", result.AccountID)
	require.Len(t, result.Records, 2)

	// Sorted newest first.
	first := result.Records[0]
	assert.Equal(t, "2025-03-15", first.Date.Format("2006-01-02"))
	assert.Equal(t, record.Inflow, first.Direction)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("2500.00")))
	assert.Equal(t, "2025031500002", first.SourceID)
	assert.Equal(t, "TED RECEBIDA CONVENIO", first.Description)

	second := result.Records[1]
	assert.Equal(t, "2025-03-01", second.Date.Format("2006-01-02"))
	assert.Equal(t, record.Outflow, second.Direction)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("150.00")))
	// MEMO wins over NAME when both are present.
	assert.Equal(t, "ALUGUEL MARIA LUCIA", second.Description)

	assert.Equal(t, "2025-03-01", result.PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2025-03-15", result.PeriodEnd.Format("2006-01-02"))
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 2, result.ValidRecords)
}

func TestParseOFX_NoCloseTags(t *testing.T) {
	// SGML-flavored exports frequently omit </STMTTRN>.
	payload := `<OFX><BANKTRANLIST>
<STMTTRN>
<DTPOSTED>20250310
<TRNAMT>-42.50
<FITID>A1
<NAME>TARIFA PACOTE
<STMTTRN>
<DTPOSTED>20250311
<TRNAMT>100.00
<FITID>A2
<NAME>PIX RECEBIDO
</BANKTRANLIST></OFX>`

	result, err := ParseOFX([]byte(payload))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "PIX RECEBIDO", result.Records[0].Description)
	assert.Equal(t, "TARIFA PACOTE", result.Records[1].Description)
}

func TestParseOFX_SkipsMalformedBlocks(t *testing.T) {
	payload := `<OFX>
<STMTTRN>
<DTPOSTED>notadate
<TRNAMT>10.00
</STMTTRN>
<STMTTRN>
<DTPOSTED>20250301
<TRNAMT>garbage
</STMTTRN>
<STMTTRN>
<DTPOSTED>20250302
<TRNAMT>55.55
<FITID>OK1
</STMTTRN>
</OFX>`

	result, err := ParseOFX([]byte(payload))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "OK1", result.Records[0].SourceID)
}

func TestParseOFX_NoTransactions(t *testing.T) {
	_, err := ParseOFX([]byte("<OFX><SONRS></SONRS></OFX>"))
	assert.ErrorIs(t, err, ErrNoTransactions)
}
