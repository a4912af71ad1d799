package dedup

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

func TestKeySet(t *testing.T) {
	keys := NewKeySet()
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("bank key prefers source id", func(t *testing.T) {
		keys.AddBankKey("FITID-1", date, "PIX RECEBIDO", decimal.NewFromInt(250))
		assert.True(t, keys.Contains("FITID-1"))
	})

	t.Run("bank composite key", func(t *testing.T) {
		keys.AddBankKey("", date, "pix recebido", decimal.NewFromInt(250))
		assert.True(t, keys.Contains("2025-03-15|PIX RECEBIDO|250.00"))
	})

	t.Run("ledger key", func(t *testing.T) {
		keys.AddLedgerKey("CEN", date, "C-1001")
		assert.True(t, keys.Contains("CEN|2025-03-15|C-1001"))
	})
}

func TestFlag(t *testing.T) {
	gofakeit.Seed(11)
	date := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	freshDesc := gofakeit.Company()
	batch := &record.ImportBatchResult{
		Records: []record.NormalizedRecord{
			{SourceID: "FITID-1", Date: date, Description: "PIX RECEBIDO", Amount: decimal.NewFromInt(250)},
			{Date: date, Description: freshDesc, Amount: decimal.NewFromInt(99)},
		},
		LedgerRows: []record.LedgerImportRow{
			{BusinessUnitCode: "CEN", Date: date, ExternalCode: "C-1001"},
			{BusinessUnitCode: "CEN", Date: date, ExternalCode: "C-1002"},
		},
	}

	prior := NewKeySet()
	prior.AddBankKey("FITID-1", date, "", decimal.Zero)
	prior.AddLedgerKey("CEN", date, "C-1001")
	priorLen := len(prior)

	Flag(batch, prior)

	assert.True(t, batch.Records[0].IsDuplicate)
	assert.False(t, batch.Records[1].IsDuplicate)
	assert.True(t, batch.LedgerRows[0].IsDuplicate)
	assert.False(t, batch.LedgerRows[1].IsDuplicate)
	assert.Equal(t, 2, batch.DuplicateRecords)
	assert.Equal(t, 2, batch.ValidRecords)

	// The prior set is read-only during flagging.
	assert.Len(t, prior, priorLen)
}

func TestFlag_SameBatchRepeatsNotFlagged(t *testing.T) {
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	batch := &record.ImportBatchResult{
		Records: []record.NormalizedRecord{
			{Date: date, Description: "PIX RECEBIDO", Amount: decimal.NewFromInt(50)},
			{Date: date, Description: "PIX RECEBIDO", Amount: decimal.NewFromInt(50)},
		},
	}

	prior := NewKeySet()
	prior.Add("some-other-key")
	Flag(batch, prior)

	// Two identical rows in one batch are flagged only against prior
	// imports, never against each other.
	assert.False(t, batch.Records[0].IsDuplicate)
	assert.False(t, batch.Records[1].IsDuplicate)
}

func TestFlag_NilAndEmpty(t *testing.T) {
	require.NotPanics(t, func() {
		Flag(nil, NewKeySet())
		Flag(&record.ImportBatchResult{}, nil)
	})
}
