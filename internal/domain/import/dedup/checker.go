// Package dedup flags freshly parsed records that duplicate previously
// imported ones. The engine performs no storage I/O: callers pre-fetch the
// composite keys for the relevant scope and hand them in as a KeySet.
package dedup

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicore/ledger-import/internal/domain/import/record"
)

// KeySet is a pre-fetched set of composite dedup keys.
type KeySet map[string]struct{}

// NewKeySet builds an empty key set.
func NewKeySet() KeySet {
	return make(KeySet)
}

// Add inserts a raw composite key.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// AddBankKey inserts a bank-dialect key: the native source id when present,
// else the (date, description, amount) composite.
func (s KeySet) AddBankKey(sourceID string, date time.Time, description string, amount decimal.Decimal) {
	r := record.NormalizedRecord{Date: date, Description: description, Amount: amount, SourceID: sourceID}
	s.Add(r.DedupKey())
}

// AddLedgerKey inserts a lab-reconciliation key: (unit, date, externalCode).
func (s KeySet) AddLedgerKey(unitCode string, date time.Time, externalCode string) {
	r := record.LedgerImportRow{BusinessUnitCode: unitCode, Date: date, ExternalCode: externalCode}
	s.Add(r.DedupKey())
}

// Contains reports membership.
func (s KeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Flag marks every record in the batch whose composite key appears in the
// prior set. External codes are exact and stable, so this is a pure
// set-membership test - no fuzzy matching. The prior set is never mutated,
// which means two rows inside the same batch sharing a key are both flagged
// only when the key was already imported before this batch.
func Flag(batch *record.ImportBatchResult, prior KeySet) {
	if batch == nil || len(prior) == 0 {
		return
	}
	for i := range batch.Records {
		if prior.Contains(batch.Records[i].DedupKey()) {
			batch.Records[i].IsDuplicate = true
		}
	}
	for i := range batch.LedgerRows {
		if prior.Contains(batch.LedgerRows[i].DedupKey()) {
			batch.LedgerRows[i].IsDuplicate = true
		}
	}
	batch.Recount()
}
