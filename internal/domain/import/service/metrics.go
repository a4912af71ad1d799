package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_import_files_total",
		Help: "Files processed by the import engine, by detected format and outcome.",
	}, []string{"format", "status"})

	recordsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_import_records_total",
		Help: "Normalized records produced by all parsers.",
	})

	duplicatesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_import_duplicates_total",
		Help: "Records flagged as duplicates of previously imported data.",
	})

	entriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_import_skipped_entries_total",
		Help: "Archive entries or scanned pages skipped with a logged reason.",
	})
)
