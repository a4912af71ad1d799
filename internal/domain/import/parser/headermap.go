package parser

import (
	"strings"
)

// HeaderMap is a typed mapping from logical field to column index, resolved
// once from the header row and then applied to every data row. Keeping the
// keyword scan out of the row loop lets header variants be tested in
// isolation.
type HeaderMap struct {
	Date    int
	Desc    int
	Details int
	Amount  int
	Credit  int
	Debit   int
}

// headerKeywordTable drives ResolveHeaderMap. First keyword hit wins per
// logical field; columns already claimed by another field are skipped.
var headerKeywordTable = map[string][]string{
	"date":    {"data", "date"},
	"desc":    {"descr", "memo", "historic", "histórico", "lancamento", "lançamento"},
	"details": {"detalhe", "complemento", "details"},
	"amount":  {"valor", "amount", "montante"},
	"credit":  {"credito", "crédito", "credit"},
	"debit":   {"debito", "débito", "debit"},
}

// ResolveHeaderMap lower-cases the header row and scans for keyword
// substrings. Either a single amount column or a credit/debit pair must
// resolve for the map to be usable.
func ResolveHeaderMap(headers []string) HeaderMap {
	hm := HeaderMap{Date: -1, Desc: -1, Details: -1, Amount: -1, Credit: -1, Debit: -1}

	assign := func(target *int, col int, keywords []string, header string) {
		if *target >= 0 {
			return
		}
		for _, kw := range keywords {
			if strings.Contains(header, kw) {
				*target = col
				return
			}
		}
	}

	for i, raw := range headers {
		h := strings.ToLower(strings.TrimSpace(raw))
		if h == "" {
			continue
		}
		// Credit/debit before amount: "valor crédito" style headers must
		// land on the pair, not the single-amount column.
		assign(&hm.Credit, i, headerKeywordTable["credit"], h)
		if hm.Credit == i {
			continue
		}
		assign(&hm.Debit, i, headerKeywordTable["debit"], h)
		if hm.Debit == i {
			continue
		}
		assign(&hm.Date, i, headerKeywordTable["date"], h)
		if hm.Date == i {
			continue
		}
		assign(&hm.Details, i, headerKeywordTable["details"], h)
		if hm.Details == i {
			continue
		}
		assign(&hm.Desc, i, headerKeywordTable["desc"], h)
		if hm.Desc == i {
			continue
		}
		assign(&hm.Amount, i, headerKeywordTable["amount"], h)
	}

	return hm
}

// Usable reports whether the map found enough columns to parse rows.
func (hm HeaderMap) Usable() bool {
	if hm.Date < 0 {
		return false
	}
	return hm.Amount >= 0 || (hm.Credit >= 0 && hm.Debit >= 0)
}

// IsDoubleEntry reports whether amounts split across credit/debit columns.
func (hm HeaderMap) IsDoubleEntry() bool {
	return hm.Amount < 0 && hm.Credit >= 0 && hm.Debit >= 0
}
