package voucher

import "github.com/shopspring/decimal"

// =============================================================================
// KNOWN UNION REGISTRY - The four covered data-processing unions
// =============================================================================

// State names as they appear in the state→rate table.
const (
	StateSaoPaulo       = "São Paulo"
	StateRioGrandeDoSul = "Rio Grande do Sul"
	StateRioDeJaneiro   = "Rio de Janeiro"
	StateParana         = "Paraná"
)

// UnionInfo links a union's short form, its canonical full name and the
// state whose rate applies to its workers.
type UnionInfo struct {
	Abbrev   string
	FullName string
	State    string
}

// KnownUnions returns the registry of covered unions. Validator uses it to
// normalize name variants, the eligibility engine to resolve states.
func KnownUnions() []UnionInfo {
	return []UnionInfo{
		{
			Abbrev:   "SINDPD SP",
			FullName: "SINDPD SP - SIND.TRAB.EM PROC DADOS E EMPR.EMPRESAS PROC DADOS ESTADO DE SP.",
			State:    StateSaoPaulo,
		},
		{
			Abbrev:   "SINDPPD RS",
			FullName: "SINDPPD RS - SINDICATO DOS TRAB. EM PROC. DE DADOS RIO GRANDE DO SUL",
			State:    StateRioGrandeDoSul,
		},
		{
			Abbrev:   "SINDPD RJ",
			FullName: "SINDPD RJ - SINDICATO PROFISSIONAIS DE PROC DADOS EST RIO DE JANEIRO",
			State:    StateRioDeJaneiro,
		},
		{
			Abbrev:   "SITEPD PR",
			FullName: "SITEPD PR - SIND DOS TRAB EM EMPR PRIVADAS DE PROC DE DADOS EST PR",
			State:    StateParana,
		},
	}
}

// DefaultRateTable builds the fallback table used when the configuration
// spreadsheets are absent: working days and daily rates per the current
// collective agreements.
func DefaultRateTable() *RateTable {
	days := make(map[string]int)
	for _, u := range KnownUnions() {
		switch u.State {
		case StateSaoPaulo, StateParana:
			days[u.FullName] = 22
		default:
			days[u.FullName] = 21
		}
	}
	return &RateTable{
		DaysByUnion: days,
		RateByState: map[string]decimal.Decimal{
			StateSaoPaulo:       decimal.RequireFromString("37.50"),
			StateRioGrandeDoSul: decimal.RequireFromString("35.00"),
			StateRioDeJaneiro:   decimal.RequireFromString("35.00"),
			StateParana:         decimal.RequireFromString("35.00"),
		},
		DefaultDays: 22,
		DefaultRate: decimal.RequireFromString("35.00"),
	}
}
