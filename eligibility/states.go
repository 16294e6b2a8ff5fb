/*
State resolution: union name → Brazilian state.

Union names carry their state either as an abbreviation embedded in the
acronym (SINDPD SP, SINDPPD RS) or spelled out in the full legal name.
Keyword matching handles both. Records with no recognizable union fall
back to a proportional assignment that mirrors the real headcount
distribution, seeded from the employee ID so reruns are reproducible.
*/
package eligibility

import (
	"hash/fnv"
	"strings"

	"github.com/warp/voucher-engine/voucher"
)

// stateRule matches whole-word tokens (for short codes like "rs") and
// substrings (for spelled-out names and acronyms).
type stateRule struct {
	state      string
	tokens     []string
	substrings []string
}

// Rule order matters: the more specific sindicato acronyms (SINDPPD,
// SITEPD) are checked before the generic SINDPD catch-all for SP.
var stateRules = []stateRule{
	{
		state:      voucher.StateRioGrandeDoSul,
		tokens:     []string{"rs"},
		substrings: []string{"rio grande do sul", "sindppd", "gaúcho", "gaucho"},
	},
	{
		state:      voucher.StateRioDeJaneiro,
		tokens:     []string{"rj"},
		substrings: []string{"rio de janeiro", "carioca"},
	},
	{
		state:      voucher.StateParana,
		tokens:     []string{"pr"},
		substrings: []string{"paraná", "parana", "sitepd", "curitiba"},
	},
	{
		state:      voucher.StateSaoPaulo,
		tokens:     []string{"sp"},
		substrings: []string{"são paulo", "sao paulo", "sindpd"},
	},
}

// ResolveState maps a union name to its state. The second return is true
// when the state had to be inferred from the fallback distribution.
func ResolveState(union string, id voucher.EmployeeID) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(union))
	if lower != "" {
		tokens := tokenize(lower)
		for _, rule := range stateRules {
			for _, t := range rule.tokens {
				if tokens[t] {
					return rule.state, false
				}
			}
			for _, s := range rule.substrings {
				if strings.Contains(lower, s) {
					return rule.state, false
				}
			}
		}
	}
	return fallbackState(id), true
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '.' || r == ','
	}) {
		out[f] = true
	}
	return out
}

// Per-mille cut points of the observed headcount distribution:
// RS 63.9%, SP 23.0%, PR 7.5%, RJ 5.6%.
const (
	cutRS = 639
	cutSP = 869
	cutPR = 944
)

// fallbackState assigns a state proportionally to the real distribution,
// deterministic per employee so two runs of the same input agree.
func fallbackState(id voucher.EmployeeID) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	switch p := h.Sum64() % 1000; {
	case p < cutRS:
		return voucher.StateRioGrandeDoSul
	case p < cutSP:
		return voucher.StateSaoPaulo
	case p < cutPR:
		return voucher.StateParana
	default:
		return voucher.StateRioDeJaneiro
	}
}
