/*
Package exclusion decides which workers are ineligible for the VR benefit.

PURPOSE:
  Stage 2 of the VR pipeline. The stage extracts the distinct job titles,
  statuses and leave reasons from the consolidated set, asks a Classifier
  which of them are legally excluded, and filters the worker set by the
  returned decision set.

KEY CONCEPTS:
  - DistinctValues: The deduplicated title/status/reason sets. Extracted
    once so tens of thousands of records cost one classification call.
  - DecisionSet: Three independent exclusion lists, each entry carrying a
    justification. Exclusion is the OR of the three predicates; there is
    no precedence and no way for one list to re-include a worker another
    list excluded.
  - Classifier: The pluggable classification capability. Implementations
    here: KeywordClassifier (rule-based), OpenAIClassifier (LLM),
    RemoteClassifier (HTTP service), CachingClassifier (wrapper).

FAILURE POLICY:
  A classifier failure or a malformed decision set is fatal for the stage.
  There is no safe default: keeping everyone or excluding everyone both
  produce wrong payouts, so the error propagates and the run halts.

SEE ALSO:
  - resolver.go: distinct-value extraction and decision application
  - cache.go: decision caching keyed by input fingerprint
*/
package exclusion

import (
	"context"
	"strings"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// DISTINCT VALUES AND DECISION SET
// =============================================================================

// DistinctValues is the classification request: every distinct value
// observed in the worker set, sorted for deterministic fingerprinting.
type DistinctValues struct {
	Titles   []string `json:"titles"`
	Statuses []string `json:"statuses"`
	Reasons  []string `json:"reasons"`
}

// Decision is one classification outcome for one value.
type Decision struct {
	Value         string `json:"value"`
	Exclude       bool   `json:"exclude"`
	Justification string `json:"justification"`
}

// DecisionSet carries the three independent exclusion lists. Values absent
// from a list are kept; only explicit excludes remove workers.
type DecisionSet struct {
	Titles   []Decision `json:"titles"`
	Statuses []Decision `json:"statuses"`
	Reasons  []Decision `json:"reasons"`
}

// excludedSet builds a value → justification index of the excluded entries.
func excludedSet(decisions []Decision) map[string]string {
	out := make(map[string]string)
	for _, d := range decisions {
		if d.Exclude {
			out[d.Value] = d.Justification
		}
	}
	return out
}

// Validate rejects decision sets the resolver cannot safely apply. A nil
// set, or a decision with an empty value, counts as malformed output from
// the collaborator.
func (ds *DecisionSet) Validate() error {
	if ds == nil {
		return voucher.ErrMalformedDecision
	}
	for _, list := range [][]Decision{ds.Titles, ds.Statuses, ds.Reasons} {
		for _, d := range list {
			if strings.TrimSpace(d.Value) == "" {
				return voucher.ErrMalformedDecision
			}
		}
	}
	return nil
}

// =============================================================================
// CLASSIFIER - The pluggable classification capability
// =============================================================================

// Classifier classifies distinct values as exclude/keep. Implementations
// may be rule-based, ML-based or remote calls; callers must not assume low
// latency, which is why the resolver extracts distinct values first and
// why CachingClassifier exists.
type Classifier interface {
	Classify(ctx context.Context, values DistinctValues) (*DecisionSet, error)

	// Name identifies the implementation in errors and audit entries.
	Name() string
}

// =============================================================================
// KEYWORD CLASSIFIER - Rule-based default implementation
// =============================================================================

// KeywordClassifier applies the legal exclusion categories with substring
// rules: statutory directors and executives, interns, apprentices, workers
// abroad, and leave types that suspend the employment contract.
type KeywordClassifier struct {
	titleRules  []keywordRule
	statusRules []keywordRule
	reasonRules []keywordRule
}

type keywordRule struct {
	keyword       string
	justification string
}

// NewKeywordClassifier returns the classifier with the default legal
// ruleset.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		titleRules: []keywordRule{
			{"diretor", "statutory director, not covered by the collective agreement"},
			{"presidente", "statutory officer, not covered by the collective agreement"},
			{"conselheiro", "board member, not covered by the collective agreement"},
			{"estagiario", "intern, covered by scholarship rules instead of VR"},
			{"estagiário", "intern, covered by scholarship rules instead of VR"},
			{"aprendiz", "apprentice, covered by the apprenticeship program"},
		},
		statusRules: []keywordRule{
			{"intern", "intern status excluded by the benefit policy"},
			{"apprentice", "apprentice status excluded by the benefit policy"},
			{"overseas", "worker assigned abroad, local benefit does not apply"},
		},
		reasonRules: []keywordRule{
			{"licença maternidade", "maternity leave, benefit suspended during leave"},
			{"licenca maternidade", "maternity leave, benefit suspended during leave"},
			{"auxílio doença", "sickness benefit, contract suspended"},
			{"auxilio doença", "sickness benefit, contract suspended"},
			{"auxilio doenca", "sickness benefit, contract suspended"},
		},
	}
}

func (c *KeywordClassifier) Name() string { return "keyword" }

func (c *KeywordClassifier) Classify(_ context.Context, values DistinctValues) (*DecisionSet, error) {
	return &DecisionSet{
		Titles:   classifyList(values.Titles, c.titleRules),
		Statuses: classifyList(values.Statuses, c.statusRules),
		Reasons:  classifyList(values.Reasons, c.reasonRules),
	}, nil
}

func classifyList(values []string, rules []keywordRule) []Decision {
	out := make([]Decision, 0, len(values))
	for _, v := range values {
		lower := strings.ToLower(v)
		decision := Decision{Value: v}
		for _, r := range rules {
			if strings.Contains(lower, r.keyword) {
				decision.Exclude = true
				decision.Justification = r.justification
				break
			}
		}
		out = append(out, decision)
	}
	return out
}
