package exclusion

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// RESOLVER - Extracts distinct values, applies decisions
// =============================================================================

// Result is the stage output: the filtered set plus the untouched original
// (the audit trail) and the exclusion tallies.
type Result struct {
	Kept     *voucher.WorkerSet `json:"kept"`
	Original *voucher.WorkerSet `json:"original"`
	Stats    Stats              `json:"stats"`
}

type Stats struct {
	TotalOriginal int `json:"total_original"`
	TotalKept     int `json:"total_kept"`
	TotalExcluded int `json:"total_excluded"`
	ByTitle       int `json:"by_title"`
	ByStatus      int `json:"by_status"`
	ByReason      int `json:"by_reason"`
}

type Resolver struct {
	classifier Classifier
	log        *zap.Logger
}

func NewResolver(classifier Classifier, log *zap.Logger) *Resolver {
	return &Resolver{classifier: classifier, log: log}
}

// ExtractDistinct walks the worker set once and returns each distinct job
// title, status and leave reason, sorted. Sorting matters twice: the cache
// fingerprint must be stable, and the classification request must not leak
// record order.
func ExtractDistinct(set *voucher.WorkerSet) DistinctValues {
	titles := make(map[string]bool)
	statuses := make(map[string]bool)
	reasons := make(map[string]bool)

	for _, w := range set.All() {
		if w.JobTitle != "" {
			titles[w.JobTitle] = true
		}
		if w.Status != "" {
			statuses[string(w.Status)] = true
		}
		if w.VacationInfo != nil && w.VacationInfo.Situation != "" {
			reasons[w.VacationInfo.Situation] = true
		}
		if w.Situation != "" {
			reasons[w.Situation] = true
		}
	}

	return DistinctValues{
		Titles:   sortedKeys(titles),
		Statuses: sortedKeys(statuses),
		Reasons:  sortedKeys(reasons),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve runs the full stage: extract, classify, validate, apply.
// Classifier failure or malformed output is fatal, per the stage contract.
func (r *Resolver) Resolve(ctx context.Context, set *voucher.WorkerSet) (*Result, error) {
	values := ExtractDistinct(set)
	r.log.Info("distinct values extracted",
		zap.Int("titles", len(values.Titles)),
		zap.Int("statuses", len(values.Statuses)),
		zap.Int("reasons", len(values.Reasons)))

	decisions, err := r.classifier.Classify(ctx, values)
	if err != nil {
		return nil, &voucher.ClassifierError{Provider: r.classifier.Name(), Err: err}
	}
	if err := decisions.Validate(); err != nil {
		return nil, &voucher.ClassifierError{Provider: r.classifier.Name(), Err: err}
	}

	result := Apply(set, decisions)
	r.log.Info("exclusions applied",
		zap.Int("kept", result.Stats.TotalKept),
		zap.Int("excluded", result.Stats.TotalExcluded),
		zap.Int("by_title", result.Stats.ByTitle),
		zap.Int("by_status", result.Stats.ByStatus),
		zap.Int("by_reason", result.Stats.ByReason))
	return result, nil
}

// Apply filters the set by the decision set. A worker is excluded iff its
// title OR status OR leave reason appears in the corresponding excluded
// list; every rule that fired is recorded on the worker so the exclusion
// is auditable. The input set is not mutated beyond the audit annotations.
func Apply(set *voucher.WorkerSet, decisions *DecisionSet) *Result {
	excludedTitles := excludedSet(decisions.Titles)
	excludedStatuses := excludedSet(decisions.Statuses)
	excludedReasons := excludedSet(decisions.Reasons)

	stats := Stats{TotalOriginal: set.Len()}
	kept := voucher.NewWorkerSet()

	for _, w := range set.All() {
		var fired []string

		if why, ok := excludedTitles[w.JobTitle]; ok {
			fired = append(fired, fmt.Sprintf("title %q: %s", w.JobTitle, why))
			stats.ByTitle++
		}
		if why, ok := excludedStatuses[string(w.Status)]; ok {
			fired = append(fired, fmt.Sprintf("status %q: %s", w.Status, why))
			stats.ByStatus++
		}
		if why, ok := reasonFor(w, excludedReasons); ok {
			fired = append(fired, why)
			stats.ByReason++
		}

		if len(fired) == 0 {
			kept.Put(w)
			stats.TotalKept++
			continue
		}
		w.ExclusionReasons = fired
		stats.TotalExcluded++
	}

	return &Result{Kept: kept, Original: set, Stats: stats}
}

func reasonFor(w *voucher.Worker, excluded map[string]string) (string, bool) {
	if w.VacationInfo != nil {
		if why, ok := excluded[w.VacationInfo.Situation]; ok {
			return fmt.Sprintf("leave reason %q: %s", w.VacationInfo.Situation, why), true
		}
	}
	if why, ok := excluded[w.Situation]; ok {
		return fmt.Sprintf("situation %q: %s", w.Situation, why), true
	}
	return "", false
}
