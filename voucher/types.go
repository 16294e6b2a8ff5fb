/*
Package voucher holds the shared data model for the VR benefit pipeline.

PURPOSE:
  This package contains the types every pipeline stage works with: worker
  records, the merged worker set, the union/state rate tables and the
  reference-period calendar. It has no stage logic of its own — stages
  (consolidate, exclusion, eligibility, validate, payout) enrich these
  records step by step and never replace them.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: Type-safe worker identifier (the "matricula")
  - Worker: One worker record, created at consolidation and enriched
  - WorkerSet: Insertion-ordered record set keyed by EmployeeID
  - RateTable: union → working days and state → daily rate lookups
  - Summary: Aggregate counts reported by each stage

DESIGN PRINCIPLES:
  1. Enrichment, never replacement: stages add fields, they do not rebuild
     records. Exclusion produces a filtered copy; the original set stays
     available as an audit trail.
  2. Precision: monetary values use decimal.Decimal and are rounded to two
     places only at the payout boundary.
  3. Determinism: WorkerSet preserves insertion order so re-runs over the
     same inputs produce byte-identical artifacts.

SEE ALSO:
  - date.go: Civil dates and business-day arithmetic
  - period.go: The 15th-to-15th reference period
  - errors.go: Pipeline error taxonomy
*/
package voucher

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND STATUS
// =============================================================================

// EmployeeID is the unique worker identifier across all sources.
type EmployeeID string

// Status is the employment status assigned at consolidation. Sources are
// merged in a fixed priority order; the termination source always forces
// StatusTerminated regardless of what earlier sources said.
type Status string

const (
	StatusActive     Status = "active"
	StatusHired      Status = "hired_this_period"
	StatusTerminated Status = "terminated"
	StatusIntern     Status = "intern"
	StatusApprentice Status = "apprentice"
	StatusOverseas   Status = "overseas"
	StatusInactive   Status = "inactive"
)

// =============================================================================
// WORKER RECORD
// =============================================================================

// Vacation holds the leave block reported for a worker, if any.
type Vacation struct {
	Situation string `json:"situation"`
	Days      int    `json:"days"`
}

// Calculation is filled in by the eligibility engine. Value and the cost
// shares stay unrounded until the payout formatter emits them.
type Calculation struct {
	State        string          `json:"state"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	BaseDays     int             `json:"base_days"`
	AdjustedDays int             `json:"adjusted_days"`
	Value        decimal.Decimal `json:"value"`
	Eligible     bool            `json:"eligible"`
	// StateInferred marks workers whose state came from the proportional
	// fallback rather than a union match.
	StateInferred bool     `json:"state_inferred,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// Worker is one consolidated record. Hire, Termination and VacationInfo are
// optional; RawHire/RawTermination keep the original text when the validator
// could not parse a date (never silently dropped).
type Worker struct {
	ID        EmployeeID `json:"id"`
	Company   string     `json:"company"`
	JobTitle  string     `json:"job_title"`
	Situation string     `json:"situation"`
	Union     string     `json:"union"`
	Status    Status     `json:"status"`

	Hire           *Date     `json:"hire,omitempty"`
	Termination    *Date     `json:"termination,omitempty"`
	RawHire        string    `json:"raw_hire,omitempty"`
	RawTermination string    `json:"raw_termination,omitempty"`
	VacationInfo   *Vacation `json:"vacation,omitempty"`

	// ExclusionReasons lists every rule that fired for this worker.
	// Empty for kept workers.
	ExclusionReasons []string `json:"exclusion_reasons,omitempty"`

	Calc *Calculation `json:"calc,omitempty"`
}

// =============================================================================
// WORKER SET - Insertion-ordered map of workers
// =============================================================================

// WorkerSet keys workers by EmployeeID while preserving insertion order.
// Order matters: the payout formatter's stable sort uses it as tie-break.
type WorkerSet struct {
	byID  map[EmployeeID]*Worker
	order []EmployeeID
}

func NewWorkerSet() *WorkerSet {
	return &WorkerSet{byID: make(map[EmployeeID]*Worker)}
}

// Get returns the worker for id, or nil.
func (s *WorkerSet) Get(id EmployeeID) *Worker {
	return s.byID[id]
}

// Put inserts or replaces a worker. First insertion fixes its position.
func (s *WorkerSet) Put(w *Worker) {
	if _, ok := s.byID[w.ID]; !ok {
		s.order = append(s.order, w.ID)
	}
	s.byID[w.ID] = w
}

// All returns workers in insertion order.
func (s *WorkerSet) All() []*Worker {
	out := make([]*Worker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *WorkerSet) Len() int { return len(s.order) }

// Filter returns a new set containing the workers keep accepts, in the
// original insertion order. The receiver is not modified.
func (s *WorkerSet) Filter(keep func(*Worker) bool) *WorkerSet {
	out := NewWorkerSet()
	for _, w := range s.All() {
		if keep(w) {
			out.Put(w)
		}
	}
	return out
}

// CountByStatus tallies workers per status.
func (s *WorkerSet) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, w := range s.All() {
		counts[w.Status]++
	}
	return counts
}

type workerSetJSON struct {
	Order   []EmployeeID           `json:"order"`
	Workers map[EmployeeID]*Worker `json:"workers"`
}

func (s *WorkerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(workerSetJSON{Order: s.order, Workers: s.byID})
}

func (s *WorkerSet) UnmarshalJSON(data []byte) error {
	var raw workerSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.byID = raw.Workers
	if s.byID == nil {
		s.byID = make(map[EmployeeID]*Worker)
	}
	s.order = raw.Order
	if len(s.order) != len(s.byID) {
		return fmt.Errorf("worker set order/index mismatch: %d vs %d", len(s.order), len(s.byID))
	}
	return nil
}

// =============================================================================
// RATE TABLE - Union working days and state daily rates
// =============================================================================

// RateTable maps union names to working-day counts for the reference period
// and state names to daily VR rates. Lookups fall back to the configured
// defaults when a union or state is unmapped.
type RateTable struct {
	DaysByUnion map[string]int             `json:"days_by_union"`
	RateByState map[string]decimal.Decimal `json:"rate_by_state"`
	DefaultDays int                        `json:"default_days"`
	DefaultRate decimal.Decimal            `json:"default_rate"`
}

// WorkingDays returns the working-day count for a union, or the default.
func (rt *RateTable) WorkingDays(union string) int {
	if d, ok := rt.DaysByUnion[union]; ok {
		return d
	}
	return rt.DefaultDays
}

// DailyRate returns the daily rate for a state, or the default.
func (rt *RateTable) DailyRate(state string) decimal.Decimal {
	if r, ok := rt.RateByState[state]; ok {
		return r
	}
	return rt.DefaultRate
}

// =============================================================================
// SUMMARY - Aggregate counts produced by consolidation
// =============================================================================

type Summary struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Terminated  int `json:"terminated"`
	HiredPeriod int `json:"hired_this_period"`
	OnVacation  int `json:"on_vacation"`
	Unions      int `json:"unions"`
	States      int `json:"states"`
	SkippedRows int `json:"skipped_rows"`
}
