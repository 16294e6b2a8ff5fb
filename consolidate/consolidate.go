/*
Package consolidate merges the per-category worker sources into one
record set.

PURPOSE:
  Stage 1 of the VR pipeline. Takes N tabular sources (active workers,
  hires, terminations, vacations, interns, apprentices, overseas) and
  produces a single WorkerSet keyed by employee ID, plus summary counts.

MERGE SEMANTICS:
  Sources are applied in a fixed priority order. For each row:
  - New employee ID  → insert a record defaulted to the source's status
  - Existing ID      → overlay only the fields this source supplies
  The termination source always forces status "terminated", even when the
  active source listed the same ID; this is the one override in the model.
  Rows with an empty or invisible-garbage employee ID are skipped and
  counted, never guessed.

FAILURE POLICY:
  A missing source file is a warning, not an error: the status sources are
  optional by design and the stage proceeds with whatever is available.
  (reader.go maps missing files to voucher.ErrSourceMissing.)

SEE ALSO:
  - reader.go: spreadsheet loading and column mapping
  - voucher/types.go: the record model this stage creates
*/
package consolidate

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// SOURCES
// =============================================================================

// Kind identifies a worker-status source. The zero-based order of the
// constants is the merge priority order.
type Kind int

const (
	KindActive Kind = iota
	KindHires
	KindTerminations
	KindVacations
	KindInterns
	KindApprentices
	KindOverseas
)

func (k Kind) String() string {
	switch k {
	case KindActive:
		return "active"
	case KindHires:
		return "hires"
	case KindTerminations:
		return "terminations"
	case KindVacations:
		return "vacations"
	case KindInterns:
		return "interns"
	case KindApprentices:
		return "apprentices"
	case KindOverseas:
		return "overseas"
	default:
		return "unknown"
	}
}

// status returns the default status a new record gets from this source.
func (k Kind) status() voucher.Status {
	switch k {
	case KindActive:
		return voucher.StatusActive
	case KindHires:
		return voucher.StatusHired
	case KindTerminations:
		return voucher.StatusTerminated
	case KindInterns:
		return voucher.StatusIntern
	case KindApprentices:
		return voucher.StatusApprentice
	case KindOverseas:
		return voucher.StatusOverseas
	default:
		return voucher.StatusActive
	}
}

// Row is one normalized source row. All fields are raw text; dates stay as
// strings here and are parsed best-effort during the merge.
type Row struct {
	EmployeeID        string
	Company           string
	JobTitle          string
	Situation         string
	Union             string
	HireDate          string
	TerminationDate   string
	VacationSituation string
	VacationDays      string
}

// Source is one loaded worker-status table.
type Source struct {
	Kind Kind
	Rows []Row
}

// =============================================================================
// CONSOLIDATOR
// =============================================================================

// Result is the stage output: the merged set, the rate tables the later
// stages need, and the aggregate counts.
type Result struct {
	Workers *voucher.WorkerSet `json:"workers"`
	Rates   *voucher.RateTable `json:"rates"`
	Summary voucher.Summary    `json:"summary"`
}

type Consolidator struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Consolidator {
	return &Consolidator{log: log}
}

// Consolidate merges the sources in priority order. Sources may arrive in
// any slice order; they are applied by Kind.
func (c *Consolidator) Consolidate(sources []Source, rates *voucher.RateTable) *Result {
	set := voucher.NewWorkerSet()
	skipped := 0

	byKind := make(map[Kind][]Row)
	for _, src := range sources {
		byKind[src.Kind] = append(byKind[src.Kind], src.Rows...)
	}

	for kind := KindActive; kind <= KindOverseas; kind++ {
		rows, ok := byKind[kind]
		if !ok {
			continue
		}
		applied := 0
		for _, row := range rows {
			id := voucher.EmployeeID(CleanString(row.EmployeeID))
			if !validID(string(id)) {
				skipped++
				continue
			}
			c.apply(set, kind, id, row)
			applied++
		}
		c.log.Info("source merged",
			zap.String("source", kind.String()),
			zap.Int("rows", len(rows)),
			zap.Int("applied", applied))
	}

	result := &Result{Workers: set, Rates: rates}
	result.Summary = summarize(set, rates, skipped)
	c.log.Info("consolidation complete",
		zap.Int("workers", result.Summary.Total),
		zap.Int("skipped_rows", skipped))
	return result
}

// apply performs the upsert for one row under one source's semantics.
func (c *Consolidator) apply(set *voucher.WorkerSet, kind Kind, id voucher.EmployeeID, row Row) {
	w := set.Get(id)
	if w == nil {
		w = &voucher.Worker{ID: id, Status: kind.status()}
		set.Put(w)
	}

	switch kind {
	case KindActive, KindInterns, KindApprentices, KindOverseas:
		overlayIdentity(w, row)

	case KindHires:
		if w.JobTitle == "" {
			w.JobTitle = CleanString(row.JobTitle)
		}
		if w.Situation == "" {
			w.Situation = CleanString(row.Situation)
		}
		setDate(&w.Hire, &w.RawHire, row.HireDate)

	case KindTerminations:
		// Termination overlays only the termination fields but always
		// overrides the status, whatever an earlier source said.
		w.Status = voucher.StatusTerminated
		setDate(&w.Termination, &w.RawTermination, row.TerminationDate)

	case KindVacations:
		days := 0
		if n, err := strconv.Atoi(strings.TrimSpace(row.VacationDays)); err == nil {
			days = n
		}
		w.VacationInfo = &voucher.Vacation{
			Situation: CleanString(row.VacationSituation),
			Days:      days,
		}
	}
}

// overlayIdentity fills identity fields a source supplies, keeping any
// value already present from a higher-priority source.
func overlayIdentity(w *voucher.Worker, row Row) {
	if v := CleanString(row.Company); v != "" && w.Company == "" {
		w.Company = v
	}
	if v := CleanString(row.JobTitle); v != "" && w.JobTitle == "" {
		w.JobTitle = v
	}
	if v := CleanString(row.Situation); v != "" && w.Situation == "" {
		w.Situation = v
	}
	if v := CleanString(row.Union); v != "" && w.Union == "" {
		w.Union = v
	}
}

// setDate parses an ISO date into dst, or keeps the raw text for the
// validator when the format is anything else.
func setDate(dst **voucher.Date, raw *string, value string) {
	value = CleanString(value)
	if value == "" {
		return
	}
	// Source exports use ISO timestamps; strip the time part if present.
	if i := strings.IndexAny(value, "T "); i > 0 {
		value = value[:i]
	}
	if d, err := voucher.ParseDate(value); err == nil {
		*dst = &d
		*raw = ""
		return
	}
	*raw = value
}

func summarize(set *voucher.WorkerSet, rates *voucher.RateTable, skipped int) voucher.Summary {
	counts := set.CountByStatus()
	onVacation := 0
	unions := make(map[string]bool)
	for _, w := range set.All() {
		if w.VacationInfo != nil {
			onVacation++
		}
		if w.Union != "" {
			unions[w.Union] = true
		}
	}
	states := 0
	if rates != nil {
		states = len(rates.RateByState)
	}
	return voucher.Summary{
		Total:       set.Len(),
		Active:      counts[voucher.StatusActive],
		Terminated:  counts[voucher.StatusTerminated],
		HiredPeriod: counts[voucher.StatusHired],
		OnVacation:  onVacation,
		Unions:      len(unions),
		States:      states,
		SkippedRows: skipped,
	}
}

// =============================================================================
// STRING CLEANING
// =============================================================================

// CleanString strips control characters, zero-width spaces and surrounding
// whitespace. Spreadsheet exports carry all three.
func CleanString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 31 || r == '​' || r == 127 {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// validID rejects empty IDs and the textual nulls spreadsheets produce.
func validID(id string) bool {
	switch strings.ToLower(id) {
	case "", "nan", "none", "null":
		return false
	}
	return true
}
