/*
Package validate repairs and audits consolidated worker records.

PURPOSE:
  Stage 4 of the VR pipeline. After calculation, every record is checked
  for the problems the source spreadsheets routinely carry: dates in half
  a dozen formats, missing company codes, union-name variants, vacation
  day counts outside any plausible range. The validator corrects what it
  safely can, defaults what has a single sensible value, and flags the
  rest for manual review.

GUARANTEES:
  - No record is ever dropped here. Exclusion is stage 2's business;
    validation only repairs and annotates.
  - Every change is audited: worker ID, field, original value, corrected
    value, action. The audit log is part of the run artifact, so an
    operator can reconstruct exactly what the engine touched.
  - Contradictions the validator cannot resolve (termination before
    hire) are flagged, never silently corrected.

SEE ALSO:
  - dates.go: the multi-format date repair heuristics
  - voucher/unions.go: the canonical union registry used for renaming
*/
package validate

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// AUDIT LOG
// =============================================================================

type Action string

const (
	// ActionCorrected records a value the validator rewrote.
	ActionCorrected Action = "corrected"
	// ActionDefaulted records a blank field filled with its default.
	ActionDefaulted Action = "defaulted"
	// ActionFlagged records a problem left for manual review.
	ActionFlagged Action = "flagged"
)

// AuditEntry is one validator decision about one field of one record.
type AuditEntry struct {
	ID        string             `json:"id"`
	WorkerID  voucher.EmployeeID `json:"worker_id"`
	Field     string             `json:"field"`
	Original  string             `json:"original"`
	Corrected string             `json:"corrected,omitempty"`
	Action    Action             `json:"action"`
}

// Report aggregates a validation pass.
type Report struct {
	Entries   []AuditEntry `json:"entries"`
	Corrected int          `json:"corrected"`
	Defaulted int          `json:"defaulted"`
	Flagged   int          `json:"flagged"`
}

func (r *Report) add(e AuditEntry) {
	e.ID = uuid.NewString()
	r.Entries = append(r.Entries, e)
	switch e.Action {
	case ActionCorrected:
		r.Corrected++
	case ActionDefaulted:
		r.Defaulted++
	case ActionFlagged:
		r.Flagged++
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

const (
	defaultCompany  = "1410"
	maxVacationDays = 30
)

type Validator struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Validator {
	return &Validator{log: log}
}

// Validate repairs the set in place and returns the audit report.
func (v *Validator) Validate(set *voucher.WorkerSet) *Report {
	report := &Report{}
	for _, w := range set.All() {
		v.checkCompany(w, report)
		v.checkStatus(w, report)
		v.repairDates(w, report)
		v.checkChronology(w, report)
		v.clampVacation(w, report)
		v.normalizeUnion(w, report)
	}
	v.log.Info("validation complete",
		zap.Int("workers", set.Len()),
		zap.Int("corrected", report.Corrected),
		zap.Int("defaulted", report.Defaulted),
		zap.Int("flagged", report.Flagged))
	return report
}

func (v *Validator) checkCompany(w *voucher.Worker, report *Report) {
	if strings.TrimSpace(w.Company) != "" {
		return
	}
	w.Company = defaultCompany
	report.add(AuditEntry{
		WorkerID:  w.ID,
		Field:     "company",
		Corrected: defaultCompany,
		Action:    ActionDefaulted,
	})
}

// checkStatus infers a status for records that reached this stage without
// one (workers seen only in a secondary source). A situation that reads as
// dismissal maps to inactive; anything else defaults to active.
func (v *Validator) checkStatus(w *voucher.Worker, report *Report) {
	if w.Status != "" {
		return
	}
	inferred := voucher.StatusActive
	situation := strings.ToLower(w.Situation)
	if strings.Contains(situation, "desligado") || strings.Contains(situation, "demitido") {
		inferred = voucher.StatusInactive
	}
	w.Status = inferred
	report.add(AuditEntry{
		WorkerID:  w.ID,
		Field:     "status",
		Original:  w.Situation,
		Corrected: string(inferred),
		Action:    ActionDefaulted,
	})
}

func (v *Validator) repairDates(w *voucher.Worker, report *Report) {
	if w.Hire == nil && w.RawHire != "" {
		if d, ok := RepairDate(w.RawHire); ok {
			w.Hire = &d
			report.add(AuditEntry{
				WorkerID:  w.ID,
				Field:     "hire",
				Original:  w.RawHire,
				Corrected: d.String(),
				Action:    ActionCorrected,
			})
		} else {
			report.add(AuditEntry{
				WorkerID: w.ID,
				Field:    "hire",
				Original: w.RawHire,
				Action:   ActionFlagged,
			})
		}
	}
	if w.Termination == nil && w.RawTermination != "" {
		if d, ok := RepairDate(w.RawTermination); ok {
			w.Termination = &d
			report.add(AuditEntry{
				WorkerID:  w.ID,
				Field:     "termination",
				Original:  w.RawTermination,
				Corrected: d.String(),
				Action:    ActionCorrected,
			})
		} else {
			report.add(AuditEntry{
				WorkerID: w.ID,
				Field:    "termination",
				Original: w.RawTermination,
				Action:   ActionFlagged,
			})
		}
	}
}

// checkChronology flags a termination on or before the hire date. The two
// sources contradict each other and neither can be trusted, so this is
// manual-review territory rather than an automatic fix.
func (v *Validator) checkChronology(w *voucher.Worker, report *Report) {
	if w.Hire == nil || w.Termination == nil {
		return
	}
	if w.Termination.After(*w.Hire) {
		return
	}
	report.add(AuditEntry{
		WorkerID: w.ID,
		Field:    "termination",
		Original: w.Termination.String() + " <= hire " + w.Hire.String(),
		Action:   ActionFlagged,
	})
}

func (v *Validator) clampVacation(w *voucher.Worker, report *Report) {
	if w.VacationInfo == nil {
		return
	}
	days := w.VacationInfo.Days
	clamped := days
	if clamped < 0 {
		clamped = 0
	}
	if clamped > maxVacationDays {
		clamped = maxVacationDays
	}
	if clamped == days {
		return
	}
	w.VacationInfo.Days = clamped
	report.add(AuditEntry{
		WorkerID:  w.ID,
		Field:     "vacation_days",
		Original:  itoa(days),
		Corrected: itoa(clamped),
		Action:    ActionCorrected,
	})
}

// normalizeUnion rewrites union-name variants to the canonical full name
// from the registry, matching on the abbreviation.
func (v *Validator) normalizeUnion(w *voucher.Worker, report *Report) {
	name := strings.TrimSpace(w.Union)
	if name == "" {
		return
	}
	upper := strings.ToUpper(name)
	for _, u := range voucher.KnownUnions() {
		if name == u.FullName {
			return
		}
		if strings.Contains(upper, u.Abbrev) {
			w.Union = u.FullName
			report.add(AuditEntry{
				WorkerID:  w.ID,
				Field:     "union",
				Original:  name,
				Corrected: u.FullName,
				Action:    ActionCorrected,
			})
			return
		}
	}
}
