/*
Package pipeline orchestrates the five VR calculation stages.

PURPOSE:
  Wires the stage packages together and drives them over file
  checkpoints. Every stage reads its upstream artifact from the output
  directory, does its work, and atomically writes its own artifact, so
  stages are independently invokable and retryable: a failed stage leaves
  no artifact, and rerunning it picks up exactly where the last good
  stage finished.

STAGE ORDER:
  consolidate → exclude → calculate → validate → format

  The format stage additionally emits the two deliverables (the Excel
  workbook and the legacy CSV) next to its checkpoint.

RUN IDENTITY:
  Each invocation gets a UUID run ID, carried into the stage status
  reports and the logs, so overlapping manual reruns can be told apart.

SEE ALSO:
  - checkpoint.go: artifact IO and the missing-artifact contract
  - config.go: the TOML file driving a run
  - api/: the HTTP surface exposing RunStage
*/
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/consolidate"
	"github.com/warp/voucher-engine/eligibility"
	"github.com/warp/voucher-engine/exclusion"
	"github.com/warp/voucher-engine/payout"
	"github.com/warp/voucher-engine/store/sqlite"
	"github.com/warp/voucher-engine/validate"
	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// STAGES
// =============================================================================

type Stage string

const (
	StageConsolidate Stage = "consolidate"
	StageExclude     Stage = "exclude"
	StageCalculate   Stage = "calculate"
	StageValidate    Stage = "validate"
	StageFormat      Stage = "format"
)

// Stages returns the pipeline order.
func Stages() []Stage {
	return []Stage{StageConsolidate, StageExclude, StageCalculate, StageValidate, StageFormat}
}

// upstream maps each stage to the artifact it consumes.
var upstream = map[Stage]Stage{
	StageExclude:   StageConsolidate,
	StageCalculate: StageExclude,
	StageValidate:  StageCalculate,
	StageFormat:    StageValidate,
}

// StageStatus is the per-stage run report.
type StageStatus struct {
	RunID      string         `json:"run_id"`
	Stage      Stage          `json:"stage"`
	Success    bool           `json:"success"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Counts     map[string]int `json:"counts,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// =============================================================================
// ARTIFACTS
// =============================================================================

// stageArtifact is the checkpoint payload. It accumulates as the pipeline
// advances: each stage carries forward what downstream stages still need
// and adds its own section.
type stageArtifact struct {
	RunID string `json:"run_id"`
	Stage Stage  `json:"stage"`

	Workers *voucher.WorkerSet `json:"workers"`
	Rates   *voucher.RateTable `json:"rates"`

	Consolidation *voucher.Summary     `json:"consolidation,omitempty"`
	Exclusion     *exclusion.Stats     `json:"exclusion,omitempty"`
	Excluded      *voucher.WorkerSet   `json:"excluded,omitempty"`
	Calculation   *eligibility.Summary `json:"calculation,omitempty"`
	Validation    *validate.Report     `json:"validation,omitempty"`
	Payout        *payout.Payout       `json:"payout,omitempty"`
}

// =============================================================================
// RUNNER
// =============================================================================

type Runner struct {
	cfg      *Config
	period   voucher.ReferencePeriod
	calendar *voucher.HolidayCalendar
	log      *zap.Logger

	classifier exclusion.Classifier
	cache      *sqlite.Cache
}

// NewRunner builds a runner from config. The returned runner owns the
// classifier cache; call Close when done.
func NewRunner(cfg *Config, log *zap.Logger) (*Runner, error) {
	period, err := cfg.ReferencePeriod()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		period:   period,
		calendar: voucher.BrazilCalendar2025(),
		log:      log,
	}
	if !r.calendar.CoversYear(period.Start.Year()) || !r.calendar.CoversYear(period.End.Year()) {
		log.Warn("holiday calendar has no entries for the configured period, business days count plain weekdays",
			zap.String("period", period.String()))
	}
	if err := r.buildClassifier(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}

func (r *Runner) buildClassifier() error {
	var inner exclusion.Classifier
	switch r.cfg.Classifier.Kind {
	case "", "keyword":
		inner = exclusion.NewKeywordClassifier()
	case "openai":
		key := os.Getenv(r.cfg.Classifier.APIKeyEnv)
		if key == "" {
			return fmt.Errorf("classifier kind openai: env %s is empty", r.cfg.Classifier.APIKeyEnv)
		}
		inner = exclusion.NewOpenAIClassifier(key, r.cfg.Classifier.Model)
	case "remote":
		if r.cfg.Classifier.BaseURL == "" {
			return fmt.Errorf("classifier kind remote: base_url is required")
		}
		inner = exclusion.NewRemoteClassifier(r.cfg.Classifier.BaseURL)
	default:
		return fmt.Errorf("unknown classifier kind %q", r.cfg.Classifier.Kind)
	}

	if path := r.cfg.Classifier.CachePath; path != "" {
		cache, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("open decision cache: %w", err)
		}
		r.cache = cache
		inner = exclusion.WithCache(inner, cache, r.log)
	}
	r.classifier = inner
	return nil
}

// RunAll drives every stage in order, halting on the first failure.
func (r *Runner) RunAll(ctx context.Context) ([]StageStatus, error) {
	runID := uuid.NewString()
	var statuses []StageStatus
	for _, stage := range Stages() {
		status, err := r.runStage(ctx, runID, stage)
		statuses = append(statuses, status)
		if err != nil {
			return statuses, err
		}
	}
	return statuses, nil
}

// RunStage executes a single stage against the current checkpoints.
func (r *Runner) RunStage(ctx context.Context, stage Stage) (StageStatus, error) {
	return r.runStage(ctx, uuid.NewString(), stage)
}

func (r *Runner) runStage(ctx context.Context, runID string, stage Stage) (StageStatus, error) {
	status := StageStatus{RunID: runID, Stage: stage, StartedAt: time.Now()}
	log := r.log.With(zap.String("run_id", runID), zap.String("stage", string(stage)))
	log.Info("stage starting")

	counts, err := r.execute(ctx, runID, stage)
	status.FinishedAt = time.Now()
	status.Counts = counts
	if err != nil {
		status.Error = err.Error()
		log.Error("stage failed", zap.Error(err))
		return status, err
	}
	status.Success = true
	log.Info("stage finished", zap.Duration("took", status.FinishedAt.Sub(status.StartedAt)))
	return status, nil
}

func (r *Runner) execute(ctx context.Context, runID string, stage Stage) (map[string]int, error) {
	switch stage {
	case StageConsolidate:
		return r.consolidateStage(runID)
	case StageExclude:
		return r.excludeStage(ctx, runID)
	case StageCalculate:
		return r.calculateStage(runID)
	case StageValidate:
		return r.validateStage(runID)
	case StageFormat:
		return r.formatStage(runID)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// =============================================================================
// STAGE IMPLEMENTATIONS
// =============================================================================

func (r *Runner) consolidateStage(runID string) (map[string]int, error) {
	reader := consolidate.NewReader(r.cfg.Input.Dir, r.cfg.Input.Files, r.log)
	sources, err := reader.LoadSources()
	if err != nil {
		return nil, err
	}
	rates := reader.LoadRateTable()

	result := consolidate.New(r.log).Consolidate(sources, rates)

	art := &stageArtifact{
		RunID:         runID,
		Stage:         StageConsolidate,
		Workers:       result.Workers,
		Rates:         result.Rates,
		Consolidation: &result.Summary,
	}
	if err := r.saveArtifact(StageConsolidate, art); err != nil {
		return nil, err
	}
	return map[string]int{
		"workers": result.Workers.Len(),
		"skipped": result.Summary.SkippedRows,
	}, nil
}

func (r *Runner) excludeStage(ctx context.Context, runID string) (map[string]int, error) {
	var in stageArtifact
	if err := r.loadArtifact(upstream[StageExclude], &in); err != nil {
		return nil, err
	}

	resolver := exclusion.NewResolver(r.classifier, r.log)
	result, err := resolver.Resolve(ctx, in.Workers)
	if err != nil {
		return nil, err
	}

	excluded := result.Original.Filter(func(w *voucher.Worker) bool {
		return len(w.ExclusionReasons) > 0
	})
	art := &stageArtifact{
		RunID:     runID,
		Stage:     StageExclude,
		Workers:   result.Kept,
		Rates:     in.Rates,
		Exclusion: &result.Stats,
		Excluded:  excluded,
	}
	if err := r.saveArtifact(StageExclude, art); err != nil {
		return nil, err
	}
	return map[string]int{
		"kept":     result.Stats.TotalKept,
		"excluded": result.Stats.TotalExcluded,
	}, nil
}

func (r *Runner) calculateStage(runID string) (map[string]int, error) {
	var in stageArtifact
	if err := r.loadArtifact(upstream[StageCalculate], &in); err != nil {
		return nil, err
	}

	engine := eligibility.NewEngine(in.Rates, r.period, r.calendar, r.log)
	summary := engine.Process(in.Workers)

	art := &stageArtifact{
		RunID:       runID,
		Stage:       StageCalculate,
		Workers:     in.Workers,
		Rates:       in.Rates,
		Calculation: &summary,
	}
	if err := r.saveArtifact(StageCalculate, art); err != nil {
		return nil, err
	}
	return map[string]int{
		"workers":  summary.Total,
		"eligible": summary.Eligible,
	}, nil
}

func (r *Runner) validateStage(runID string) (map[string]int, error) {
	var in stageArtifact
	if err := r.loadArtifact(upstream[StageValidate], &in); err != nil {
		return nil, err
	}

	report := validate.New(r.log).Validate(in.Workers)

	art := &stageArtifact{
		RunID:      runID,
		Stage:      StageValidate,
		Workers:    in.Workers,
		Rates:      in.Rates,
		Validation: report,
	}
	if err := r.saveArtifact(StageValidate, art); err != nil {
		return nil, err
	}
	return map[string]int{
		"corrected": report.Corrected,
		"defaulted": report.Defaulted,
		"flagged":   report.Flagged,
	}, nil
}

func (r *Runner) formatStage(runID string) (map[string]int, error) {
	var in stageArtifact
	if err := r.loadArtifact(upstream[StageFormat], &in); err != nil {
		return nil, err
	}

	formatter := payout.NewFormatter(r.period, r.cfg.EmployerShare(), r.log)
	result := formatter.Build(in.Workers)

	excelPath := filepath.Join(r.cfg.Output.Dir, r.cfg.Output.ExcelFile)
	if err := payout.WriteExcelFile(excelPath, result); err != nil {
		return nil, err
	}
	csvPath := filepath.Join(r.cfg.Output.Dir, r.cfg.Output.CSVFile)
	if err := payout.WriteCSVFile(csvPath, result); err != nil {
		return nil, err
	}
	r.log.Info("deliverables written",
		zap.String("excel", excelPath),
		zap.String("csv", csvPath))

	art := &stageArtifact{
		RunID:   runID,
		Stage:   StageFormat,
		Workers: in.Workers,
		Rates:   in.Rates,
		Payout:  result,
	}
	if err := r.saveArtifact(StageFormat, art); err != nil {
		return nil, err
	}
	return map[string]int{"rows": len(result.Rows)}, nil
}
