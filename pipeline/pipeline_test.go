package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/voucher-engine/exclusion"
	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Input.Dir = t.TempDir()
	cfg.Output.Dir = t.TempDir()
	cfg.Output.ExcelFile = "out.xlsx"
	cfg.Output.CSVFile = "out.csv"
	return cfg
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func seedConsolidated(t *testing.T, r *Runner, workers ...*voucher.Worker) {
	t.Helper()
	set := voucher.NewWorkerSet()
	for _, w := range workers {
		set.Put(w)
	}
	art := &stageArtifact{
		RunID:   "seed",
		Stage:   StageConsolidate,
		Workers: set,
		Rates:   voucher.DefaultRateTable(),
	}
	require.NoError(t, r.saveArtifact(StageConsolidate, art))
}

func analyst(id string) *voucher.Worker {
	return &voucher.Worker{
		ID:        voucher.EmployeeID(id),
		Company:   "1410",
		JobTitle:  "Analista de Sistemas",
		Situation: "Trabalhando",
		Status:    voucher.StatusActive,
		Union:     voucher.KnownUnions()[0].FullName,
	}
}

type brokenClassifier struct{}

func (brokenClassifier) Classify(context.Context, exclusion.DistinctValues) (*exclusion.DecisionSet, error) {
	return nil, voucher.ErrClassifierUnavailable
}
func (brokenClassifier) Name() string { return "broken" }

// =============================================================================
// CHECKPOINT CONTRACT
// =============================================================================

func TestRunStage_RefusesWithoutUpstreamArtifact(t *testing.T) {
	// GIVEN an empty output directory
	r := testRunner(t)

	// WHEN a downstream stage runs
	_, err := r.RunStage(context.Background(), StageCalculate)

	// THEN it refuses instead of inventing inputs, and writes nothing
	require.Error(t, err)
	assert.True(t, errors.Is(err, voucher.ErrArtifactMissing))
	assert.True(t, voucher.IsFatal(err))
	_, statErr := os.Stat(r.artifactPath(StageCalculate))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFailedStageLeavesNoArtifact(t *testing.T) {
	// GIVEN a runner whose classifier always fails
	r := testRunner(t)
	r.classifier = brokenClassifier{}
	seedConsolidated(t, r, analyst("1"))

	// WHEN the exclusion stage runs
	status, err := r.RunStage(context.Background(), StageExclude)

	// THEN the stage fails fatally and its checkpoint does not appear
	require.Error(t, err)
	assert.False(t, status.Success)
	assert.NotEmpty(t, status.Error)
	_, statErr := os.Stat(r.artifactPath(StageExclude))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveArtifactIsAtomic(t *testing.T) {
	// After a save, no temp files linger next to the artifact.
	r := testRunner(t)
	seedConsolidated(t, r, analyst("1"))

	entries, err := os.ReadDir(r.cfg.Output.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

// =============================================================================
// STAGE CHAINING
// =============================================================================

func TestStagesChainOverCheckpoints(t *testing.T) {
	// GIVEN a consolidated checkpoint with one director and one analyst
	r := testRunner(t)
	director := analyst("100")
	director.JobTitle = "Diretor de Operações"
	seedConsolidated(t, r, director, analyst("200"))

	ctx := context.Background()

	// WHEN the remaining stages run one by one
	status, err := r.RunStage(ctx, StageExclude)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts["excluded"])
	assert.Equal(t, 1, status.Counts["kept"])

	status, err = r.RunStage(ctx, StageCalculate)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts["eligible"])

	_, err = r.RunStage(ctx, StageValidate)
	require.NoError(t, err)

	status, err = r.RunStage(ctx, StageFormat)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts["rows"])

	// THEN the deliverables and the final checkpoint exist
	for _, name := range []string{"out.xlsx", "out.csv", "payout.json"} {
		_, statErr := os.Stat(filepath.Join(r.cfg.Output.Dir, name))
		assert.NoError(t, statErr, name)
	}
}

func TestStageStatusCarriesRunIdentity(t *testing.T) {
	r := testRunner(t)
	seedConsolidated(t, r, analyst("1"))

	status, err := r.RunStage(context.Background(), StageExclude)
	require.NoError(t, err)
	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, StageExclude, status.Stage)
	assert.True(t, status.Success)
	assert.False(t, status.FinishedAt.Before(status.StartedAt))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestLoadConfig_PartialFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vrcalc.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[period]
year = 2025
month = 6

[classifier]
kind = "remote"
base_url = "http://classifier.internal"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Period.Month)
	assert.Equal(t, "remote", cfg.Classifier.Kind)
	// Untouched sections keep their defaults.
	assert.Equal(t, "0.80", cfg.Payout.EmployerShare)
	assert.Equal(t, "ATIVOS.xlsx", cfg.Input.Files.Active)
}

func TestConfig_ReferencePeriod(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.ReferencePeriod()
	require.NoError(t, err)
	assert.True(t, p.Start.Equal(voucher.NewDate(2025, time.April, 15)))
	assert.True(t, p.End.Equal(voucher.NewDate(2025, time.May, 15)))
}

func TestConfig_EmployerShareFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Payout.EmployerShare = "not a number"
	assert.Equal(t, "0.8", cfg.EmployerShare().String())

	cfg.Payout.EmployerShare = "0.75"
	assert.Equal(t, "0.75", cfg.EmployerShare().String())
}

func TestNewRunner_WarnsWhenCalendarMissesPeriod(t *testing.T) {
	// GIVEN a period in a year the holiday calendar does not cover
	core, logs := observer.New(zap.WarnLevel)
	cfg := testConfig(t)
	cfg.Period.Year = 2026

	// WHEN the runner is built
	r, err := NewRunner(cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	// THEN the coverage gap is surfaced, not swallowed
	entries := logs.FilterMessageSnippet("holiday calendar").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap(), "period")
}

func TestNewRunner_CoveredPeriodStaysQuiet(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r, err := NewRunner(testConfig(t), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	assert.Zero(t, logs.FilterMessageSnippet("holiday calendar").Len())
}

func TestNewRunner_RejectsUnknownClassifier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.Kind = "astrology"
	_, err := NewRunner(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown classifier kind")
}

func TestNewLogger_RejectsBadLevel(t *testing.T) {
	_, err := NewLogger("loud", "console")
	require.Error(t, err)

	log, err := NewLogger("debug", "json")
	require.NoError(t, err)
	log.Sync()
}
