package consolidate

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func writeSheet(t *testing.T, dir, name string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for ri, row := range rows {
		for ci, v := range row {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
}

func activeSheet() [][]string {
	return [][]string{
		{"MATRICULA", "EMPRESA", "CARGO", "SITUACAO", "Sindicato"},
		{"1001", "1410", "Analista", "Trabalhando", "SINDPD SP"},
	}
}

// =============================================================================
// SOURCE LOADING
// =============================================================================

func TestLoadSources_MissingActiveBaseIsFatal(t *testing.T) {
	// GIVEN a directory without the active base
	r := NewReader(t.TempDir(), DefaultFileSet(), zap.NewNop())

	// WHEN sources are loaded
	_, err := r.LoadSources()

	// THEN the stage fails with the missing-source sentinel and context
	require.Error(t, err)
	assert.True(t, errors.Is(err, voucher.ErrSourceMissing))

	var stageErr *voucher.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "consolidate", stageErr.Stage)
	assert.Equal(t, DefaultFileSet().Active, stageErr.File)
}

func TestLoadSources_OptionalMissingIsRecoverable(t *testing.T) {
	// GIVEN only the active base exists
	dir := t.TempDir()
	writeSheet(t, dir, DefaultFileSet().Active, activeSheet())
	r := NewReader(dir, DefaultFileSet(), zap.NewNop())

	// WHEN sources are loaded
	sources, err := r.LoadSources()

	// THEN the absent optional sources are skipped, not fatal
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, KindActive, sources[0].Kind)
	require.Len(t, sources[0].Rows, 1)
	assert.Equal(t, "1001", sources[0].Rows[0].EmployeeID)
	assert.Equal(t, "SINDPD SP", sources[0].Rows[0].Union)
}

func TestReadSheet_MissingFileCarriesRecoverableSentinel(t *testing.T) {
	r := NewReader(t.TempDir(), DefaultFileSet(), zap.NewNop())

	_, err := r.readSheet("NAO_EXISTE.xlsx")

	require.Error(t, err)
	assert.True(t, errors.Is(err, voucher.ErrSourceMissing))
	assert.True(t, voucher.IsRecoverable(err))
}

func TestLoadRateTable_MissingFilesFallBackToDefaults(t *testing.T) {
	r := NewReader(t.TempDir(), DefaultFileSet(), zap.NewNop())

	table := r.LoadRateTable()

	require.NotNil(t, table)
	assert.Equal(t, 22, table.DefaultDays)
	assert.Equal(t, "37.50", table.RateByState[voucher.StateSaoPaulo].StringFixed(2))
}
