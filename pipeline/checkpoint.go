package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// CHECKPOINT ARTIFACTS - Idempotent stage boundaries on disk
// =============================================================================

// artifactFile maps each stage to its checkpoint name in the output dir.
var artifactFile = map[Stage]string{
	StageConsolidate: "consolidated.json",
	StageExclude:     "excluded.json",
	StageCalculate:   "calculated.json",
	StageValidate:    "validated.json",
	StageFormat:      "payout.json",
}

func (r *Runner) artifactPath(stage Stage) string {
	return filepath.Join(r.cfg.Output.Dir, artifactFile[stage])
}

// saveArtifact writes the checkpoint atomically: to a temp file first,
// renamed into place only on success. A stage that fails mid-write leaves
// no artifact, so a rerun sees a clean boundary.
func (r *Runner) saveArtifact(stage Stage, v any) error {
	if err := os.MkdirAll(r.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := r.artifactPath(stage)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s artifact: %w", stage, err)
	}

	tmp, err := os.CreateTemp(r.cfg.Output.Dir, string(stage)+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s artifact: %w", stage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit %s artifact: %w", stage, err)
	}
	return nil
}

// ArtifactStatus reports which stage checkpoints currently exist in the
// output directory.
func (r *Runner) ArtifactStatus() map[Stage]bool {
	out := make(map[Stage]bool, len(artifactFile))
	for _, s := range Stages() {
		_, err := os.Stat(r.artifactPath(s))
		out[s] = err == nil
	}
	return out
}

// loadArtifact reads the upstream checkpoint. A missing file is
// ErrArtifactMissing: the downstream stage refuses to run rather than
// guessing at inputs.
func (r *Runner) loadArtifact(stage Stage, v any) error {
	path := r.artifactPath(stage)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &voucher.StageError{
			Stage: string(stage),
			File:  path,
			Err:   voucher.ErrArtifactMissing,
		}
	}
	if err != nil {
		return fmt.Errorf("read %s artifact: %w", stage, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s artifact %s: %w", stage, path, err)
	}
	return nil
}
