/*
dto.go - Response data structures for the stage-runner API
*/
package api

import "github.com/warp/voucher-engine/pipeline"

// StageDTO is one pipeline stage and whether its checkpoint exists.
type StageDTO struct {
	Name     string `json:"name"`
	Artifact bool   `json:"artifact"`
}

// RunResponse reports a full-pipeline run. Error is set when the run
// halted partway; Statuses still lists every stage that executed.
type RunResponse struct {
	Statuses []pipeline.StageStatus `json:"statuses"`
	Error    string                 `json:"error,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
