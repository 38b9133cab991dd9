package hemolens

import (
	"time"
)

// Stage names one step of the pipeline state machine.
type Stage string

const (
	StageIngest  Stage = "ingesting"
	StageExtract Stage = "extracting"
	StageVerify  Stage = "verifying"
	StageAnalyze Stage = "analyzing"
	StageAdvise  Stage = "advising"
)

type StageStatus string

const (
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

// StageState records one stage's execution for auditability.
type StageState struct {
	Stage       Stage       `json:"stage"`
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// RunState is the per-run execution record. It accumulates monotonically:
// stages are appended as they begin and closed out in place, never removed.
type RunState struct {
	RunID     string       `json:"run_id"`
	Stages    []StageState `json:"stages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newRunState(runID string) *RunState {
	now := time.Now()
	return &RunState{
		RunID:     runID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *RunState) begin(stage Stage) {
	now := time.Now()
	s.Stages = append(s.Stages, StageState{
		Stage:     stage,
		Status:    StageRunning,
		StartedAt: now,
	})
	s.UpdatedAt = now
}

// skip records a stage the gate decided not to run, so the audit record
// still lists all five stages.
func (s *RunState) skip(stage Stage) {
	now := time.Now()
	s.Stages = append(s.Stages, StageState{
		Stage:       stage,
		Status:      StageSkipped,
		StartedAt:   now,
		CompletedAt: &now,
	})
	s.UpdatedAt = now
}

func (s *RunState) finish(status StageStatus, err error) {
	if len(s.Stages) == 0 {
		return
	}
	now := time.Now()
	current := &s.Stages[len(s.Stages)-1]
	current.Status = status
	current.CompletedAt = &now
	if err != nil {
		current.Error = err.Error()
	}
	s.UpdatedAt = now
}

// Current returns the stage most recently begun, or empty if none ran yet.
func (s *RunState) Current() Stage {
	if len(s.Stages) == 0 {
		return ""
	}
	return s.Stages[len(s.Stages)-1].Stage
}
