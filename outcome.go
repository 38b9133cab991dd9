package hemolens

import (
	"github.com/axoncare-ai/hemolens/evidence"
)

type OutcomeStatus string

const (
	OutcomeComplete OutcomeStatus = "complete"
	OutcomeRejected OutcomeStatus = "rejected"
	OutcomeFailed   OutcomeStatus = "failed"
)

// AnalysisResult is the marker-by-marker interpretation, carrying the
// evidence it was grounded on.
type AnalysisResult struct {
	Commentary      string            `json:"commentary"`
	Evidence        evidence.Evidence `json:"evidence"`
	Query           string            `json:"query"`
	NoUsableMarkers bool              `json:"no_usable_markers,omitempty"`
	// Substituted is set when the generated text failed the grounding
	// guard and a deterministic rendering replaced it.
	Substituted bool `json:"substituted,omitempty"`
}

// AdvisoryResult is the general, non-diagnostic guidance derived from an
// analysis. Every AdvisoryResult contains the professional-consultation
// notice; results that came back without it are substituted wholesale.
type AdvisoryResult struct {
	Guidance       string            `json:"guidance"`
	FlaggedMarkers evidence.Evidence `json:"flagged_markers"`
	Substituted    bool              `json:"substituted,omitempty"`
}

// Outcome is the terminal value of one pipeline run.
type Outcome struct {
	RunID  string
	Status OutcomeStatus
	Query  string

	// Populated on Complete.
	Analysis        *AnalysisResult
	Advisory        *AdvisoryResult
	EvidenceSummary string

	// Populated on Rejected.
	Reason string

	// Populated on Failed.
	FailedStage Stage
	ErrorKind   ErrorKind

	// State is the per-stage audit record, always populated.
	State *RunState

	err error
}

// Err returns the underlying failure for logging. It is never part of the
// client-facing payload.
func (o Outcome) Err() error {
	return o.err
}

func completeOutcome(runID, query string, analysis *AnalysisResult, advisory *AdvisoryResult, state *RunState) Outcome {
	return Outcome{
		RunID:           runID,
		Status:          OutcomeComplete,
		Query:           query,
		Analysis:        analysis,
		Advisory:        advisory,
		EvidenceSummary: analysis.Evidence.Summary(),
		State:           state,
	}
}

func rejectedOutcome(runID, query, reason string, state *RunState) Outcome {
	return Outcome{
		RunID:  runID,
		Status: OutcomeRejected,
		Query:  query,
		Reason: reason,
		State:  state,
	}
}

func failedOutcome(runID, query string, stageErr *StageError, state *RunState) Outcome {
	return Outcome{
		RunID:       runID,
		Status:      OutcomeFailed,
		Query:       query,
		FailedStage: stageErr.Stage,
		ErrorKind:   stageErr.Kind,
		State:       state,
		err:         stageErr,
	}
}
