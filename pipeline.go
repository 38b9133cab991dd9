// Package hemolens implements the blood-test report analysis pipeline:
// ingestion, evidence extraction, verification, analysis, and advisory
// synthesis, sequenced by a coordinator with a single conditional gate.
package hemolens

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/axoncare-ai/hemolens/evidence"
	"github.com/axoncare-ai/hemolens/ingest"
	"github.com/axoncare-ai/hemolens/trace"
)

// Options is the pipeline's run policy. Zero values fall back to defaults.
type Options struct {
	MaxUploadBytes  int64
	VerifyThreshold float64
	StageTimeout    time.Duration
	RetryCount      int
	RetryBaseDelay  time.Duration
}

const (
	DefaultMaxUploadBytes = int64(10 * 1024 * 1024)
	DefaultStageTimeout   = 60 * time.Second
	DefaultRetryCount     = 2
	DefaultRetryBaseDelay = time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.VerifyThreshold <= 0 {
		o.VerifyThreshold = DefaultVerifyThreshold
	}
	if o.StageTimeout <= 0 {
		o.StageTimeout = DefaultStageTimeout
	}
	if o.RetryCount < 0 {
		o.RetryCount = DefaultRetryCount
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return o
}

// Request is one document submission. The payload lives only for the
// duration of the run.
type Request struct {
	Payload           []byte
	DeclaredMediaType string
	SizeBytes         int64
	Filename          string
	Query             string
}

// Pipeline sequences the stages for one request at a time. A single
// Pipeline is safe for concurrent use: each Run builds its own context
// accumulator and shares only the read-only configuration.
type Pipeline struct {
	opts     Options
	ingestor *ingest.Ingestor
	verifier *Verifier
	analyst  *Analyst
	advisor  *Advisor
	logger   *slog.Logger
	tracer   *trace.Tracer
}

// PipelineOption customizes pipeline construction.
type PipelineOption func(*Pipeline)

// WithTracer enables per-run audit traces.
func WithTracer(t *trace.Tracer) PipelineOption {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

func New(opts Options, model *ai.Model, extractor ingest.TextExtractor, pipelineOpts ...PipelineOption) *Pipeline {
	opts = opts.withDefaults()

	p := &Pipeline{
		opts:   opts,
		logger: slog.Default().With("component", "pipeline"),
	}
	for _, opt := range pipelineOpts {
		opt(p)
	}

	invoker := &retryingInvoker{
		model:     model,
		retries:   opts.RetryCount,
		baseDelay: opts.RetryBaseDelay,
		logger:    p.logger,
	}

	p.ingestor = ingest.NewIngestor(opts.MaxUploadBytes, extractor, p.logger)
	p.verifier = NewVerifier(opts.VerifyThreshold)
	p.analyst = NewAnalyst(invoker, p.logger)
	p.advisor = NewAdvisor(invoker, p.logger)
	return p
}

// runContext is the single mutable accumulator threaded through a run. The
// coordinator is its only writer; fields are set once and never overwritten.
type runContext struct {
	runID    string
	query    string
	upload   ingest.Upload
	text     *ingest.ExtractedText
	evidence evidence.Evidence
	verdict  *Verdict
	analysis *AnalysisResult
	advisory *AdvisoryResult
}

// Run executes the full pipeline for one request and always returns a
// terminal outcome: Complete, Rejected, or Failed.
func (p *Pipeline) Run(ctx context.Context, req Request) (outcome Outcome) {
	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)
	state := newRunState(runID)

	var tr *trace.Run
	if p.tracer != nil {
		tr = p.tracer.NewRun(runID)
		defer func() { tr.Close(string(outcome.Status)) }()
		ctx = withTraceRun(ctx, tr)
	}

	// The query is injected exactly once; stages see it read-only.
	rc := &runContext{
		runID: runID,
		query: normalizeQuery(req.Query),
		upload: ingest.Upload{
			Payload:           req.Payload,
			DeclaredMediaType: req.DeclaredMediaType,
			SizeBytes:         req.SizeBytes,
			Filename:          req.Filename,
		},
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.Error("pipeline panic", "stage", state.Current(), "error", err)
			state.finish(StageFailed, err)
			if tr != nil {
				tr.RecordError(err)
			}
			outcome = failedOutcome(runID, rc.query, &StageError{Stage: state.Current(), Kind: KindInternal, Err: err}, state)
		}
	}()

	logger.Info("pipeline run started", "file", req.Filename, "size_bytes", req.SizeBytes)

	// Ingesting: upload constraints, checked before any extraction work.
	if err := p.runStage(ctx, state, tr, StageIngest, func(context.Context) error {
		return p.ingestor.Validate(rc.upload)
	}); err != nil {
		return p.fail(logger, rc, state, tr, err)
	}

	// Extracting: text extraction (retryable backend), then evidence parsing.
	if err := p.runStage(ctx, state, tr, StageExtract, func(stageCtx context.Context) error {
		var err error
		rc.text, err = p.extractWithRetry(stageCtx, logger, rc.upload)
		if err != nil {
			return err
		}
		rc.evidence = evidence.Extract(rc.text.Text)
		return nil
	}); err != nil {
		return p.fail(logger, rc, state, tr, err)
	}
	logger.Info("evidence extracted", "source_id", rc.text.SourceID, "markers", len(rc.evidence))

	// Verifying: deterministic gate.
	if err := p.runStage(ctx, state, tr, StageVerify, func(context.Context) error {
		verdict := p.verifier.Verify(rc.evidence, rc.text.Text)
		rc.verdict = &verdict
		return nil
	}); err != nil {
		return p.fail(logger, rc, state, tr, err)
	}
	if tr != nil {
		tr.Verdict(rc.verdict.Confidence, rc.verdict.IsLikelyBloodReport, rc.verdict.Rationale)
	}

	if !rc.verdict.IsLikelyBloodReport {
		logger.Info("document rejected by verification gate",
			"confidence", rc.verdict.Confidence, "markers", rc.verdict.MarkerCountFound)
		for _, stage := range []Stage{StageAnalyze, StageAdvise} {
			state.skip(stage)
			if tr != nil {
				tr.StageEnd(string(stage), string(StageSkipped), nil)
			}
		}
		return rejectedOutcome(runID, rc.query, rc.verdict.Rationale, state)
	}

	// Analyzing: only reachable through the gate above.
	if err := p.runStage(ctx, state, tr, StageAnalyze, func(stageCtx context.Context) error {
		var err error
		rc.analysis, err = p.analyst.Analyze(stageCtx, rc.evidence, rc.query)
		return err
	}); err != nil {
		return p.fail(logger, rc, state, tr, err)
	}
	if tr != nil && rc.analysis.Substituted {
		tr.Violation("grounding", "analysis replaced with deterministic commentary")
	}

	// Advising.
	if err := p.runStage(ctx, state, tr, StageAdvise, func(stageCtx context.Context) error {
		var err error
		rc.advisory, err = p.advisor.Advise(stageCtx, rc.analysis)
		return err
	}); err != nil {
		return p.fail(logger, rc, state, tr, err)
	}
	if tr != nil && rc.advisory.Substituted {
		tr.Violation("content_policy", "advisory replaced with fallback message")
	}

	logger.Info("pipeline run complete", "evidence", rc.evidence.Summary())
	return completeOutcome(runID, rc.query, rc.analysis, rc.advisory, state)
}

// runStage executes one stage under the per-stage timeout and records its
// state transitions.
func (p *Pipeline) runStage(ctx context.Context, state *RunState, tr *trace.Run, stage Stage, fn func(context.Context) error) error {
	state.begin(stage)
	if tr != nil {
		tr.StageStart(string(stage))
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()

	err := fn(stageCtx)
	if err != nil {
		state.finish(StageFailed, err)
		if tr != nil {
			tr.StageEnd(string(stage), string(StageFailed), err)
		}
		return &StageError{Stage: stage, Kind: classify(err), Err: err}
	}

	state.finish(StageCompleted, nil)
	if tr != nil {
		tr.StageEnd(string(stage), string(StageCompleted), nil)
	}
	return nil
}

func (p *Pipeline) fail(logger *slog.Logger, rc *runContext, state *RunState, tr *trace.Run, err error) Outcome {
	stageErr, ok := err.(*StageError)
	if !ok {
		stageErr = &StageError{Stage: state.Current(), Kind: classify(err), Err: err}
	}
	logger.Error("pipeline run failed", "stage", stageErr.Stage, "kind", stageErr.Kind, "error", stageErr.Err)
	if tr != nil {
		tr.RecordError(stageErr)
	}
	return failedOutcome(rc.runID, rc.query, stageErr, state)
}

// extractWithRetry applies the bounded retry policy to the extraction
// backend: RetryCount retries after the initial attempt, exponential delay,
// abandoned as soon as the stage context expires.
func (p *Pipeline) extractWithRetry(ctx context.Context, logger *slog.Logger, up ingest.Upload) (*ingest.ExtractedText, error) {
	var lastErr error
	for attempt := 0; attempt <= p.opts.RetryCount; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, p.opts.RetryBaseDelay, attempt); err != nil {
				return nil, err
			}
			logger.Warn("retrying text extraction", "attempt", attempt, "error", lastErr)
		}

		text, err := p.ingestor.Extract(ctx, up)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// retryingInvoker wraps the model backend with the same retry policy for
// the analytical stages.
type retryingInvoker struct {
	model     *ai.Model
	retries   int
	baseDelay time.Duration
	logger    *slog.Logger
}

func (r *retryingInvoker) Invoke(ctx context.Context, messages []ai.Message) (ai.AIMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, r.baseDelay, attempt); err != nil {
				return ai.AIMessage{}, err
			}
			r.logger.Warn("retrying model call", "attempt", attempt, "error", lastErr)
		}

		start := time.Now()
		resp, err := r.model.Call(ctx, messages)
		if tr := traceRunFrom(ctx); tr != nil {
			tr.ModelCall(r.model.ModelName, time.Since(start), resp.Response.Usage.TotalTokens, err)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return ai.AIMessage{}, lastErr
}

// traceRunKey carries the per-run trace to the invoker without widening the
// ModelInvoker interface.
type traceRunKey struct{}

func withTraceRun(ctx context.Context, tr *trace.Run) context.Context {
	return context.WithValue(ctx, traceRunKey{}, tr)
}

func traceRunFrom(ctx context.Context) *trace.Run {
	tr, _ := ctx.Value(traceRunKey{}).(*trace.Run)
	return tr
}

// sleepBackoff waits attempt*baseDelay doubled per attempt, or returns early
// when the context is done.
func sleepBackoff(ctx context.Context, baseDelay time.Duration, attempt int) error {
	delay := baseDelay << (attempt - 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
