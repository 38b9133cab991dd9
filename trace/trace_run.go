package trace

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Run records one pipeline execution. Methods are safe for use from the
// single coordinator goroutine; the mutex covers the file handle for the
// reopen-append writes.
type Run struct {
	mu        sync.Mutex
	runID     string
	startTime time.Time
	filepath  string
}

func (r *Run) Filepath() string {
	return r.filepath
}

func (r *Run) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.filepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("failed to open trace file", "file", r.filepath, "error", err)
		return
	}
	defer file.Close()

	fmt.Fprintf(file, format, args...)
}

func (r *Run) StageStart(stage string) {
	r.printf("[%s] ---> %s\n", time.Now().Format("15:04:05.000"), stage)
}

func (r *Run) StageEnd(stage, status string, err error) {
	if err != nil {
		r.printf("[%s] <--- %s %s: %v\n", time.Now().Format("15:04:05.000"), stage, status, err)
		return
	}
	r.printf("[%s] <--- %s %s\n", time.Now().Format("15:04:05.000"), stage, status)
}

func (r *Run) Verdict(confidence float64, isLikely bool, rationale string) {
	r.printf("[%s] verdict likely=%t confidence=%.2f rationale=%s\n",
		time.Now().Format("15:04:05.000"), isLikely, confidence, rationale)
}

func (r *Run) ModelCall(model string, duration time.Duration, totalTokens int, err error) {
	if err != nil {
		r.printf("[%s] model call model=%s duration=%s error=%v\n",
			time.Now().Format("15:04:05.000"), model, duration, err)
		return
	}
	r.printf("[%s] model call model=%s duration=%s tokens=%d\n",
		time.Now().Format("15:04:05.000"), model, duration, totalTokens)
}

func (r *Run) Violation(kind, detail string) {
	r.printf("[%s] guard substitution kind=%s detail=%s\n", time.Now().Format("15:04:05.000"), kind, detail)
}

func (r *Run) RecordError(err error) {
	r.printf("[%s] error: %v\n", time.Now().Format("15:04:05.000"), err)
}

func (r *Run) Close(outcome string) {
	r.printf("==== pipeline run %s %s after %s\n", r.runID, outcome, time.Since(r.startTime).Round(time.Millisecond))
}
