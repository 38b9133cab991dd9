package trace

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRun_WritesLifecycle(t *testing.T) {
	dir := t.TempDir()
	tracer := NewTracer(Config{Directory: dir})

	run := tracer.NewRun("run-123")
	run.StageStart("ingesting")
	run.StageEnd("ingesting", "completed", nil)
	run.Verdict(0.72, true, "found 4 lab markers")
	run.ModelCall("gpt-4o-mini", 120*time.Millisecond, 312, nil)
	run.ModelCall("gpt-4o-mini", 5*time.Millisecond, 0, errors.New("rate limited"))
	run.StageEnd("extracting", "failed", errors.New("bad xref"))
	run.Violation("grounding", "analysis replaced")
	run.RecordError(errors.New("boom"))
	run.Close("complete")

	data, err := os.ReadFile(run.Filepath())
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"pipeline run run-123 started",
		"---> ingesting",
		"<--- ingesting completed",
		"verdict likely=true confidence=0.72",
		"found 4 lab markers",
		"model call model=gpt-4o-mini duration=120ms tokens=312",
		"model call model=gpt-4o-mini duration=5ms error=rate limited",
		"<--- extracting failed: bad xref",
		"guard substitution kind=grounding",
		"error: boom",
		"pipeline run run-123 complete",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("trace missing %q\n%s", want, content)
		}
	}
}

func TestTracer_UniqueFilesPerRun(t *testing.T) {
	dir := t.TempDir()
	tracer := NewTracer(Config{Directory: dir})

	a := tracer.NewRun("a")
	b := tracer.NewRun("b")
	if a.Filepath() == b.Filepath() {
		t.Fatalf("runs share a trace file: %s", a.Filepath())
	}
}

func TestTracer_CleanupKeepsFileCountBounded(t *testing.T) {
	dir := t.TempDir()
	tracer := NewTracer(Config{Directory: dir, MaxTraceFiles: 3})

	for i := 0; i < 10; i++ {
		run := tracer.NewRun("run")
		run.Close("complete")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read trace dir: %v", err)
	}
	if len(entries) > 3 {
		t.Errorf("expected at most 3 trace files, found %d", len(entries))
	}
}

func TestTracer_CleanupDropsExpiredFiles(t *testing.T) {
	dir := t.TempDir()

	stale := dir + "/trace-old.txt"
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatal(err)
	}

	tracer := NewTracer(Config{Directory: dir, RetentionDuration: 24 * time.Hour})
	tracer.NewRun("fresh")

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected stale trace file to be removed, stat err = %v", err)
	}
}
