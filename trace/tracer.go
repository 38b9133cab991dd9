// Package trace writes per-run audit trails for pipeline executions:
// stage transitions, verdicts, model calls, guard substitutions, errors.
package trace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

type Config struct {
	Directory         string
	RetentionDuration time.Duration
	MaxTraceFiles     int
}

const (
	defaultRetentionDuration = 7 * 24 * time.Hour
	defaultMaxTraceFiles     = 50
)

type Tracer struct {
	config  Config
	counter int64
}

func NewTracer(config ...Config) *Tracer {
	cfg := Config{
		Directory:         filepath.Join(os.TempDir(), "hemolens-traces"),
		RetentionDuration: defaultRetentionDuration,
		MaxTraceFiles:     defaultMaxTraceFiles,
	}

	if len(config) > 0 {
		if config[0].Directory != "" {
			cfg.Directory = config[0].Directory
		}
		if config[0].RetentionDuration > 0 {
			cfg.RetentionDuration = config[0].RetentionDuration
		}
		if config[0].MaxTraceFiles > 0 {
			cfg.MaxTraceFiles = config[0].MaxTraceFiles
		}
	}

	os.MkdirAll(cfg.Directory, 0755)

	return &Tracer{config: cfg}
}

// NewRun opens a trace file for one pipeline run.
func (t *Tracer) NewRun(runID string) *Run {
	timestamp := time.Now().Format("20060102150405")
	counter := atomic.AddInt64(&t.counter, 1)
	path := filepath.Join(t.config.Directory, fmt.Sprintf("trace-%s.%03d.txt", timestamp, counter))

	t.cleanup()

	run := &Run{
		runID:     runID,
		startTime: time.Now(),
		filepath:  path,
	}
	run.printf("==== pipeline run %s started %s\n", runID, run.startTime.Format(time.RFC3339))
	return run
}

// cleanup drops trace files past the retention window and keeps the file
// count under the configured maximum.
func (t *Tracer) cleanup() {
	entries, err := os.ReadDir(t.config.Directory)
	if err != nil {
		slog.Error("failed to read trace directory", "error", err)
		return
	}

	type traceFile struct {
		path    string
		modTime time.Time
	}
	var files []traceFile

	cutoff := time.Now().Add(-t.config.RetentionDuration)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "trace-") || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(t.config.Directory, entry.Name())
		if info.ModTime().Before(cutoff) {
			os.Remove(path)
			continue
		}
		files = append(files, traceFile{path: path, modTime: info.ModTime()})
	}

	if len(files) < t.config.MaxTraceFiles {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	for _, f := range files[:len(files)-t.config.MaxTraceFiles+1] {
		os.Remove(f.path)
	}
}
