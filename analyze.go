package hemolens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/axoncare-ai/hemolens/evidence"
)

// ModelInvoker is the analytical backend boundary. The coordinator supplies
// an implementation that applies the retry and timeout policy.
type ModelInvoker interface {
	Invoke(ctx context.Context, messages []ai.Message) (ai.AIMessage, error)
}

// Analyst produces marker-by-marker interpretation grounded only in
// extracted evidence. The coordinator invokes it only after the
// verification gate passed; the stage does not re-check the verdict.
type Analyst struct {
	invoker ModelInvoker
	logger  *slog.Logger
}

func NewAnalyst(invoker ModelInvoker, logger *slog.Logger) *Analyst {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{invoker: invoker, logger: logger}
}

func (a *Analyst) Analyze(ctx context.Context, ev evidence.Evidence, query string) (*AnalysisResult, error) {
	if len(ev.Parsed()) == 0 {
		// Marker-shaped content was present but nothing usable. Say so
		// explicitly instead of synthesizing around missing numbers.
		return &AnalysisResult{
			Commentary:      unusableMarkersCommentary(ev),
			Evidence:        ev,
			Query:           query,
			NoUsableMarkers: true,
		}, nil
	}

	msgs := []ai.Message{
		ai.SystemMessage{Role: ai.SystemRole, Content: analystSystemPrompt},
		ai.UserMessage{Role: ai.UserRole, Content: analystUserPrompt(ev, query)},
	}

	resp, err := a.invoker.Invoke(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("analysis backend call failed: %w", err)
	}

	result := &AnalysisResult{
		Commentary: strings.TrimSpace(resp.Content),
		Evidence:   ev,
		Query:      query,
	}

	if violations := groundingViolations(result.Commentary, ev); len(violations) > 0 {
		a.logger.Warn("analysis grounding violation, substituting deterministic commentary",
			"hallucinated_terms", violations)
		result.Commentary = deterministicCommentary(ev, query)
		result.Substituted = true
	}

	return result, nil
}

// groundingViolations returns blood-marker vocabulary terms mentioned in the
// generated text that do not correspond to any marker in the evidence. The
// backend is treated as best-effort; this check is what actually enforces
// that commentary names only extracted markers.
func groundingViolations(text string, ev evidence.Evidence) []string {
	_, mentioned := evidence.CountHits(text, evidence.BloodMarkerVocab)
	if len(mentioned) == 0 {
		return nil
	}

	_, grounded := evidence.CountHits(strings.Join(ev.Names(), "\n"), evidence.BloodMarkerVocab)
	known := make(map[string]bool, len(grounded))
	for _, term := range grounded {
		known[term] = true
	}

	var violations []string
	for _, term := range mentioned {
		if !known[term] {
			violations = append(violations, term)
		}
	}
	return violations
}

func unusableMarkersCommentary(ev evidence.Evidence) string {
	var b strings.Builder
	b.WriteString("No usable numeric markers were found in the document. ")
	if len(ev) > 0 {
		fmt.Fprintf(&b, "%d marker-shaped entries were present (%s) but none carried a readable numeric value, so no interpretation can be offered. ",
			len(ev), strings.Join(ev.Names(), ", "))
	}
	b.WriteString("Please have the original report reviewed by a qualified healthcare professional.")
	return b.String()
}
