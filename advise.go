package hemolens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/axoncare-ai/hemolens/evidence"
)

// Advisor synthesizes general, non-prescriptive guidance from an analysis.
// Generated text is validated by the content guard before acceptance; a
// violation is recoverable and results in the fixed fallback advisory.
type Advisor struct {
	invoker ModelInvoker
	logger  *slog.Logger
}

func NewAdvisor(invoker ModelInvoker, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{invoker: invoker, logger: logger}
}

func (a *Advisor) Advise(ctx context.Context, analysis *AnalysisResult) (*AdvisoryResult, error) {
	flagged := analysis.Evidence.Flagged()

	msgs := []ai.Message{
		ai.SystemMessage{Role: ai.SystemRole, Content: advisorSystemPrompt},
		ai.UserMessage{Role: ai.UserRole, Content: advisorUserPrompt(analysis)},
	}

	resp, err := a.invoker.Invoke(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("advisory backend call failed: %w", err)
	}

	guidance := strings.TrimSpace(resp.Content)
	if violations := checkAdvisoryContent(guidance); len(violations) > 0 {
		a.logger.Warn("advisory content policy violation, substituting fallback",
			"violations", violations)
		return fallbackAdvisory(flagged), nil
	}

	return &AdvisoryResult{
		Guidance:       guidance,
		FlaggedMarkers: flagged,
	}, nil
}

// fallbackAdvisory is the fixed safe message substituted whenever generated
// guidance fails validation. It is built only from evidence and always
// carries the consultation notice.
func fallbackAdvisory(flagged evidence.Evidence) *AdvisoryResult {
	var b strings.Builder
	if len(flagged) > 0 {
		names := make([]string, len(flagged))
		for i, m := range flagged {
			names[i] = fmt.Sprintf("%s (%s)", m.Name, m.Flag)
		}
		fmt.Fprintf(&b, "The following markers were outside their reference ranges: %s. ", strings.Join(names, ", "))
		b.WriteString("Out-of-range values can have many causes and are best discussed in the context of your full medical history. ")
	} else {
		b.WriteString("All interpreted markers were within their reference ranges. ")
	}
	b.WriteString(ConsultationNotice)

	return &AdvisoryResult{
		Guidance:       b.String(),
		FlaggedMarkers: flagged,
		Substituted:    true,
	}
}
