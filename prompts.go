package hemolens

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/axoncare-ai/hemolens/evidence"
)

// DefaultQuery is used when the caller supplies no question.
const DefaultQuery = "Please analyze my blood test report and provide a comprehensive summary"

// maxQueryLen caps user queries before they reach any prompt.
const maxQueryLen = 1000

// normalizeQuery trims, caps, and defaults the user's query. The coordinator
// applies it once at pipeline start; the result is immutable afterwards.
func normalizeQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return DefaultQuery
	}
	if len(query) > maxQueryLen {
		cut := maxQueryLen
		for cut > 0 && !utf8.RuneStart(query[cut]) {
			cut--
		}
		query = query[:cut]
	}
	return query
}

const analystSystemPrompt = `You are a medical report analyst with expertise in laboratory medicine and
clinical pathology. You interpret blood test results strictly from the values
provided to you. You never introduce markers, values, or reference ranges
that are not in the provided data, and you never offer a diagnosis. You
recommend consulting a healthcare provider for proper medical guidance.`

const advisorSystemPrompt = `You are a health and wellness educator with knowledge of nutrition,
lifestyle factors, and general wellness. You provide general, non-prescriptive
guidance keyed to out-of-range blood markers. You never diagnose a condition,
never prescribe or name a medication or dosage, and you always direct the
reader to consult a qualified healthcare professional for medical advice.`

func analystUserPrompt(ev evidence.Evidence, query string) string {
	var b strings.Builder
	b.WriteString("Blood test markers extracted from the report:\n\n")
	b.WriteString(renderEvidenceTable(ev))
	b.WriteString("\n\nUser question: ")
	b.WriteString(query)
	b.WriteString(`

Provide a marker-by-marker interpretation using only the markers listed above.
For each marker state its value, its reference range when given, and whether
it is within that range. Do not mention any marker that is not in the list.
Close by recommending professional interpretation of the results.`)
	return b.String()
}

func advisorUserPrompt(analysis *AnalysisResult) string {
	var b strings.Builder
	flagged := analysis.Evidence.Flagged()

	b.WriteString("Blood test analysis:\n\n")
	b.WriteString(analysis.Commentary)
	b.WriteString("\n\n")

	if len(flagged) == 0 {
		b.WriteString("No markers were outside their reference ranges.\n")
	} else {
		b.WriteString("Markers outside their reference ranges:\n")
		b.WriteString(renderEvidenceTable(flagged))
		b.WriteString("\n")
	}

	b.WriteString(`
Provide general lifestyle and monitoring guidance related to the flagged
markers only. Do not diagnose, do not prescribe, and do not name medications
or dosages. End with an explicit recommendation to consult a qualified
healthcare professional about these results.`)
	return b.String()
}

// renderEvidenceTable renders markers as plain rows. This is the only
// channel through which report content reaches a model prompt.
func renderEvidenceTable(ev evidence.Evidence) string {
	rows := make([]string, 0, len(ev))
	for _, m := range ev {
		rows = append(rows, "- "+m.String())
	}
	return strings.Join(rows, "\n")
}

// deterministicCommentary renders per-marker commentary from evidence alone.
// It backs the grounding guard: when a generation references markers that
// are not in evidence, this replaces it.
func deterministicCommentary(ev evidence.Evidence, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of %d extracted markers (question: %s)\n\n", len(ev), query)

	for _, m := range ev {
		if !m.Parsed() {
			fmt.Fprintf(&b, "%s: value %q could not be read as a number; no interpretation is possible.\n", m.Name, m.RawValue)
			continue
		}
		switch m.Flag {
		case evidence.FlagHigh:
			fmt.Fprintf(&b, "%s: %s %s is above the reference range %g-%g.\n", m.Name, m.RawValue, m.Unit, *m.RefLow, *m.RefHigh)
		case evidence.FlagLow:
			fmt.Fprintf(&b, "%s: %s %s is below the reference range %g-%g.\n", m.Name, m.RawValue, m.Unit, *m.RefLow, *m.RefHigh)
		default:
			if m.RefLow != nil && m.RefHigh != nil {
				fmt.Fprintf(&b, "%s: %s %s is within the reference range %g-%g.\n", m.Name, m.RawValue, m.Unit, *m.RefLow, *m.RefHigh)
			} else {
				fmt.Fprintf(&b, "%s: %s %s (no reference range given in the report).\n", m.Name, m.RawValue, m.Unit)
			}
		}
	}

	b.WriteString("\nThese observations describe the reported values only. Please have the results interpreted by a qualified healthcare professional.")
	return b.String()
}
