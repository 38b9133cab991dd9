package hemolens

import (
	"fmt"
	"strings"

	"github.com/axoncare-ai/hemolens/evidence"
)

// DefaultVerifyThreshold is the gate the confidence score must reach before
// analysis runs. Policy choice, overridable through configuration.
const DefaultVerifyThreshold = 0.5

// Verdict is the verification stage's judgment of whether the extracted
// evidence plausibly constitutes a blood-test report.
type Verdict struct {
	IsLikelyBloodReport bool    `json:"is_likely_blood_report"`
	Confidence          float64 `json:"confidence"`
	Rationale           string  `json:"rationale"`
	MarkerCountFound    int     `json:"marker_count_found"`
}

// Verifier scores evidence deterministically. The gate decision must be
// reproducible for identical input, so no model backend is involved here.
type Verifier struct {
	threshold float64
}

func NewVerifier(threshold float64) *Verifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultVerifyThreshold
	}
	return &Verifier{threshold: threshold}
}

// Scoring weights. Tuned so that a document with no extracted markers can
// never reach the default threshold on boilerplate vocabulary alone.
const (
	parsedMarkerWeight   = 0.15
	parsedMarkerCap      = 4
	unparseableWeight    = 0.05
	unparseableCap       = 2
	keywordWeight        = 0.05
	keywordCap           = 6
	markerVocabWeight    = 0.05
	markerVocabCap       = 3
	contradictionPenalty = 0.3
)

// Verify never fails: it always returns a verdict, including a
// zero-confidence one for empty input.
func (v *Verifier) Verify(ev evidence.Evidence, text string) Verdict {
	parsed := len(ev.Parsed())
	unparseable := ev.UnparseableCount()

	keywordHits, keywords := evidence.CountHits(text, evidence.MedicalKeywords)
	vocabHits, vocab := evidence.CountHits(text, evidence.BloodMarkerVocab)
	contraHits, contra := evidence.CountHits(text, evidence.ContradictorySignals)

	confidence := parsedMarkerWeight*float64(capInt(parsed, parsedMarkerCap)) +
		unparseableWeight*float64(capInt(unparseable, unparseableCap)) +
		keywordWeight*float64(capInt(keywordHits, keywordCap)) +
		markerVocabWeight*float64(capInt(vocabHits, markerVocabCap))
	if contraHits > 0 {
		confidence -= contradictionPenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Verdict{
		IsLikelyBloodReport: confidence >= v.threshold,
		Confidence:          confidence,
		Rationale:           buildRationale(len(ev), parsed, unparseable, keywords, vocab, contra),
		MarkerCountFound:    len(ev),
	}
}

// buildRationale names the specific evidence that drove the verdict. It is
// mandatory in every verdict: it becomes the user-facing rejection reason.
func buildRationale(total, parsed, unparseable int, keywords, vocab, contra []string) string {
	var parts []string

	if total == 0 {
		parts = append(parts, "found 0 lab markers in the document")
	} else {
		parts = append(parts, fmt.Sprintf("found %d lab markers (%d with numeric values, %d unparseable)", total, parsed, unparseable))
	}

	if len(keywords) > 0 {
		parts = append(parts, fmt.Sprintf("matched %d report boilerplate terms (%s)", len(keywords), strings.Join(keywords, ", ")))
	} else {
		parts = append(parts, "no laboratory report boilerplate found")
	}

	if len(vocab) > 0 {
		parts = append(parts, fmt.Sprintf("matched %d blood panel terms (%s)", len(vocab), strings.Join(vocab, ", ")))
	}

	if len(contra) > 0 {
		parts = append(parts, fmt.Sprintf("document identifies itself as an unrelated record type (%s)", strings.Join(contra, ", ")))
	}

	return strings.Join(parts, "; ")
}

func capInt(n, max int) int {
	if n > max {
		return max
	}
	return n
}
