package hemolens

import (
	"strings"
)

// ConsultationNotice is the mandatory, non-removable direction to seek
// professional care. Fallback advisories embed it verbatim; generated
// advisories must contain equivalent language to be accepted.
const ConsultationNotice = "Please consult a qualified healthcare professional about these results. " +
	"This analysis is general information, not medical advice."

// consultTargets: accepted phrasings of who to consult. The guard requires
// "consult" plus at least one of these.
var consultTargets = []string{
	"healthcare professional",
	"health care professional",
	"healthcare provider",
	"health care provider",
	"medical professional",
	"doctor",
	"physician",
}

// prohibitedPhrases is the structural deny-list for prescriptive content.
// Generation is treated as untrusted; any hit voids the advisory.
var prohibitedPhrases = []string{
	"i diagnose",
	"you are diagnosed",
	"you have been diagnosed",
	"your diagnosis is",
	"i prescribe",
	"prescription:",
	"recommended dosage",
	"dosage:",
	"mg per day",
	"mg daily",
	"take this medication",
	"start taking",
	"stop taking",
	"discontinue your medication",
}

// PolicyViolation names one failed advisory content check.
type PolicyViolation string

const (
	ViolationMissingDisclaimer PolicyViolation = "missing_consultation_notice"
	ViolationProhibitedContent PolicyViolation = "prohibited_prescriptive_content"
)

// checkAdvisoryContent runs the mechanical post-generation guard over a
// synthesized advisory. An empty slice means the text is acceptable.
func checkAdvisoryContent(text string) []PolicyViolation {
	lower := strings.ToLower(text)
	var violations []PolicyViolation

	if !containsConsultationAdvice(lower) {
		violations = append(violations, ViolationMissingDisclaimer)
	}

	for _, phrase := range prohibitedPhrases {
		if strings.Contains(lower, phrase) {
			violations = append(violations, ViolationProhibitedContent)
			break
		}
	}

	return violations
}

func containsConsultationAdvice(lower string) bool {
	if !strings.Contains(lower, "consult") && !strings.Contains(lower, "speak with") && !strings.Contains(lower, "talk to") {
		return false
	}
	for _, target := range consultTargets {
		if strings.Contains(lower, target) {
			return true
		}
	}
	return false
}
