package hemolens

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/axoncare-ai/hemolens/evidence"
)

func TestCheckAdvisoryContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []PolicyViolation
	}{
		{
			name: "consultation notice present",
			text: "Consider more dietary fiber. Please consult a qualified healthcare professional about these results.",
			want: nil,
		},
		{
			name: "alternate consultation phrasing",
			text: "Regular exercise may help. Speak with your doctor before making changes.",
			want: nil,
		},
		{
			name: "missing consultation notice",
			text: "Consider more dietary fiber and regular exercise.",
			want: []PolicyViolation{ViolationMissingDisclaimer},
		},
		{
			name: "consult verb without a professional target",
			text: "Consult the internet for more details.",
			want: []PolicyViolation{ViolationMissingDisclaimer},
		},
		{
			name: "prescriptive dosage",
			text: "Take niacin, recommended dosage 500 mg daily. Consult your physician.",
			want: []PolicyViolation{ViolationProhibitedContent},
		},
		{
			name: "diagnosis claim",
			text: "You have been diagnosed with hyperlipidemia. Consult your doctor.",
			want: []PolicyViolation{ViolationProhibitedContent},
		},
		{
			name: "both violations",
			text: "I prescribe a statin, dosage: 10 mg daily.",
			want: []PolicyViolation{ViolationMissingDisclaimer, ViolationProhibitedContent},
		},
		{
			name: "empty text",
			text: "",
			want: []PolicyViolation{ViolationMissingDisclaimer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkAdvisoryContent(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackAdvisoryAlwaysPassesGuard(t *testing.T) {
	for _, flagged := range []struct {
		name string
		text string
	}{
		{"with flagged markers", "Cholesterol, Total: 250 mg/dL (range 125-200)"},
		{"no flagged markers", "Glucose: 95 mg/dL (70-99)"},
	} {
		t.Run(flagged.name, func(t *testing.T) {
			advisory := fallbackAdvisory(evidence.Extract(flagged.text).Flagged())
			assert.Empty(t, checkAdvisoryContent(advisory.Guidance))
			assert.True(t, advisory.Substituted)
		})
	}
}
