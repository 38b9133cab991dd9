package evidence

import (
	"fmt"
	"strings"
)

// Flag classifies a marker value against its reference range.
type Flag string

const (
	FlagNormal      Flag = "normal"
	FlagLow         Flag = "low"
	FlagHigh        Flag = "high"
	FlagUnparseable Flag = "unparseable"
)

// Marker is a single named lab value extracted from a report. Value is set
// only when RawValue parsed as numeric; RefLow/RefHigh only when the report
// itself carried a reference range.
type Marker struct {
	Name     string   `json:"name"`
	RawValue string   `json:"raw_value"`
	Value    *float64 `json:"value,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	RefLow   *float64 `json:"ref_low,omitempty"`
	RefHigh  *float64 `json:"ref_high,omitempty"`
	Flag     Flag     `json:"flag"`
}

// Parsed reports whether the marker carries a usable numeric value.
func (m Marker) Parsed() bool {
	return m.Value != nil
}

func (m Marker) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString(": ")
	b.WriteString(m.RawValue)
	if m.Unit != "" {
		b.WriteString(" ")
		b.WriteString(m.Unit)
	}
	if m.RefLow != nil && m.RefHigh != nil {
		fmt.Fprintf(&b, " (ref %g-%g)", *m.RefLow, *m.RefHigh)
	}
	if m.Flag != FlagNormal {
		fmt.Fprintf(&b, " [%s]", m.Flag)
	}
	return b.String()
}

// Evidence is the full set of markers extracted from one document.
type Evidence []Marker

// Parsed returns the markers with a usable numeric value.
func (e Evidence) Parsed() Evidence {
	out := make(Evidence, 0, len(e))
	for _, m := range e {
		if m.Parsed() {
			out = append(out, m)
		}
	}
	return out
}

// Flagged returns the markers outside their reference range.
func (e Evidence) Flagged() Evidence {
	out := make(Evidence, 0)
	for _, m := range e {
		if m.Flag == FlagLow || m.Flag == FlagHigh {
			out = append(out, m)
		}
	}
	return out
}

// UnparseableCount returns how many marker-shaped entries could not be parsed.
func (e Evidence) UnparseableCount() int {
	n := 0
	for _, m := range e {
		if m.Flag == FlagUnparseable {
			n++
		}
	}
	return n
}

// Names returns the marker names in extraction order.
func (e Evidence) Names() []string {
	names := make([]string, len(e))
	for i, m := range e {
		names[i] = m.Name
	}
	return names
}

// Summary renders a short human-readable account of the evidence, suitable
// for logs and the final outcome.
func (e Evidence) Summary() string {
	if len(e) == 0 {
		return "no markers found"
	}
	parsed := e.Parsed()
	flagged := e.Flagged()

	var b strings.Builder
	fmt.Fprintf(&b, "%d markers (%d parsed, %d unparseable)", len(e), len(parsed), e.UnparseableCount())
	if len(flagged) > 0 {
		parts := make([]string, len(flagged))
		for i, m := range flagged {
			parts[i] = fmt.Sprintf("%s (%s)", m.Name, m.Flag)
		}
		b.WriteString("; flagged: ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}
