package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

// markerLine matches "name value [unit] [rest]" shapes, with an optional
// colon after the name. The rest is scanned separately for a reference range.
var markerLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .,()/%'-]{0,48}?)\s*:?\s+(\d+(?:\.\d+)?)\s*([%A-Za-zµ][A-Za-z0-9µ/^.%]*)?\s*(.*)$`)

// refRange matches "(range 125-200)", "ref: 70 - 99", "125–200" and similar.
var refRange = regexp.MustCompile(`(?:(?i:range|ref(?:erence)?)[: ]*)?\(?\s*(\d+(?:\.\d+)?)\s*[-–—]\s*(\d+(?:\.\d+)?)\s*\)?`)

// labeledLine matches "name: anything" for marker-shaped lines whose value
// did not parse as numeric.
var labeledLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .,()/%'-]{0,48}?)\s*:\s*(\S.*)$`)

var pageHeader = regexp.MustCompile(`^-{2,}\s*Page \d+\s*-{2,}$`)

// Extract parses marker-like lines out of report text. It never fails: text
// with no recognizable markers yields empty Evidence, and the judgment of
// whether the document is a report at all belongs to verification.
func Extract(text string) Evidence {
	var ev Evidence

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || pageHeader.MatchString(line) {
			continue
		}

		if m, ok := parseMarkerLine(line); ok {
			ev = append(ev, m)
			continue
		}

		if m, ok := parseUnparseableLine(line); ok {
			ev = append(ev, m)
		}
	}

	return ev
}

func parseMarkerLine(line string) (Marker, bool) {
	groups := markerLine.FindStringSubmatch(line)
	if groups == nil {
		return Marker{}, false
	}

	name := CanonicalName(groups[1])
	rawValue := groups[2]
	unit := groups[3]
	rest := groups[4]

	// Dates and similar hyphenated tokens ("2024-05-12") are not values.
	if strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "/") {
		return Marker{}, false
	}

	// Stray words after the value ("of", "out") are not units.
	if !plausibleUnit(unit) {
		unit = ""
	}
	unit = CanonicalUnit(unit)

	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return Marker{}, false
	}

	var refLow, refHigh *float64
	if rg := refRange.FindStringSubmatch(rest); rg != nil {
		low, errLow := strconv.ParseFloat(rg[1], 64)
		high, errHigh := strconv.ParseFloat(rg[2], 64)
		if errLow == nil && errHigh == nil && low <= high {
			refLow, refHigh = &low, &high
		}
	}

	// A bare "word number" line is too ambiguous to count as a marker;
	// require a unit, a reference range, or a known marker name.
	if unit == "" && refLow == nil {
		if hits, _ := CountHits(name, BloodMarkerVocab); hits == 0 {
			return Marker{}, false
		}
	}

	m := Marker{
		Name:     name,
		RawValue: rawValue,
		Value:    &value,
		Unit:     unit,
		RefLow:   refLow,
		RefHigh:  refHigh,
		Flag:     FlagNormal,
	}
	m.Flag = flagFor(value, refLow, refHigh)
	return m, true
}

// parseUnparseableLine keeps marker-shaped lines whose value is not numeric
// ("Cholesterol: pending"). The evidence that something marker-shaped was
// present feeds verification scoring even though analysis cannot use it.
func parseUnparseableLine(line string) (Marker, bool) {
	groups := labeledLine.FindStringSubmatch(line)
	if groups == nil {
		return Marker{}, false
	}

	name := CanonicalName(groups[1])
	if hits, _ := CountHits(name, BloodMarkerVocab); hits == 0 {
		return Marker{}, false
	}

	return Marker{
		Name:     name,
		RawValue: strings.TrimSpace(groups[2]),
		Flag:     FlagUnparseable,
	}, true
}

// plausibleUnit reports whether a captured token looks like a measurement
// unit rather than an ordinary word that happened to follow the value.
func plausibleUnit(unit string) bool {
	if unit == "" {
		return false
	}
	if _, ok := unitForms[strings.ToLower(unit)]; ok {
		return true
	}
	return strings.ContainsAny(unit, "/%^")
}

func flagFor(value float64, refLow, refHigh *float64) Flag {
	if refLow == nil || refHigh == nil {
		return FlagNormal
	}
	switch {
	case value < *refLow:
		return FlagLow
	case value > *refHigh:
		return FlagHigh
	default:
		return FlagNormal
	}
}
