package evidence

import (
	"strings"
	"unicode"
)

// MedicalKeywords are boilerplate tokens that appear in laboratory report
// headers and footers. Used by verification scoring, not by extraction.
var MedicalKeywords = []string{
	"laboratory", "lab", "blood", "test", "result", "reference", "range",
	"normal", "abnormal", "high", "low", "patient", "specimen", "collected",
}

// BloodMarkerVocab is the vocabulary of common blood panel marker tokens,
// covering the CBC, lipid, metabolic, liver, thyroid and inflammation panels.
var BloodMarkerVocab = []string{
	"hemoglobin", "hgb", "hematocrit", "hct", "glucose", "cholesterol",
	"triglycerides", "hdl", "ldl", "wbc", "rbc", "platelet", "mcv", "mch",
	"mchc", "creatinine", "urea", "bilirubin", "albumin", "tsh", "ferritin",
	"sodium", "potassium", "vitamin", "alt", "ast", "alp", "ggt", "crp",
	"esr", "a1c", "hba1c", "insulin", "calcium", "magnesium", "phosphorus",
	"chloride", "bicarbonate", "cortisol", "iron", "folate", "uric acid",
}

// ContradictorySignals identify documents that declare themselves to be an
// unrelated record type.
var ContradictorySignals = []string{
	"invoice", "purchase order", "curriculum vitae", "resume",
	"bank statement", "tax return", "boarding pass", "meeting minutes",
}

// CountHits returns how many distinct vocabulary tokens occur in text, plus
// the tokens that matched. Matching is case-insensitive. Multi-word tokens
// match as substrings; short tokens (abbreviations like "alt" or "crp") must
// match a whole word so prose like "fasting" or "alternatively" cannot
// trigger them; longer tokens match as word prefixes so plurals still count.
func CountHits(text string, vocab []string) (int, []string) {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var matched []string
	for _, token := range vocab {
		if matchesToken(token, lower, words) {
			matched = append(matched, token)
		}
	}
	return len(matched), matched
}

// abbreviationLen bounds the token lengths that require a whole-word match.
const abbreviationLen = 4

func matchesToken(token, lower string, words []string) bool {
	if strings.Contains(token, " ") {
		return strings.Contains(lower, token)
	}
	for _, word := range words {
		if len(token) <= abbreviationLen {
			if word == token {
				return true
			}
		} else if strings.HasPrefix(word, token) {
			return true
		}
	}
	return false
}

// markerAliases maps common report abbreviations to canonical marker names.
var markerAliases = map[string]string{
	"hgb":   "Hemoglobin",
	"hb":    "Hemoglobin",
	"hct":   "Hematocrit",
	"wbc":   "White Blood Cell Count",
	"rbc":   "Red Blood Cell Count",
	"plt":   "Platelet Count",
	"hdl":   "HDL Cholesterol",
	"ldl":   "LDL Cholesterol",
	"mcv":   "MCV",
	"mch":   "MCH",
	"mchc":  "MCHC",
	"tsh":   "TSH",
	"trig":  "Triglycerides",
	"alt":   "ALT",
	"ast":   "AST",
	"alp":   "ALP",
	"ggt":   "GGT",
	"crp":   "CRP",
	"esr":   "ESR",
	"a1c":   "HbA1c",
	"hba1c": "HbA1c",
}

// CanonicalName resolves report abbreviations to their full marker name and
// tidies spacing. Unknown names pass through unchanged.
func CanonicalName(name string) string {
	cleaned := strings.Join(strings.Fields(name), " ")
	cleaned = strings.Trim(cleaned, " .,:;-")
	if full, ok := markerAliases[strings.ToLower(cleaned)]; ok {
		return full
	}
	return cleaned
}

// unitForms maps lowercased unit spellings to their canonical form.
var unitForms = map[string]string{
	"mg/dl":       "mg/dL",
	"g/dl":        "g/dL",
	"g/l":         "g/L",
	"mmol/l":      "mmol/L",
	"umol/l":      "µmol/L",
	"µmol/l":      "µmol/L",
	"meq/l":       "mEq/L",
	"iu/l":        "IU/L",
	"u/l":         "U/L",
	"ng/ml":       "ng/mL",
	"pg/ml":       "pg/mL",
	"miu/l":       "mIU/L",
	"uiu/ml":      "µIU/mL",
	"µiu/ml":      "µIU/mL",
	"k/ul":        "K/µL",
	"k/µl":        "K/µL",
	"m/ul":        "M/µL",
	"m/µl":        "M/µL",
	"cells/ul":    "cells/µL",
	"cells/mcl":   "cells/µL",
	"thousand/ul": "K/µL",
	"fl":          "fL",
	"pg":          "pg",
	"%":           "%",
}

// CanonicalUnit normalizes obviously equivalent unit spellings. Unknown
// units pass through unchanged rather than being invented.
func CanonicalUnit(unit string) string {
	if unit == "" {
		return ""
	}
	if canonical, ok := unitForms[strings.ToLower(unit)]; ok {
		return canonical
	}
	return unit
}
