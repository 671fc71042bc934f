package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ciangeneway-dot/Khumalo/internal/types"
)

const minContentRunes = 50

// medicalKeywords is matched case-insensitively against extracted text.
// Matches are whole words only, so "available" does not count as "lab".
var medicalKeywords = []string{
	"patient", "diagnosis", "treatment", "medication", "symptom",
	"blood pressure", "heart rate", "temperature",
	"lab", "test", "result", "prescription",
}

var keywordPatterns = compileKeywordPatterns(medicalKeywords)

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return patterns
}

var (
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// CheckMedicalRelevance inspects extracted text and reports advisory
// findings. It never blocks an upload: warnings and suggestions travel
// alongside the document, and IsValid just means "no warnings". The same
// input always yields the same report.
func CheckMedicalRelevance(text string) types.RelevanceReport {
	report := types.RelevanceReport{IsValid: true}

	if utf8.RuneCountInString(text) < minContentRunes {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("document contains very little text (fewer than %d characters)", minContentRunes))
	}

	lower := strings.ToLower(text)
	distinct := 0
	for _, p := range keywordPatterns {
		if p.MatchString(lower) {
			distinct++
		}
	}
	if distinct < 3 {
		report.Warnings = append(report.Warnings,
			"document does not appear to contain medical content")
		report.Suggestions = append(report.Suggestions,
			"verify this document belongs in a patient's medical record")
	}

	if ssnPattern.MatchString(text) {
		report.Warnings = append(report.Warnings,
			"document may contain a social security number")
	}
	if phonePattern.MatchString(text) {
		report.Warnings = append(report.Warnings,
			"document may contain a phone number")
	}
	if emailPattern.MatchString(text) {
		report.Warnings = append(report.Warnings,
			"document may contain an email address")
	}

	report.IsValid = len(report.Warnings) == 0
	return report
}
