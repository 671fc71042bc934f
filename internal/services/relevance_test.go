package services

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRelevanceLengthBoundary(t *testing.T) {
	// Three distinct keywords, no PII, so length is the only variable.
	base := "patient diagnosis treatment "
	text49 := base + strings.Repeat("a", 49-utf8.RuneCountInString(base))
	text50 := base + strings.Repeat("a", 50-utf8.RuneCountInString(base))
	if utf8.RuneCountInString(text49) != 49 || utf8.RuneCountInString(text50) != 50 {
		t.Fatalf("test fixture lengths wrong: %d, %d",
			utf8.RuneCountInString(text49), utf8.RuneCountInString(text50))
	}

	short := CheckMedicalRelevance(text49)
	if short.IsValid || len(short.Warnings) != 1 {
		t.Fatalf("49 runes should warn exactly once, got %+v", short)
	}

	exact := CheckMedicalRelevance(text50)
	if !exact.IsValid || len(exact.Warnings) != 0 {
		t.Fatalf("50 runes should not warn, got %+v", exact)
	}
}

func TestRelevanceKeywordThreshold(t *testing.T) {
	// Two distinct keywords is not enough, three is.
	two := strings.Repeat("patient test ", 5)
	if r := CheckMedicalRelevance(two); r.IsValid {
		t.Fatalf("two keywords should warn, got %+v", r)
	}

	three := strings.Repeat("patient test result ", 5)
	if r := CheckMedicalRelevance(three); !r.IsValid {
		t.Fatalf("three keywords should pass, got %+v", r)
	}
}

func TestRelevanceKeywordWordBoundaries(t *testing.T) {
	// "available" embeds "lab" and "latest" embeds "test"; only the
	// standalone "medication" may count, leaving the tally below three.
	text := "available latest medication compilations should not inflate the tally here"
	r := CheckMedicalRelevance(text)
	if r.IsValid {
		t.Fatalf("embedded matches must not count as keywords, got %+v", r)
	}
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "medical content") {
		t.Fatalf("want exactly the medical-content warning, got %+v", r.Warnings)
	}
}

func TestRelevanceMultiWordKeyword(t *testing.T) {
	text := "The patient had stable blood pressure and normal heart rate throughout."
	if r := CheckMedicalRelevance(text); !r.IsValid {
		t.Fatalf("multi-word keywords should count, got %+v", r)
	}
}

func TestRelevancePIIPatterns(t *testing.T) {
	base := "patient diagnosis treatment results reviewed and filed today "

	cases := []struct {
		name string
		pii  string
		want string
	}{
		{"ssn", "123-45-6789", "social security"},
		{"phone", "call (555) 123-4567", "phone number"},
		{"email", "reach me at jane@example.com", "email address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := CheckMedicalRelevance(base + tc.pii)
			if r.IsValid {
				t.Fatalf("PII should warn, got %+v", r)
			}
			found := false
			for _, w := range r.Warnings {
				if strings.Contains(w, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("missing %q warning in %v", tc.want, r.Warnings)
			}
		})
	}
}

func TestRelevanceDeterministic(t *testing.T) {
	text := "patient lab test 123-45-6789"
	first := CheckMedicalRelevance(text)
	second := CheckMedicalRelevance(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input must produce same report:\n%+v\n%+v", first, second)
	}
}

func TestRelevanceSuggestionsOnNonMedical(t *testing.T) {
	r := CheckMedicalRelevance(strings.Repeat("quarterly revenue projections for the sales team ", 3))
	if r.IsValid {
		t.Fatal("non-medical text should warn")
	}
	if len(r.Suggestions) == 0 {
		t.Fatal("non-medical text should carry a suggestion")
	}
}
