package textutil

import (
	"math"
	"testing"
)

func TestSimilarityRatioIdentical(t *testing.T) {
	got := SimilarityRatio("Finalize the Q3 budget", "finalize the q3 budget")
	if got != 1.0 {
		t.Errorf("SimilarityRatio(identical ignoring case) = %v, want 1.0", got)
	}
}

func TestSimilarityRatioEmpty(t *testing.T) {
	if got := SimilarityRatio("", ""); got != 1.0 {
		t.Errorf("SimilarityRatio(empty, empty) = %v, want 1.0", got)
	}
	if got := SimilarityRatio("", "send the report"); got != 0 {
		t.Errorf("SimilarityRatio(empty, text) = %v, want 0", got)
	}
}

func TestSimilarityRatioKnownValue(t *testing.T) {
	// "abcd" vs "bcde": blocks "bcd" match, 2*3/(4+4) = 0.75.
	got := SimilarityRatio("abcd", "bcde")
	if math.Abs(got-0.75) > 0.0001 {
		t.Errorf("SimilarityRatio(abcd, bcde) = %v, want 0.75", got)
	}
}

func TestSimilarityRatioNearDuplicates(t *testing.T) {
	a := "Send the updated deck to the client"
	b := "Send updated deck to the client"

	got := SimilarityRatio(a, b)
	if got <= 0.8 {
		t.Errorf("SimilarityRatio(near duplicates) = %v, want > 0.8", got)
	}
}

func TestSimilarityRatioDistinctItems(t *testing.T) {
	a := "Book the conference room for Friday"
	b := "Review the security audit findings"

	got := SimilarityRatio(a, b)
	if got > 0.8 {
		t.Errorf("SimilarityRatio(distinct) = %v, want <= 0.8", got)
	}
}

func TestSimilarityRatioSymmetric(t *testing.T) {
	a := "Schedule a follow-up with the design team"
	b := "Schedule follow-up meeting with design"

	ab := SimilarityRatio(a, b)
	ba := SimilarityRatio(b, a)
	if math.Abs(ab-ba) > 0.0001 {
		t.Errorf("SimilarityRatio not symmetric: (%v, %v)", ab, ba)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"slashes", "team/sync: weekly", "team-sync- weekly"},
		{"removed chars", `plan?"<>|`, "plan"},
		{"trimmed", "  standup.mp4  ", "standup.mp4"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("All Hands (Q3)"); got != "all_hands__q3" {
		t.Errorf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("   "); got != "unknown" {
		t.Errorf("SanitizeToken(blank) = %q, want unknown", got)
	}
}
