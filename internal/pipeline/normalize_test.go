package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/promptstudio/internal/domain"
)

func score(v float64) *float64 {
	return &v
}

func canonicalResult() domain.OptimizationResult {
	return domain.OptimizationResult{
		Diagnosis: &domain.Diagnosis{
			MissingInfo:         []string{"target audience"},
			ClarifyingQuestions: []string{"Who is the reader?", "What length?"},
			PrivacyWarnings:     []string{},
			QualityScore:        score(55),
			Assumptions:         []string{"English output"},
		},
		Analysis: domain.Analysis{
			QualityScore:     78,
			Intent:           "write a product description",
			Language:         "en",
			Assumptions:      []string{},
			ClarityScore:     score(75),
			SpecificityScore: score(70),
			Improvements:     []string{"named the audience"},
		},
		Variants: domain.VariantSet{
			domain.VariantGeneric: "Write a 100-word product description for parents.",
			domain.VariantClaude:  "<task>Write a 100-word product description.</task>",
		},
		Language:       "en",
		OriginalPrompt: "write product description",
		Timestamp:      "2024-05-01T10:00:00Z",
		Warnings:       []string{"check tone"},
	}
}

func TestNormalizeIsIdempotentOnCanonicalRecords(t *testing.T) {
	minimal := domain.OptimizationResult{
		Analysis: domain.Analysis{QualityScore: 70, Intent: "x", Language: "en", Assumptions: []string{}},
		Variants: domain.VariantSet{domain.VariantGeneric: "g"},
	}

	for name, want := range map[string]domain.OptimizationResult{
		"full":    canonicalResult(),
		"minimal": minimal,
	} {
		t.Run(name, func(t *testing.T) {
			got := Normalize(FromResult(want))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("normalize changed a canonical record (-want +got):\n%s", diff)
			}

			again := Normalize(FromResult(got))
			if diff := cmp.Diff(got, again); diff != "" {
				t.Fatalf("second normalization differs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestNormalizeRoundTripThroughJSON(t *testing.T) {
	want := canonicalResult()
	content, err := json.Marshal(want)
	require.NoError(t, err)

	rec, err := Validate(string(content))
	require.NoError(t, err)

	if diff := cmp.Diff(want, Normalize(rec)); diff != "" {
		t.Fatalf("validate+normalize of a serialized canonical record (-want +got):\n%s", diff)
	}
}

func TestNormalizeQualityScoreAlias(t *testing.T) {
	rec := Record{Analysis: RecordAnalysis{QualityScoreSnake: score(85), Intent: "x", Language: "en"}}

	got := Normalize(rec)

	assert.Equal(t, 85.0, got.Analysis.QualityScore)
}

func TestNormalizeQualityScorePriority(t *testing.T) {
	rec := Record{Analysis: RecordAnalysis{QualityScore: score(40), QualityScoreSnake: score(85)}}
	assert.Equal(t, 40.0, Normalize(rec).Analysis.QualityScore)

	assert.Equal(t, float64(domain.DefaultQualityScore), Normalize(Record{}).Analysis.QualityScore)
}

func TestNormalizeLegacyPrivacyWarning(t *testing.T) {
	rec := Record{Diagnosis: &RecordDiagnosis{PrivacyWarning: []string{"SSN detected"}}}

	got := Normalize(rec)

	require.NotNil(t, got.Diagnosis)
	assert.Equal(t, []string{"SSN detected"}, got.Diagnosis.PrivacyWarnings)
}

func TestNormalizePrivacyWarningSourceOrder(t *testing.T) {
	rec := Record{
		Diagnosis: &RecordDiagnosis{
			PrivacyWarnings: []string{},
			PrivacyWarning:  []string{"singular"},
			Warnings:        []string{"generic"},
		},
		Analysis: RecordAnalysis{PrivacyWarnings: []string{"analysis"}},
	}

	assert.Equal(t, []string{"singular"}, Normalize(rec).Diagnosis.PrivacyWarnings)

	rec.Diagnosis.PrivacyWarning = nil
	assert.Equal(t, []string{"generic"}, Normalize(rec).Diagnosis.PrivacyWarnings)

	rec.Diagnosis.Warnings = nil
	assert.Equal(t, []string{"analysis"}, Normalize(rec).Diagnosis.PrivacyWarnings)
}

func TestNormalizeAnalysisAliasesCreateDiagnosis(t *testing.T) {
	rec := Record{Analysis: RecordAnalysis{
		MissingInfo:         []string{"tone"},
		ClarifyingQuestions: []string{"a?", "b?"},
	}}

	got := Normalize(rec)

	require.NotNil(t, got.Diagnosis)
	assert.Equal(t, []string{"tone"}, got.Diagnosis.MissingInfo)
	assert.Equal(t, []string{"a?", "b?"}, got.Diagnosis.ClarifyingQuestions)
	assert.Equal(t, []string{}, got.Diagnosis.PrivacyWarnings)
	assert.Nil(t, got.Diagnosis.QualityScore)
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	rec := FromResult(canonicalResult())
	rec.Analysis.Improvements = []string{strings.Repeat("x", 20)}

	n := Normalizer{Limits: Limits{MaxPromptLength: 100, MaxFieldLength: 5}}
	got := n.Normalize(rec)

	assert.Equal(t, strings.Repeat("x", 20), rec.Analysis.Improvements[0])
	assert.Equal(t, "xxxxx", got.Analysis.Improvements[0])
}

func TestNormalizeTruncationAddsWarnings(t *testing.T) {
	rec := Record{
		Analysis: RecordAnalysis{Intent: "abcdefgh", Language: "en"},
		Variants: domain.VariantSet{domain.VariantGeneric: strings.Repeat("g", 12)},
		Warnings: []string{"ok"},
		Advisories: []string{
			"timestamp: timestamp is not an RFC 3339 date",
			"ok",
		},
	}

	got := Normalizer{Limits: Limits{MaxPromptLength: 10, MaxFieldLength: 4}}.Normalize(rec)

	assert.Equal(t, "abcd", got.Analysis.Intent)
	assert.Equal(t, strings.Repeat("g", 10), got.Variants.Generic())
	assert.Equal(t, []string{
		"ok",
		"timestamp: timestamp is not an RFC 3339 date",
		"analysis.intent truncated to 4 characters",
		"variants.generic truncated to 10 characters",
	}, got.Warnings)
}

func TestNormalizeKeepsForeignVariantKeys(t *testing.T) {
	rec := Record{Variants: domain.VariantSet{domain.VariantGeneric: "g", "Claude": "c"}}

	got := Normalize(rec)

	assert.Equal(t, "c", got.Variants["Claude"])
}
