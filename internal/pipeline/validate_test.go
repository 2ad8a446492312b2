package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/promptstudio/internal/domain"
)

func paths(t *testing.T, err error) []string {
	t.Helper()

	perr, ok := AsError(err)
	require.True(t, ok, "expected *pipeline.Error, got %v", err)

	out := make([]string, 0, len(perr.Errors))
	for _, e := range perr.Errors {
		out = append(out, e.Path.String())
	}
	return out
}

func TestValidateAcceptsCanonicalShape(t *testing.T) {
	rec, err := Validate(`{
		"diagnosis": {
			"missingInfo": ["audience"],
			"clarifyingQuestions": ["Who reads it?", "How long?"],
			"privacyWarnings": [],
			"qualityScore": 60,
			"assumptions": ["English"]
		},
		"analysis": {
			"qualityScore": 72,
			"intent": "summarize",
			"language": "en",
			"assumptions": [],
			"clarityScore": 70,
			"specificityScore": 80
		},
		"variants": {"generic": "Summarize.", "claude": "Summarize for Claude."},
		"language": "en",
		"timestamp": "2024-05-01T10:00:00Z"
	}`)

	require.NoError(t, err)
	assert.Equal(t, 72.0, *rec.Analysis.QualityScore)
	assert.Equal(t, []string{"audience"}, rec.Diagnosis.MissingInfo)
	assert.Equal(t, "Summarize for Claude.", rec.Variants[domain.VariantClaude])
	assert.Empty(t, rec.Advisories)
}

func TestValidateParseError(t *testing.T) {
	_, err := Validate(`{"analysis": `)

	perr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, perr.Kind)
	require.Len(t, perr.Errors, 1)
	assert.Equal(t, "root", perr.Errors[0].Path.String())
}

func TestValidateRootMustBeObject(t *testing.T) {
	_, err := Validate(`[1, 2]`)

	assert.Equal(t, []string{"root"}, paths(t, err))
}

func TestValidateMissingGenericVariant(t *testing.T) {
	_, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"chatgpt": "a", "claude": "b"}
	}`)

	perr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindStructural, perr.Kind)
	assert.Equal(t, []string{"variants.generic"}, paths(t, err))
}

func TestValidateGenericVariantReportedOnce(t *testing.T) {
	tests := []struct {
		name     string
		variants string
		want     []string
	}{
		{name: "not a string", variants: `{"generic": 5}`, want: []string{"variants.generic"}},
		{name: "empty", variants: `{"generic": " "}`, want: []string{"variants.generic"}},
		{name: "null", variants: `{"generic": null, "claude": "c"}`, want: []string{"variants.generic"}},
		{name: "list without content", variants: `[{"type": "Generic", "content": 5}]`, want: []string{"variants[0].content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(`{"analysis": {"intent": "x", "language": "en"}, "variants": ` + tt.variants + `}`)

			assert.Equal(t, tt.want, paths(t, err))
		})
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	_, err := Validate(`{
		"analysis": {"qualityScore": 140, "intent": "", "language": 3, "assumptions": ["ok", 4]},
		"variants": {"generic": "g", "kimi": ""},
		"language": "fr"
	}`)

	assert.ElementsMatch(t, []string{
		"analysis.qualityScore",
		"analysis.intent",
		"analysis.language",
		"analysis.assumptions[1]",
		"variants.kimi",
		"language",
	}, paths(t, err))

	perr, _ := AsError(err)
	assert.Contains(t, perr.Summary(), "(and 5 more fields failed)")
}

func TestValidateRequiresAnalysisAndVariants(t *testing.T) {
	_, err := Validate(`{}`)

	assert.Equal(t, []string{"analysis", "variants"}, paths(t, err))
}

func TestValidateNullIsAbsent(t *testing.T) {
	rec, err := Validate(`{
		"diagnosis": null,
		"analysis": {"intent": "x", "language": "en", "clarityScore": null},
		"variants": {"generic": "g"}
	}`)

	require.NoError(t, err)
	assert.Nil(t, rec.Diagnosis)
	assert.Nil(t, rec.Analysis.ClarityScore)
}

func TestValidateAcceptsSnakeCaseAliases(t *testing.T) {
	rec, err := Validate(`{
		"diagnosis": {"missing_info": ["tone"], "clarifying_questions": ["a?", "b?"], "quality_score": 50},
		"analysis": {"quality_score": 85, "intent": "x", "language": "en", "privacy_warnings": ["email"]},
		"variants": {"generic": "g"}
	}`)

	require.NoError(t, err)
	assert.Equal(t, 85.0, *rec.Analysis.QualityScoreSnake)
	assert.Nil(t, rec.Analysis.QualityScore)
	assert.Equal(t, []string{"tone"}, rec.Diagnosis.MissingInfoSnake)
	assert.Equal(t, 50.0, *rec.Diagnosis.QualityScoreSnake)
	assert.Equal(t, []string{"email"}, rec.Analysis.PrivacyWarnings)
}

func TestValidatePrivacyWarningShapes(t *testing.T) {
	cases := map[string]struct {
		diagnosis string
		want      []string
	}{
		"string":       {`{"privacyWarning": "SSN detected"}`, []string{"SSN detected"}},
		"list":         {`{"privacyWarning": ["a", "b"]}`, []string{"a", "b"}},
		"not detected": {`{"privacyWarning": {"detected": false}}`, nil},
		"detected":     {`{"privacyWarning": {"detected": true, "concern": "SSN", "suggestion": "remove it"}}`, []string{"SSN: remove it"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, err := Validate(`{"diagnosis": ` + tc.diagnosis + `, "analysis": {"intent": "x", "language": "en"}, "variants": {"generic": "g"}}`)

			require.NoError(t, err)
			assert.Equal(t, tc.want, rec.Diagnosis.PrivacyWarning)
		})
	}
}

func TestValidateDetectedPrivacyWarningNeedsDetails(t *testing.T) {
	_, err := Validate(`{
		"diagnosis": {"privacyWarning": {"detected": true, "concern": "SSN"}},
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"generic": "g"}
	}`)

	assert.Equal(t, []string{"diagnosis.privacyWarning.detected"}, paths(t, err))
}

func TestValidateVariantKeysFoldCase(t *testing.T) {
	rec, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"Generic": "g", "ChatGPT": "c", "llama": "l"}
	}`)

	require.NoError(t, err)
	assert.Equal(t, domain.VariantSet{domain.VariantGeneric: "g", domain.VariantChatGPT: "c"}, rec.Variants)
	assert.Equal(t, []string{"variants.llama: unknown variant ignored"}, rec.Advisories)
}

func TestValidateVariantKeysCollide(t *testing.T) {
	_, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"claude": "a", "Claude": "b", "generic": "g"}
	}`)

	assert.Equal(t, []string{"variants.claude"}, paths(t, err))
}

func TestValidateVariantArray(t *testing.T) {
	rec, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": [
			{"type": "Generic", "content": "g", "modelSpecificTips": ["be brief"]},
			{"type": "Gemini", "content": "m"}
		]
	}`)

	require.NoError(t, err)
	assert.Equal(t, domain.VariantSet{domain.VariantGeneric: "g", domain.VariantGemini: "m"}, rec.Variants)
}

func TestValidateVariantArrayRejectsDuplicatesAndUnknown(t *testing.T) {
	_, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": [
			{"type": "Generic", "content": "g"},
			{"type": "generic", "content": "h"},
			{"type": "Llama", "content": "l"},
			{"content": "c"}
		]
	}`)

	assert.Equal(t, []string{"variants[1].type", "variants[2].type", "variants[3].type"}, paths(t, err))
}

func TestValidateClarifyingQuestionCountIsAdvisory(t *testing.T) {
	rec, err := Validate(`{
		"diagnosis": {"clarifyingQuestions": ["only one?"]},
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"generic": "g"}
	}`)

	require.NoError(t, err)
	assert.Equal(t, []string{"diagnosis.clarifyingQuestions: expected 2-5 clarifying questions, got 1"}, rec.Advisories)
}

func TestValidateTimestampIsAdvisory(t *testing.T) {
	rec, err := Validate(`{
		"analysis": {"intent": "x", "language": "en"},
		"variants": {"generic": "g"},
		"timestamp": "yesterday"
	}`)

	require.NoError(t, err)
	assert.Equal(t, "yesterday", rec.Timestamp)
	assert.Len(t, rec.Advisories, 1)
}

func TestValidateWarningsStringOrList(t *testing.T) {
	rec, err := Validate(`{"analysis": {"intent": "x", "language": "en"}, "variants": {"generic": "g"}, "warning": "check tone"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"check tone"}, rec.Warnings)

	rec, err = Validate(`{"analysis": {"intent": "x", "language": "en"}, "variants": {"generic": "g"}, "warnings": ["a", "b"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec.Warnings)
}

func TestValidateErrorIsNotSentinel(t *testing.T) {
	_, err := Validate(`{}`)

	assert.False(t, errors.Is(err, ErrDangerousContent))
}
