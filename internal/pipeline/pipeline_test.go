package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/logger"
)

func TestProcessFencedCompletion(t *testing.T) {
	raw := "```json\n" + `{
  "diagnosis": {"privacyWarning": "SSN detected", "clarifying_questions": ["Which format?", "Who reads it?"]},
  "analysis": {"quality_score": 85, "intent": "draft an email", "language": "en", "clarityScore": 80, "specificityScore": 90},
  "variants": {"generic": "Draft a polite email.", "ChatGPT": "You are an assistant. Draft a polite email."}
}` + "\n```"

	result, err := New(DefaultLimits(), nil).Process(raw)

	require.NoError(t, err)
	assert.Equal(t, 85.0, result.Analysis.QualityScore)
	assert.Equal(t, []string{"SSN detected"}, result.Diagnosis.PrivacyWarnings)
	assert.Equal(t, []string{"Which format?", "Who reads it?"}, result.Diagnosis.ClarifyingQuestions)
	assert.Equal(t, "You are an assistant. Draft a polite email.", result.Variants.Get(domain.VariantChatGPT))
	assert.Equal(t, "Draft a polite email.", result.Variants.Get(domain.VariantKimi))
	assert.Equal(t, 85.0, result.DiagnosisQuality())
}

func TestProcessStageFailures(t *testing.T) {
	cases := map[string]struct {
		raw  string
		kind Kind
	}{
		"empty":       {"  ", KindRejection},
		"dangerous":   {`{"__proto__": {}}`, KindRejection},
		"parse":       {`{"analysis": {`, KindParse},
		"structural":  {`{"analysis": {"intent": "x", "language": "en"}, "variants": {"chatgpt": "a", "claude": "b"}}`, KindStructural},
		"consistency": {`{"analysis": {"qualityScore": 20, "clarityScore": 95, "specificityScore": 90, "intent": "x", "language": "en"}, "variants": {"generic": "g"}}`, KindConsistency},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			p := New(DefaultLimits(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

			result, err := p.Process(tc.raw)

			assert.Equal(t, domain.OptimizationResult{}, result)
			perr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, perr.Kind)
			assert.NotEmpty(t, perr.Errors)
			assert.GreaterOrEqual(t, logs.FilterMessage("completion rejected").Len(), 1)
		})
	}
}

func TestProcessOutputIsStable(t *testing.T) {
	p := New(DefaultLimits(), nil)

	first, err := p.Process(`{"diagnosis": {"missing_info": ["tone"]}, "analysis": {"intent": "x", "language": "en"}, "variants": {"generic": "g"}, "timestamp": "soon"}`)
	require.NoError(t, err)

	content, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := p.Process(string(content))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reprocessing a canonical result changed it (-first +second):\n%s", diff)
	}
}

func TestAccept(t *testing.T) {
	p := New(DefaultLimits(), nil)

	got, err := p.Accept(canonicalResult())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(canonicalResult(), got))

	broken := canonicalResult()
	broken.Variants = domain.VariantSet{domain.VariantClaude: "c"}
	_, err = p.Accept(broken)
	assert.Error(t, err)
}
