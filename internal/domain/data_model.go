package domain

import "strings"

const (
	DefaultQualityScore = 70
	MinScore            = 0
	MaxScore            = 100
)

type VariantKey string

const (
	VariantGeneric VariantKey = "generic"
	VariantChatGPT VariantKey = "chatgpt"
	VariantClaude  VariantKey = "claude"
	VariantGemini  VariantKey = "gemini"
	VariantKimi    VariantKey = "kimi"
)

// VariantKeys lists the supported variant keys in display order.
var VariantKeys = []VariantKey{VariantGeneric, VariantChatGPT, VariantClaude, VariantGemini, VariantKimi}

// ParseVariantKey matches s against the supported keys ignoring case and
// surrounding whitespace, so "ChatGPT" and "chatgpt" resolve to the same key.
func ParseVariantKey(s string) (VariantKey, bool) {
	folded := strings.ToLower(strings.TrimSpace(s))
	for _, k := range VariantKeys {
		if string(k) == folded {
			return k, true
		}
	}

	return "", false
}

// VariantSet maps each target model to its optimized prompt. Generic is mandatory.
type VariantSet map[VariantKey]string

func (v VariantSet) Generic() string {
	return v[VariantGeneric]
}

// Get returns the variant for key, falling back to the generic variant.
func (v VariantSet) Get(key VariantKey) string {
	if text := v[key]; text != "" {
		return text
	}

	return v.Generic()
}

// Available returns the keys that carry text, in display order.
func (v VariantSet) Available() []VariantKey {
	keys := make([]VariantKey, 0, len(v))
	for _, k := range VariantKeys {
		if v[k] != "" {
			keys = append(keys, k)
		}
	}

	return keys
}

func (v VariantSet) Clone() VariantSet {
	if v == nil {
		return nil
	}

	out := make(VariantSet, len(v))
	for k, text := range v {
		out[k] = text
	}

	return out
}

type Diagnosis struct {
	MissingInfo         []string `json:"missingInfo"`
	ClarifyingQuestions []string `json:"clarifyingQuestions"`
	PrivacyWarnings     []string `json:"privacyWarnings"`
	QualityScore        *float64 `json:"qualityScore,omitempty"`
	Assumptions         []string `json:"assumptions"`
}

type Analysis struct {
	QualityScore     float64  `json:"qualityScore"`
	Intent           string   `json:"intent"`
	Language         string   `json:"language"`
	Assumptions      []string `json:"assumptions"`
	ClarityScore     *float64 `json:"clarityScore,omitempty"`
	SpecificityScore *float64 `json:"specificityScore,omitempty"`
	Improvements     []string `json:"improvements,omitempty"`
}

// OptimizationResult is the canonical record produced from one completion:
// validated, alias-resolved and cross-field consistent.
type OptimizationResult struct {
	Diagnosis      *Diagnosis `json:"diagnosis,omitempty"`
	Analysis       Analysis   `json:"analysis"`
	Variants       VariantSet `json:"variants"`
	Language       string     `json:"language,omitempty"`
	OriginalPrompt string     `json:"originalPrompt,omitempty"`
	Timestamp      string     `json:"timestamp,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

// DiagnosisQuality is the score shown next to the diagnosis. It falls back to
// the analysis score when the diagnosis carries none.
func (r OptimizationResult) DiagnosisQuality() float64 {
	if r.Diagnosis != nil && r.Diagnosis.QualityScore != nil {
		return *r.Diagnosis.QualityScore
	}

	return r.Analysis.QualityScore
}

type DiffKind string

const (
	DiffAdded     DiffKind = "added"
	DiffRemoved   DiffKind = "removed"
	DiffUnchanged DiffKind = "unchanged"
)

type DiffLine struct {
	Content    string   `json:"content"`
	Kind       DiffKind `json:"kind"`
	LineNumber int      `json:"lineNumber"`
}

type DiffCounts struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

type DiffReport struct {
	Lines  []DiffLine `json:"lines"`
	Counts DiffCounts `json:"counts"`
}
