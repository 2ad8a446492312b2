package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixbrock/promptstudio/internal/domain"
)

// Normalizer resolves aliased fields of a Record into the canonical result.
//
// Resolution order for every aliased field: the canonical name when present
// and non-empty, then each alternate name in the order listed below, then the
// default (70 for the quality score, an empty list for list fields).
//
//	analysis.qualityScore        qualityScore, quality_score
//	diagnosis.missingInfo        missingInfo, missing_info, analysis.missing_info
//	diagnosis.clarifyingQuestions clarifyingQuestions, clarifying_questions, analysis.clarifying_questions
//	diagnosis.privacyWarnings    privacyWarnings, privacy_warnings, privacyWarning, warnings, analysis.privacy_warnings
//	diagnosis.qualityScore       qualityScore, quality_score
//
// Normalize never modifies its input and is idempotent on its own output.
type Normalizer struct {
	Limits Limits
}

func Normalize(rec Record) domain.OptimizationResult {
	return Normalizer{Limits: DefaultLimits()}.Normalize(rec)
}

func (n Normalizer) Normalize(rec Record) domain.OptimizationResult {
	var notes []string
	clip := func(path, s string, limit int) string {
		out, cut := truncate(s, limit)
		if cut {
			notes = append(notes, fmt.Sprintf("%s truncated to %d characters", path, limit))
		}
		return out
	}
	clipAll := func(path string, items []string) []string {
		for i := range items {
			items[i] = clip(fmt.Sprintf("%s[%d]", path, i), items[i], n.Limits.MaxFieldLength)
		}
		return items
	}

	a := rec.Analysis
	result := domain.OptimizationResult{
		Analysis: domain.Analysis{
			QualityScore:     domain.DefaultQualityScore,
			Intent:           clip("analysis.intent", a.Intent, n.Limits.MaxFieldLength),
			Language:         clip("analysis.language", a.Language, n.Limits.MaxFieldLength),
			Assumptions:      clipAll("analysis.assumptions", firstList(a.Assumptions)),
			ClarityScore:     copyScore(a.ClarityScore),
			SpecificityScore: copyScore(a.SpecificityScore),
		},
		Language:       rec.Language,
		OriginalPrompt: clip("originalPrompt", rec.OriginalPrompt, n.Limits.MaxPromptLength),
		Timestamp:      rec.Timestamp,
	}

	if q := firstScore(a.QualityScore, a.QualityScoreSnake); q != nil {
		result.Analysis.QualityScore = *q
	}

	if improvements := firstList(a.Improvements); len(improvements) > 0 {
		result.Analysis.Improvements = clipAll("analysis.improvements", improvements)
	}

	if rec.Diagnosis != nil || len(a.MissingInfo) > 0 || len(a.ClarifyingQuestions) > 0 || len(a.PrivacyWarnings) > 0 {
		d := rec.Diagnosis
		if d == nil {
			d = &RecordDiagnosis{}
		}
		result.Diagnosis = &domain.Diagnosis{
			MissingInfo:         clipAll("diagnosis.missingInfo", firstList(d.MissingInfo, d.MissingInfoSnake, a.MissingInfo)),
			ClarifyingQuestions: clipAll("diagnosis.clarifyingQuestions", firstList(d.ClarifyingQuestions, d.ClarifyingQuestionsSnake, a.ClarifyingQuestions)),
			PrivacyWarnings:     clipAll("diagnosis.privacyWarnings", firstList(d.PrivacyWarnings, d.PrivacyWarningsSnake, d.PrivacyWarning, d.Warnings, a.PrivacyWarnings)),
			QualityScore:        firstScore(d.QualityScore, d.QualityScoreSnake),
			Assumptions:         clipAll("diagnosis.assumptions", firstList(d.Assumptions)),
		}
	}

	result.Variants = make(domain.VariantSet, len(rec.Variants))
	for _, key := range variantOrder(rec.Variants) {
		result.Variants[key] = clip("variants."+string(key), rec.Variants[key], n.Limits.MaxPromptLength)
	}

	warnings := clipAll("warnings", append([]string(nil), rec.Warnings...))
	warnings = appendUnique(warnings, rec.Advisories...)
	warnings = appendUnique(warnings, notes...)
	if len(warnings) > 0 {
		result.Warnings = warnings
	}

	return result
}

// variantOrder lists the supported keys first, then any foreign keys sorted,
// so foreign keys survive normalization and reach the refiner.
func variantOrder(set domain.VariantSet) []domain.VariantKey {
	keys := make([]domain.VariantKey, 0, len(set))
	for _, k := range domain.VariantKeys {
		if _, ok := set[k]; ok {
			keys = append(keys, k)
		}
	}

	var foreign []string
	for k := range set {
		if _, known := domain.ParseVariantKey(string(k)); !known || string(k) != strings.ToLower(strings.TrimSpace(string(k))) {
			foreign = append(foreign, string(k))
		}
	}
	sort.Strings(foreign)
	for _, k := range foreign {
		keys = append(keys, domain.VariantKey(k))
	}

	return keys
}

// firstList returns a copy of the first non-empty list, or an empty list.
func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			out := make([]string, len(l))
			copy(out, l)
			return out
		}
	}
	return []string{}
}

func firstScore(scores ...*float64) *float64 {
	for _, s := range scores {
		if s != nil {
			return copyScore(s)
		}
	}
	return nil
}

func copyScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		seen := false
		for _, existing := range dst {
			if existing == item {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, item)
		}
	}
	return dst
}
