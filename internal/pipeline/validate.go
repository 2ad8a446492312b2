package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixbrock/promptstudio/internal/domain"
)

const (
	MinClarifyingQuestions = 2
	MaxClarifyingQuestions = 5
)

var topLevelLanguages = map[string]bool{"en": true, "ar": true, "both": true}

// Validate parses candidate and checks it against the result shape, accepting
// either naming convention for aliased fields. All independent failures are
// collected before returning.
func Validate(candidate string) (Record, error) {
	var root any
	err := json.Unmarshal([]byte(candidate), &root)

	if err != nil {
		return Record{}, rootError(KindParse, err, fmt.Sprintf("invalid JSON: %s", err.Error()))
	}

	c := &checker{}
	rec := c.record(root)

	if len(c.errs) > 0 {
		return Record{}, newError(KindStructural, nil, c.errs...)
	}

	rec.Advisories = c.advisories
	return rec, nil
}

type checker struct {
	errs       []domain.ValidationError
	advisories []string
}

func (c *checker) fail(path domain.Path, format string, args ...any) {
	c.errs = append(c.errs, domain.ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) advise(path domain.Path, format string, args ...any) {
	c.advisories = append(c.advisories, path.String()+": "+fmt.Sprintf(format, args...))
}

func (c *checker) record(root any) Record {
	var rec Record
	path := domain.Path{}

	obj, ok := root.(map[string]any)
	if !ok {
		c.fail(path, "expected object, got %s", typeName(root))
		return rec
	}

	if v, ok := present(obj, "analysis"); ok {
		if a, ok := c.object(v, path.Field("analysis")); ok {
			rec.Analysis = c.analysis(a, path.Field("analysis"))
		}
	} else {
		c.fail(path.Field("analysis"), "analysis is required")
	}

	if v, ok := present(obj, "diagnosis"); ok {
		if d, ok := c.object(v, path.Field("diagnosis")); ok {
			rec.Diagnosis = c.diagnosis(d, path.Field("diagnosis"))
		}
	}

	if v, ok := present(obj, "variants"); ok {
		rec.Variants = c.variants(v, path.Field("variants"))
	} else {
		c.fail(path.Field("variants"), "variants is required")
	}

	if lang, ok := c.optString(obj, "language", path); ok && !topLevelLanguages[lang] {
		c.fail(path.Field("language"), "language must be one of en, ar, both")
	} else {
		rec.Language = lang
	}

	rec.OriginalPrompt, _ = c.optString(obj, "originalPrompt", path)

	if ts, ok := c.optString(obj, "timestamp", path); ok {
		if _, err := time.Parse(time.RFC3339, ts); err != nil {
			c.advise(path.Field("timestamp"), "timestamp is not an RFC 3339 date")
		}
		rec.Timestamp = ts
	}

	rec.Warnings = c.stringOrList(obj, "warnings", path)
	if rec.Warnings == nil {
		rec.Warnings = c.stringOrList(obj, "warning", path)
	}

	c.clarifyingQuestionCount(rec)

	return rec
}

func (c *checker) analysis(obj map[string]any, path domain.Path) RecordAnalysis {
	return RecordAnalysis{
		QualityScore:        c.optScore(obj, "qualityScore", path),
		QualityScoreSnake:   c.optScore(obj, "quality_score", path),
		Intent:              c.reqString(obj, "intent", path),
		Language:            c.reqString(obj, "language", path),
		Assumptions:         c.optStrings(obj, "assumptions", path),
		Improvements:        c.optStrings(obj, "improvements", path),
		ClarityScore:        c.optScore(obj, "clarityScore", path),
		SpecificityScore:    c.optScore(obj, "specificityScore", path),
		MissingInfo:         c.optStrings(obj, "missing_info", path),
		ClarifyingQuestions: c.optStrings(obj, "clarifying_questions", path),
		PrivacyWarnings:     c.optStrings(obj, "privacy_warnings", path),
	}
}

func (c *checker) diagnosis(obj map[string]any, path domain.Path) *RecordDiagnosis {
	return &RecordDiagnosis{
		MissingInfo:              c.optStrings(obj, "missingInfo", path),
		MissingInfoSnake:         c.optStrings(obj, "missing_info", path),
		ClarifyingQuestions:      c.optStrings(obj, "clarifyingQuestions", path),
		ClarifyingQuestionsSnake: c.optStrings(obj, "clarifying_questions", path),
		PrivacyWarnings:          c.optStrings(obj, "privacyWarnings", path),
		PrivacyWarningsSnake:     c.optStrings(obj, "privacy_warnings", path),
		PrivacyWarning:           c.privacyWarning(obj, path),
		Warnings:                 c.stringOrList(obj, "warnings", path),
		QualityScore:             c.optScore(obj, "qualityScore", path),
		QualityScoreSnake:        c.optScore(obj, "quality_score", path),
		Assumptions:              c.optStrings(obj, "assumptions", path),
	}
}

// privacyWarning accepts a string, a list of strings, or the
// {detected, concern, suggestion} object.
func (c *checker) privacyWarning(obj map[string]any, path domain.Path) []string {
	v, ok := present(obj, "privacyWarning")
	if !ok {
		return nil
	}

	warning, ok := v.(map[string]any)
	if !ok {
		return c.stringOrList(obj, "privacyWarning", path)
	}

	path = path.Field("privacyWarning")
	detected, ok := warning["detected"].(bool)
	if !ok {
		c.fail(path.Field("detected"), "expected boolean, got %s", typeName(warning["detected"]))
		return nil
	}

	concern, _ := c.optString(warning, "concern", path)
	suggestion, _ := c.optString(warning, "suggestion", path)

	if !detected {
		return nil
	} else if concern == "" || suggestion == "" {
		c.fail(path.Field("detected"), "when a privacy warning is detected, both concern and suggestion must be provided")
		return nil
	}

	return []string{concern + ": " + suggestion}
}

func (c *checker) variants(v any, path domain.Path) domain.VariantSet {
	set := domain.VariantSet{}
	genericFailed := false

	switch typed := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		origin := map[domain.VariantKey]string{}
		for _, name := range keys {
			key, ok := domain.ParseVariantKey(name)
			if !ok {
				c.advise(path.Field(name), "unknown variant ignored")
				continue
			}
			text, ok := c.optString(typed, name, path)
			if !ok {
				if _, given := present(typed, name); given {
					genericFailed = genericFailed || key == domain.VariantGeneric
				}
				continue
			}
			if prev, dup := origin[key]; dup {
				c.fail(path.Field(name), "duplicate variant %q (also given as %q)", key, prev)
				genericFailed = genericFailed || key == domain.VariantGeneric
				continue
			}
			origin[key] = name
			if strings.TrimSpace(text) == "" {
				c.fail(path.Field(name), "variant must not be empty")
				genericFailed = genericFailed || key == domain.VariantGeneric
				continue
			}
			set[key] = text
		}

	case []any:
		for i, item := range typed {
			itemPath := path.Index(i)
			obj, ok := c.object(item, itemPath)
			if !ok {
				continue
			}
			model := c.reqString(obj, "type", itemPath)
			content := c.reqString(obj, "content", itemPath)
			c.optStrings(obj, "modelSpecificTips", itemPath)
			if model == "" {
				continue
			}
			key, ok := domain.ParseVariantKey(model)
			if !ok {
				c.fail(itemPath.Field("type"), "invalid model type, must be one of Generic, ChatGPT, Claude, Gemini, Kimi")
				continue
			}
			if _, dup := set[key]; dup {
				c.fail(itemPath.Field("type"), "each variant must have a unique type")
				continue
			}
			if content == "" {
				genericFailed = genericFailed || key == domain.VariantGeneric
				continue
			}
			set[key] = content
		}

	default:
		c.fail(path, "expected object, got %s", typeName(v))
		return nil
	}

	if set.Generic() == "" && !genericFailed {
		c.fail(path.Field(string(domain.VariantGeneric)), "generic variant is required")
	}

	return set
}

// clarifyingQuestionCount records an advisory, never an error, when the
// resolved question list falls outside 2-5 entries.
func (c *checker) clarifyingQuestionCount(rec Record) {
	var questions []string
	var path domain.Path

	if d := rec.Diagnosis; d != nil {
		switch {
		case d.ClarifyingQuestions != nil:
			questions, path = d.ClarifyingQuestions, domain.Path{}.Field("diagnosis").Field("clarifyingQuestions")
		case d.ClarifyingQuestionsSnake != nil:
			questions, path = d.ClarifyingQuestionsSnake, domain.Path{}.Field("diagnosis").Field("clarifying_questions")
		}
	}
	if questions == nil && rec.Analysis.ClarifyingQuestions != nil {
		questions, path = rec.Analysis.ClarifyingQuestions, domain.Path{}.Field("analysis").Field("clarifying_questions")
	}

	if questions == nil {
		return
	}

	if n := len(questions); n < MinClarifyingQuestions || n > MaxClarifyingQuestions {
		c.advise(path, "expected %d-%d clarifying questions, got %d", MinClarifyingQuestions, MaxClarifyingQuestions, n)
	}
}

func (c *checker) object(v any, path domain.Path) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.fail(path, "expected object, got %s", typeName(v))
	}
	return obj, ok
}

func (c *checker) optString(obj map[string]any, key string, path domain.Path) (string, bool) {
	v, ok := present(obj, key)
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	if !ok {
		c.fail(path.Field(key), "expected string, got %s", typeName(v))
		return "", false
	}

	return s, true
}

func (c *checker) reqString(obj map[string]any, key string, path domain.Path) string {
	if _, ok := present(obj, key); !ok {
		c.fail(path.Field(key), "%s is required", key)
		return ""
	}

	s, ok := c.optString(obj, key, path)
	if ok && strings.TrimSpace(s) == "" {
		c.fail(path.Field(key), "%s must not be empty", key)
		return ""
	}

	return s
}

func (c *checker) optScore(obj map[string]any, key string, path domain.Path) *float64 {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}

	n, ok := v.(float64)
	if !ok {
		c.fail(path.Field(key), "expected number, got %s", typeName(v))
		return nil
	}

	if n < domain.MinScore || n > domain.MaxScore {
		c.fail(path.Field(key), "score must be between %d and %d", domain.MinScore, domain.MaxScore)
		return nil
	}

	return &n
}

// optStrings returns nil when key is absent and a non-nil slice otherwise.
func (c *checker) optStrings(obj map[string]any, key string, path domain.Path) []string {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}

	items, ok := v.([]any)
	if !ok {
		c.fail(path.Field(key), "expected list, got %s", typeName(v))
		return nil
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			c.fail(path.Field(key).Index(i), "expected string, got %s", typeName(item))
			continue
		}
		out = append(out, s)
	}

	return out
}

func (c *checker) stringOrList(obj map[string]any, key string, path domain.Path) []string {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}

	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}
		}
		return []string{s}
	}

	return c.optStrings(obj, key, path)
}

// present treats JSON null the same as an absent key.
func present(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
