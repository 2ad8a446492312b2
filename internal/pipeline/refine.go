package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/felixbrock/promptstudio/internal/domain"
)

// ScoreTolerance is the largest allowed distance between the aggregate
// quality score and the average of the clarity and specificity scores.
const ScoreTolerance = 20

// Refine checks the rules that span several fields of a normalized result.
// The result is returned unchanged on success and discarded on failure.
func Refine(result domain.OptimizationResult) (domain.OptimizationResult, error) {
	var errs []domain.ValidationError
	fail := func(path domain.Path, format string, args ...any) {
		errs = append(errs, domain.ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	analysis := domain.Path{}.Field("analysis")
	a := result.Analysis

	if strings.TrimSpace(a.Intent) == "" {
		fail(analysis.Field("intent"), "intent must not be empty")
	}
	if strings.TrimSpace(a.Language) == "" {
		fail(analysis.Field("language"), "language must not be empty")
	}

	scoresInRange := true
	for _, s := range []struct {
		path  domain.Path
		score *float64
	}{
		{analysis.Field("qualityScore"), &a.QualityScore},
		{analysis.Field("clarityScore"), a.ClarityScore},
		{analysis.Field("specificityScore"), a.SpecificityScore},
	} {
		if s.score != nil && !inRange(*s.score) {
			fail(s.path, "score must be between %d and %d", domain.MinScore, domain.MaxScore)
			scoresInRange = false
		}
	}

	if scoresInRange && a.ClarityScore != nil && a.SpecificityScore != nil {
		avg := (*a.ClarityScore + *a.SpecificityScore) / 2
		if diff := math.Abs(a.QualityScore - avg); diff > ScoreTolerance {
			fail(analysis.Field("qualityScore"),
				"quality score %g differs from the clarity/specificity average %g by %g (tolerance %d)",
				a.QualityScore, avg, diff, ScoreTolerance)
		}
	}

	if d := result.Diagnosis; d != nil && d.QualityScore != nil && !inRange(*d.QualityScore) {
		fail(domain.Path{}.Field("diagnosis").Field("qualityScore"), "score must be between %d and %d", domain.MinScore, domain.MaxScore)
	}

	errs = append(errs, checkVariants(result.Variants)...)

	if len(errs) > 0 {
		return domain.OptimizationResult{}, newError(KindConsistency, nil, errs...)
	}

	return result, nil
}

func checkVariants(set domain.VariantSet) []domain.ValidationError {
	var errs []domain.ValidationError
	path := domain.Path{}.Field("variants")

	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, string(k))
	}
	sort.Strings(names)

	seen := map[domain.VariantKey]string{}
	for _, name := range names {
		key, ok := domain.ParseVariantKey(name)
		switch {
		case !ok:
			errs = append(errs, domain.ValidationError{Path: path.Field(name), Message: "unknown variant"})
			continue
		case string(key) != name:
			errs = append(errs, domain.ValidationError{Path: path.Field(name), Message: fmt.Sprintf("variant key must be %q", key)})
		}

		if prev, dup := seen[key]; dup {
			errs = append(errs, domain.ValidationError{Path: path.Field(name), Message: fmt.Sprintf("duplicate variant %q (also given as %q)", key, prev)})
			continue
		}
		seen[key] = name

		if key != domain.VariantGeneric && strings.TrimSpace(set[domain.VariantKey(name)]) == "" {
			errs = append(errs, domain.ValidationError{Path: path.Field(name), Message: "variant must not be empty"})
		}
	}

	if strings.TrimSpace(set.Generic()) == "" {
		errs = append(errs, domain.ValidationError{Path: path.Field(string(domain.VariantGeneric)), Message: "generic variant is required"})
	}

	return errs
}

func inRange(score float64) bool {
	return !math.IsNaN(score) && score >= domain.MinScore && score <= domain.MaxScore
}
