package pipeline

import "github.com/felixbrock/promptstudio/internal/domain"

// Record is a structurally valid completion whose alternate field names have
// not been resolved yet. Nil slices and pointers mean the field was absent.
type Record struct {
	Diagnosis      *RecordDiagnosis
	Analysis       RecordAnalysis
	Variants       domain.VariantSet
	Language       string
	OriginalPrompt string
	Timestamp      string
	Warnings       []string
	// Advisories are soft violations found during validation.
	Advisories []string
}

type RecordDiagnosis struct {
	MissingInfo              []string
	MissingInfoSnake         []string
	ClarifyingQuestions      []string
	ClarifyingQuestionsSnake []string
	PrivacyWarnings          []string
	PrivacyWarningsSnake     []string
	PrivacyWarning           []string
	Warnings                 []string
	QualityScore             *float64
	QualityScoreSnake        *float64
	Assumptions              []string
}

type RecordAnalysis struct {
	QualityScore      *float64
	QualityScoreSnake *float64
	Intent            string
	Language          string
	Assumptions       []string
	Improvements      []string
	ClarityScore      *float64
	SpecificityScore  *float64

	// Diagnosis lists some completions nest under analysis in snake_case.
	MissingInfo         []string
	ClarifyingQuestions []string
	PrivacyWarnings     []string
}

// FromResult lifts a canonical result back into a Record using only the
// canonical field names.
func FromResult(result domain.OptimizationResult) Record {
	quality := result.Analysis.QualityScore

	rec := Record{
		Analysis: RecordAnalysis{
			QualityScore:     &quality,
			Intent:           result.Analysis.Intent,
			Language:         result.Analysis.Language,
			Assumptions:      result.Analysis.Assumptions,
			Improvements:     result.Analysis.Improvements,
			ClarityScore:     result.Analysis.ClarityScore,
			SpecificityScore: result.Analysis.SpecificityScore,
		},
		Variants:       result.Variants,
		Language:       result.Language,
		OriginalPrompt: result.OriginalPrompt,
		Timestamp:      result.Timestamp,
		Warnings:       result.Warnings,
	}

	if d := result.Diagnosis; d != nil {
		rec.Diagnosis = &RecordDiagnosis{
			MissingInfo:         d.MissingInfo,
			ClarifyingQuestions: d.ClarifyingQuestions,
			PrivacyWarnings:     d.PrivacyWarnings,
			QualityScore:        d.QualityScore,
			Assumptions:         d.Assumptions,
		}
	}

	return rec
}
