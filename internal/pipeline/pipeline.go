// Package pipeline turns the untrusted text of a completion into a canonical
// domain.OptimizationResult: extract, validate, normalize, refine.
package pipeline

import (
	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/logger"
)

type Pipeline struct {
	extractor  Extractor
	normalizer Normalizer
	log        *logger.Logger
}

func New(limits Limits, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}

	return &Pipeline{
		extractor:  NewExtractor(limits.MaxPromptLength, log),
		normalizer: Normalizer{Limits: limits},
		log:        log.With("component", "pipeline"),
	}
}

// Process runs one completion through every stage. Any returned error is a
// *Error; no partial result is returned with it.
func (p *Pipeline) Process(raw string) (domain.OptimizationResult, error) {
	candidate, err := p.extractor.Extract(raw)

	if err != nil {
		p.logFailure("extract", err)
		return domain.OptimizationResult{}, err
	}

	rec, err := Validate(candidate)

	if err != nil {
		p.logFailure("validate", err)
		return domain.OptimizationResult{}, err
	}

	for _, advisory := range rec.Advisories {
		p.log.Debug("validation advisory", "advisory", advisory)
	}

	result, err := Refine(p.normalizer.Normalize(rec))

	if err != nil {
		p.logFailure("refine", err)
		return domain.OptimizationResult{}, err
	}

	return result, nil
}

// Accept re-checks a result that did not come from a raw completion, such as
// one read back from history.
func (p *Pipeline) Accept(result domain.OptimizationResult) (domain.OptimizationResult, error) {
	refined, err := Refine(p.normalizer.Normalize(FromResult(result)))

	if err != nil {
		p.logFailure("accept", err)
		return domain.OptimizationResult{}, err
	}

	return refined, nil
}

func (p *Pipeline) logFailure(stage string, err error) {
	kv := []any{"stage", stage, "error", err.Error()}
	if perr, ok := AsError(err); ok {
		kv = append(kv, "kind", string(perr.Kind), "failed_fields", len(perr.Errors))
	}
	p.log.Warn("completion rejected", kv...)
}
