package app

import (
	"context"
	"fmt"

	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/pipeline"
)

// CompletionError wraps a failure of the completion service itself.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed: %s", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Optimize asks the completer for one optimization of prompt and runs the
// reply through the pipeline. Inputs must already be validated.
func Optimize(ctx context.Context, completer Completer, p *pipeline.Pipeline, prompt, instructions string) (domain.OptimizationResult, error) {
	raw, err := completer.Complete(ctx, userPrompt(prompt, instructions), systemInstruction)

	if err != nil {
		return domain.OptimizationResult{}, &CompletionError{Err: err}
	}

	return p.Process(raw)
}
