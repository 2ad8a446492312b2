package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixbrock/promptstudio/internal/app"
	"github.com/felixbrock/promptstudio/internal/diff"
	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/pipeline"
)

func newOptimizeCmd(e *env) *cobra.Command {
	var (
		prompt       string
		instructions string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize one prompt and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := pipeline.ValidatePrompt(prompt, e.limits())

			if err != nil {
				return err
			}

			instructions, err := pipeline.ValidateInstructions(instructions, e.limits())

			if err != nil {
				return err
			}

			completer, err := e.completer(cmd.Context())

			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Completion.Timeout)
			defer cancel()

			result, err := app.Optimize(ctx, completer, pipeline.New(e.limits(), e.log), prompt, instructions)

			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			mode, _ := diff.ParseMode(e.cfg.Diff.Mode)
			writeResult(cmd.OutOrStdout(), result)
			writeDiff(cmd.OutOrStdout(), diff.NewEngine(mode).Compute(prompt, result.Variants.Generic()))
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to optimize")
	cmd.Flags().StringVar(&instructions, "instructions", "", "custom optimization instructions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the canonical result as JSON")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// reportFailure prints every field error of a pipeline failure and returns
// the summary as the command error.
func reportFailure(w io.Writer, err error) error {
	perr, ok := pipeline.AsError(err)
	if !ok {
		return err
	}

	for _, ve := range perr.Errors {
		fmt.Fprintf(w, "  %s\n", ve.Error())
	}

	return fmt.Errorf("%s: %s", perr.Kind, perr.Summary())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(w io.Writer, r domain.OptimizationResult) {
	fmt.Fprintf(w, "Intent:      %s\n", r.Analysis.Intent)
	fmt.Fprintf(w, "Language:    %s\n", r.Analysis.Language)
	fmt.Fprintf(w, "Quality:     %.0f (clarity %s, specificity %s)\n",
		r.Analysis.QualityScore, optScore(r.Analysis.ClarityScore), optScore(r.Analysis.SpecificityScore))

	if r.Diagnosis != nil {
		list(w, "Missing information", r.Diagnosis.MissingInfo)
		list(w, "Clarifying questions", r.Diagnosis.ClarifyingQuestions)
		list(w, "Privacy warnings", r.Diagnosis.PrivacyWarnings)
	}
	list(w, "Improvements", r.Analysis.Improvements)
	list(w, "Warnings", r.Warnings)

	for _, key := range r.Variants.Available() {
		fmt.Fprintf(w, "\n[%s]\n%s\n", key, r.Variants[key])
	}
}

func optScore(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *s)
}

func list(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(item))
	}
}
