package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixbrock/promptstudio/internal/diff"
	"github.com/felixbrock/promptstudio/internal/domain"
)

func newDiffCmd(e *env) *cobra.Command {
	var (
		original  string
		optimized string
		mode      string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the line diff between two prompt files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode == "" {
				mode = e.cfg.Diff.Mode
			}

			m, err := diff.ParseMode(mode)

			if err != nil {
				return err
			}

			before, err := readInput(cmd.InOrStdin(), original)

			if err != nil {
				return err
			}

			after, err := readInput(cmd.InOrStdin(), optimized)

			if err != nil {
				return err
			}

			report := diff.NewEngine(m).Compute(string(before), string(after))

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			writeDiff(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "original prompt file")
	cmd.Flags().StringVar(&optimized, "optimized", "", "optimized prompt file")
	cmd.Flags().StringVar(&mode, "mode", "", "greedy or lcs (defaults to diff.mode)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the diff report as JSON")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("optimized")

	return cmd
}

var diffMarks = map[domain.DiffKind]string{
	domain.DiffAdded:     "+",
	domain.DiffRemoved:   "-",
	domain.DiffUnchanged: " ",
}

func writeDiff(w io.Writer, report domain.DiffReport) {
	fmt.Fprintf(w, "\n+%d -%d =%d\n", report.Counts.Added, report.Counts.Removed, report.Counts.Unchanged)
	for _, line := range report.Lines {
		fmt.Fprintf(w, "%s %4d %s\n", diffMarks[line.Kind], line.LineNumber, line.Content)
	}
}
