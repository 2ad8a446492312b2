package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixbrock/promptstudio/internal/pipeline"
)

func newExtractCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Run a saved completion through the pipeline and print the canonical result",
		Long: `extract reads raw completion text from a file, or from stdin when the
argument is "-" or missing, and prints the canonical optimization result as JSON.
Field errors are printed to stderr when the completion is rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}

			raw, err := readInput(cmd.InOrStdin(), name)

			if err != nil {
				return err
			}

			result, err := pipeline.New(e.limits(), e.log).Process(string(raw))

			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
