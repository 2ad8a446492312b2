package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/persistence"
)

func newHistoryCmd(e *env) *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit the stored optimization history",
	}

	cmd.PersistentFlags().StringVar(&client, "client", "", "client id (sid cookie) whose history to use")

	// withLog opens the configured store for the duration of fn.
	withLog := func(fn func(cmd *cobra.Command, l *history.Log) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := persistence.OpenStore(e.storeConfig(), e.log)

			if err != nil {
				return err
			}

			defer func() {
				err := closeStore()
				if err != nil {
					e.log.Error("Error occured", "error", err.Error())
				}
			}()

			key := e.cfg.History.Key
			if client != "" {
				key += ":" + client
			}

			return fn(cmd, history.New(store, key, e.cfg.History.MaxEntries, e.log))
		}
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Args:  cobra.NoArgs,
		RunE: withLog(func(cmd *cobra.Command, l *history.Log) error {
			entries := l.Load(cmd.Context())

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No optimizations yet.")
				return nil
			}
			for _, entry := range entries {
				score := "legacy"
				if s := entry.Result.Structured; s != nil {
					score = fmt.Sprintf("%.0f", s.Analysis.QualityScore)
				}
				fmt.Fprintf(w, "%s  %s  %6s  %s\n", entry.Id, entry.Timestamp, score, preview(entry.UserInput, 60))
			}
			return nil
		}),
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one entry",
		Args:  cobra.ExactArgs(1),
		RunE: withLog(func(cmd *cobra.Command, l *history.Log) error {
			id := cmd.Flags().Arg(0)

			if _, ok := l.Get(cmd.Context(), id); !ok {
				return fmt.Errorf("no history entry %q", id)
			}

			l.Remove(cmd.Context(), id)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: withLog(func(cmd *cobra.Command, l *history.Log) error {
			l.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		}),
	}

	cmd.AddCommand(list, del, clearCmd)
	return cmd
}

// preview is the first line of s, cut to n runes.
func preview(s string, n int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
