package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/nodetick/pkg/storage"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <graph-id>",
		Short: "List recorded node runs for a graph",
		Long: `List the most recent node runs recorded for a graph, newest first.
Requires the --history flag pointing at the database runs were recorded to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if GlobalConfig.HistoryPath == "" {
				return fmt.Errorf("no history database configured (use --history)")
			}

			repo, err := storage.NewHistoryRepositoryWithPath(GlobalConfig.HistoryPath)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer func() { _ = repo.Close() }()

			runs, err := repo.ListByGraph(args[0], limit)
			if err != nil {
				return fmt.Errorf("failed to list node runs: %w", err)
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, run := range runs {
				if run.Error != "" {
					_, _ = fmt.Fprintf(out, "%s  ✗ %-20s %s\n",
						run.StartedAt.Format("2006-01-02 15:04:05"), run.NodeName, run.Error)
				} else {
					_, _ = fmt.Fprintf(out, "%s  ✓ %-20s %dms\n",
						run.StartedAt.Format("2006-01-02 15:04:05"), run.NodeName, run.DurationMS)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of runs to list")
	return cmd
}
