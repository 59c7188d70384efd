package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/nodetick/pkg/document"
	"github.com/dshills/nodetick/pkg/engine"
	opererrors "github.com/dshills/nodetick/pkg/errors"
	"github.com/dshills/nodetick/pkg/storage"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		budget   time.Duration
		interval time.Duration
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "run <document.yaml>",
		Short: "Evaluate the graphs in a document",
		Long: `Evaluate every graph in a document file, driving the scheduler with
periodic ticks the way a host editor would.

Examples:
  # Evaluate a document
  nodetick run graphs.yaml

  # Watch per-tick progress
  nodetick run graphs.yaml --watch --debug

  # Record node runs to a history database
  nodetick run graphs.yaml --history ~/.nodetick/nodetick.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}
			if err := document.ValidateBytes(data); err != nil {
				return fmt.Errorf("document validation failed: %w", err)
			}
			docs, err := document.Parse(data)
			if err != nil {
				return fmt.Errorf("failed to parse document: %w", err)
			}

			var logger *engine.Logger
			if GlobalConfig.HistoryPath != "" {
				repo, err := storage.NewHistoryRepositoryWithPath(GlobalConfig.HistoryPath)
				if err != nil {
					return fmt.Errorf("failed to open history database: %w", err)
				}
				defer func() { _ = repo.Close() }()
				logger = engine.NewLogger(repo)
			}

			eng := engine.New(logger)
			eng.SetBudget(budget)

			for _, doc := range docs {
				if err := eng.Send(engine.Event{Kind: engine.EventTopologyChanged, Doc: doc}); err != nil {
					return opererrors.NewOperationalError("queueing graph", doc.GraphID(), "", err)
				}
			}

			// the periodic driver: one bounded tick per interval
			for eng.HasWork() {
				eng.Tick()
				if watch {
					if msg := eng.Progress(); msg != "" {
						_, _ = fmt.Fprintln(cmd.ErrOrStderr(), msg)
					}
				}
				if interval > 0 && eng.HasWork() {
					time.Sleep(interval)
				}
			}

			for _, doc := range docs {
				printGraphReport(cmd, eng, doc)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&budget, "budget", engine.DefaultBudget, "Time budget per tick")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between ticks (simulates the host timer)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Print progress on every tick")

	return cmd
}

// printGraphReport prints per-node values, timings, and errors for one graph.
func printGraphReport(cmd *cobra.Command, eng *engine.Engine, doc *document.Document) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "graph %q\n", doc.GraphName())

	if err := eng.LastError(doc.GraphID()); err != nil {
		_, _ = fmt.Fprintf(out, "  ! %v\n", err)
		return
	}

	errs := eng.Errors(doc)
	timings := eng.Timings(doc)
	for i, n := range doc.Nodes() {
		switch {
		case errs[i] != nil:
			_, _ = fmt.Fprintf(out, "  ✗ %-20s error: %v\n", n.Name(), errs[i])
		case timings[i].Valid:
			value, _ := doc.Value(n.Name())
			_, _ = fmt.Fprintf(out, "  ✓ %-20s %v (%dms)\n", n.Name(), value, timings[i].Duration.Milliseconds())
		default:
			value, ok := doc.Value(n.Name())
			if ok {
				_, _ = fmt.Fprintf(out, "  - %-20s %v\n", n.Name(), value)
			} else {
				_, _ = fmt.Fprintf(out, "  - %-20s (no run recorded)\n", n.Name())
			}
		}
	}
}
