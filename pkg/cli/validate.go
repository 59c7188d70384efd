package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/nodetick/pkg/document"
	"github.com/dshills/nodetick/pkg/graph"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.yaml>",
		Short: "Validate a document against the schema and structural rules",
		Long: `Validate a document file: schema validation first, then a structural
check that every graph builds into a well-formed snapshot (unique node
names, links that resolve, no cycles).`,
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
			for _, doc := range docs {
				if _, err := graph.Build(doc); err != nil {
					return fmt.Errorf("structural validation failed: %w", err)
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d graph(s))\n", path, len(docs))
			return nil
		},
	}
	return cmd
}
