package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/logging"
)

// NewAskCmd constructs the `docqa ask` command, which answers a single
// question against the indexed documents and prints the answer with its
// sources.
func NewAskCmd() *cobra.Command {
	var topK int
	var filePaths []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question grounded in your indexed documents",
		Long: `Ask a natural language question. The most relevant chunks are retrieved
from the index and handed to the LLM, which answers only from that context
and cites the source of each statement.

With --file, the named documents are ingested first, so a one-shot question
against local files needs no prior ingest step (works best with the default
in-process store; with Qdrant the files are added to the collection).

Examples:
  docqa ask "how many sick days do I get?"
  docqa ask --file policy.md "how many sick days do I get?"
  docqa ask --top-k 5 "what is the remote work policy?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			pipe, _, _, _, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer cleanup()

			if len(filePaths) > 0 {
				if err := ingestFiles(ctx, pipe, filePaths); err != nil {
					return fmt.Errorf("ask: %w", err)
				}
			}

			res, err := pipe.Query(ctx, args[0], topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(res.Answer)
			if len(res.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range res.Sources {
					fmt.Printf("  %-30s score=%.3f  chunk=%s\n", src.Filename, src.Score, src.ID)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (0 = server default)")
	cmd.Flags().StringArrayVarP(&filePaths, "file", "f", nil, "Document file to ingest before asking (repeatable)")

	return cmd
}
