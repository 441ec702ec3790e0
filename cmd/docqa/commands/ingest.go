package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/extract"
	"github.com/54b3r/docqa-go/internal/logging"
)

// NewIngestCmd constructs the `docqa ingest` command, which indexes local
// document files into the vector store.
func NewIngestCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index local documents into the vector store",
		Long: `Read local document files, split them into chunks, embed each chunk,
and index the vectors so questions can be answered against the content.

Supported formats: .txt, .md, .pdf, .docx.

By default chunks are indexed into an in-process store that vanishes on exit;
set QDRANT_HOST to index into a persistent Qdrant collection instead.

Examples:
  docqa ingest --file policy.md
  docqa ingest --file handbook.pdf --file onboarding.docx
  QDRANT_HOST=localhost docqa ingest --file policy.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(files) == 0 {
				return fmt.Errorf("ingest: at least one --file is required")
			}

			pipe, _, _, _, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer cleanup()

			total := 0
			for _, path := range files {
				name := filepath.Base(path)
				if !extract.Supported(name) {
					return fmt.Errorf("ingest: %s: unsupported format (want .txt, .md, .pdf, or .docx)", path)
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", path, err)
				}
				text, err := extract.Text(name, data)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}

				added, err := pipe.Ingest(ctx, name, text)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				log.Info("file indexed", slog.String("file", path), slog.Int("chunks", added))
				fmt.Printf("%s: %d chunks\n", name, added)
				total += added
			}

			fmt.Printf("indexed %d chunks from %d files\n", total, len(files))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Document file to ingest (repeatable)")

	return cmd
}
