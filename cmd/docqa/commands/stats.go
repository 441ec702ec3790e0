package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/logging"
)

// NewStatsCmd constructs the `docqa stats` command, which prints index and
// catalog statistics.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics and recorded uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			pipe, _, _, storeName, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer cleanup()

			count, err := pipe.Count(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			uploads, err := pipe.Uploads(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			fmt.Printf("store:     %s\n", storeName)
			fmt.Printf("chunks:    %d\n", count)
			fmt.Printf("documents: %d\n", len(uploads))
			if len(uploads) > 0 {
				fmt.Println("\nuploads (newest first):")
				for _, u := range uploads {
					fmt.Printf("  %-30s %4d chunks  %s\n",
						u.Filename, u.ChunksAdded, u.UploadedAt.Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}
}
