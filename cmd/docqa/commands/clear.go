package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docqa-go/internal/logging"
)

// NewClearCmd constructs the `docqa clear` command, which removes every
// indexed chunk and upload record.
func NewClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every indexed chunk and upload record",
		Long: `Remove every chunk from the vector store and every row from the upload
catalog. This cannot be undone; pass --yes to skip the confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if !yes {
				fmt.Print("This removes every indexed chunk. Continue? [y/N]: ")
				var answer string
				fmt.Scanln(&answer)
				if answer != "y" && answer != "Y" {
					fmt.Println("aborted")
					return nil
				}
			}

			pipe, _, _, _, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			defer cleanup()

			if err := pipe.Clear(ctx); err != nil {
				return fmt.Errorf("clear: %w", err)
			}

			fmt.Println("index cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
