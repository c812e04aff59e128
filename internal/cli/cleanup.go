package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/models"
)

var cleanupForce bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <date>",
	Short: "Delete one date's records",
	Long:  `Remove all snapshot records (totals, ranks, and top-N counts) for a single date. Use this to drop a bad capture before re-running it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "skip the confirmation prompt")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	date := args[0]
	if _, err := time.Parse(models.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	if !cleanupForce {
		reader := bufio.NewReader(os.Stdin)
		confirmed, err := promptYesNo(reader, fmt.Sprintf("Delete all records for %s? (y/N): ", date))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cleanup cancelled.")
			return nil
		}
	}

	if err := store.DeleteDate(context.Background(), date); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	fmt.Println(FormatSuccess(fmt.Sprintf("✅ Deleted all records for %s", date)))
	return nil
}
