package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture one snapshot now",
	Long:  `Fetch your tracked bots and the full trending set, then record today's totals, ranks, and top-N counts. Re-running on the same day overwrites that day's records.`,
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("📸 Capturing snapshot...")

	result, err := sched.CaptureNow(ctx)
	if err != nil {
		return fmt.Errorf("snapshot capture failed: %w", err)
	}

	fmt.Println(FormatSuccess("✅ Snapshot captured"))
	fmt.Println()
	fmt.Println(FormatLabelValue("Date:", result.Date))
	fmt.Println(FormatLabelValue("Run ID:", result.RunID))
	fmt.Println(FormatCountLabel("Tracked bots:", result.TrackedBots))
	fmt.Println(FormatCountLabel("Ranked in trending set:", result.Ranked))
	fmt.Println(FormatCountLabel("Trending set size:", result.SetSize))
	fmt.Println(FormatLabelValue("Duration:", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()))

	return nil
}
