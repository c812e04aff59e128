package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/models"
)

var (
	historyFrom      string
	historyTo        string
	historyThreshold int
)

var historyCmd = &cobra.Command{
	Use:   "history [bot-id]",
	Short: "Show recorded history",
	Long:  `Display a bot's recorded totals, deltas, and ranks over a date range. With --threshold and no bot ID, shows the daily top-N counts instead.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "start date (YYYY-MM-DD, inclusive)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "end date (YYYY-MM-DD, inclusive)")
	historyCmd.Flags().IntVar(&historyThreshold, "threshold", 0, "show top-N counts for this threshold instead of a bot series")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	from := historyFrom
	if from == "" {
		from = "0001-01-01"
	}
	to := historyTo
	if to == "" {
		to = time.Now().UTC().Format(models.DateFormat)
	}

	if historyThreshold > 0 {
		return showTopNHistory(ctx, historyThreshold, from, to)
	}

	if len(args) == 0 {
		return fmt.Errorf("a bot ID is required (or use --threshold for top-N counts)")
	}
	return showBotHistory(ctx, args[0], from, to)
}

func showBotHistory(ctx context.Context, botID, from, to string) error {
	totals, err := store.ReadRange(ctx, botID, from, to)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	ranks, err := store.ReadRankRange(ctx, botID, from, to)
	if err != nil {
		return fmt.Errorf("failed to read rank history: %w", err)
	}

	rankByDate := make(map[string]*int, len(ranks))
	for _, r := range ranks {
		rankByDate[r.Date] = r.Rank
	}

	fmt.Println(FormatHeader(fmt.Sprintf("📜 History for %s", botID)))
	fmt.Println()

	if len(totals) == 0 {
		fmt.Println(FormatDim("No records in the given range."))
		return nil
	}

	for _, rec := range totals {
		rank := FormatDim("unranked")
		if r, ok := rankByDate[rec.Date]; ok && r != nil {
			rank = FormatCountLabel("rank", *r)
		}
		delta := fmt.Sprintf("%+d", rec.Delta)
		fmt.Printf("%s  %s %s  %s\n",
			FormatLabel(rec.Date),
			FormatValue(fmt.Sprintf("%d msgs", rec.Total)),
			FormatSecondary(delta),
			rank)
	}

	return nil
}

func showTopNHistory(ctx context.Context, threshold int, from, to string) error {
	counts, err := store.ReadTopNRange(ctx, threshold, from, to)
	if err != nil {
		return fmt.Errorf("failed to read top-N history: %w", err)
	}

	fmt.Println(FormatHeader(fmt.Sprintf("🏆 Bots in top %d", threshold)))
	fmt.Println()

	if len(counts) == 0 {
		fmt.Println(FormatDim("No records in the given range."))
		return nil
	}

	for _, rec := range counts {
		fmt.Printf("%s  %s\n", FormatLabel(rec.Date), FormatCount(rec.Count))
	}

	return nil
}
