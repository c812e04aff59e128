package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
	"github.com/botlens/botlens/internal/trending"
)

var (
	trendingAnd      string
	trendingNot      string
	trendingCreator  string
	trendingSort     string
	trendingDesc     bool
	trendingPage     int
	trendingPageSize int
	trendingFacets   bool
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the current trending list",
	Long:  `Fetch and display the merged trending set, optionally narrowed by tags and creator. Tag filters take comma-separated lists; --not removes a tag even when --and requires it.`,
	RunE:  runTrending,
}

func init() {
	trendingCmd.Flags().StringVar(&trendingAnd, "and", "", "only bots carrying all of these tags (comma-separated)")
	trendingCmd.Flags().StringVar(&trendingNot, "not", "", "exclude bots carrying any of these tags (comma-separated)")
	trendingCmd.Flags().StringVar(&trendingCreator, "creator", "", "only bots by this creator")
	trendingCmd.Flags().StringVar(&trendingSort, "sort", "rank", "sort key: rank, messages, or creator")
	trendingCmd.Flags().BoolVar(&trendingDesc, "desc", false, "reverse the sort order")
	trendingCmd.Flags().IntVar(&trendingPage, "page", 1, "page number")
	trendingCmd.Flags().IntVar(&trendingPageSize, "page-size", trending.DefaultPageSize, "entries per page")
	trendingCmd.Flags().BoolVar(&trendingFacets, "facets", false, "show tag and creator counts")
}

func runTrending(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("🔄 Fetching trending set...")
	set, err := aggregator.Aggregate(ctx, cfg.Search.BaseFilter)
	if err != nil {
		return fmt.Errorf("failed to aggregate trending set: %w", err)
	}

	state := models.FilterState{
		AndTags:  shared.NormalizeSet(trendingAnd),
		NotTags:  shared.NormalizeSet(trendingNot),
		Creator:  trendingCreator,
		SortKey:  trendingSort,
		Desc:     trendingDesc,
		Page:     trendingPage,
		PageSize: trendingPageSize,
	}

	result := trending.Query(set, state)

	fmt.Println()
	fmt.Println(FormatHeader(fmt.Sprintf("📈 Trending (%d matched of %d, page %d/%d)",
		result.TotalMatched, set.Size(), result.Page, result.TotalPages)))
	fmt.Println(FormatMeta(fmt.Sprintf("Fetched at %s", set.FetchedAt.Format("2006-01-02 15:04:05"))))
	fmt.Println()

	if len(result.Entries) == 0 {
		fmt.Println(FormatDim("No bots match the given filters."))
		return nil
	}

	for _, entry := range result.Entries {
		tags := ""
		if len(entry.Tags) > 0 {
			tags = FormatMeta(" [" + strings.Join(entry.Tags, ", ") + "]")
		}
		fmt.Printf("%s %s %s%s\n",
			FormatCount(entry.Rank),
			FormatValue(entry.Name),
			FormatSecondary(fmt.Sprintf("by %s · %d msgs", entry.CreatorName, entry.NumMessages)),
			tags)
	}

	if trendingFacets {
		printFacets(result)
	}

	return nil
}

func printFacets(result models.QueryResult) {
	fmt.Println()
	fmt.Println(FormatHeader("🏷️  Tags"))
	for i, tc := range result.TagCounts {
		if i >= 20 {
			fmt.Println(FormatDim(fmt.Sprintf("... and %d more", len(result.TagCounts)-i)))
			break
		}
		fmt.Printf("  %s\n", FormatCountLabel(tc.Tag, tc.Count))
	}

	fmt.Println()
	fmt.Println(FormatHeader("👤 Creators"))
	for i, cc := range result.CreatorCounts {
		if i >= 20 {
			fmt.Println(FormatDim(fmt.Sprintf("... and %d more", len(result.CreatorCounts)-i)))
			break
		}
		fmt.Printf("  %s\n", FormatCountLabel(cc.Creator, cc.Count))
	}
}
