package trending

import (
	"sort"

	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
)

// DefaultPageSize is used when a query does not request one.
const DefaultPageSize = 48

// Query applies AND/NOT tag filters, the creator filter, sort, and paging
// against one trending set, and derives the facet counts from that same
// set. Grid and sidebar always agree because everything comes out of a
// single filtering pass over a single dataset; the only variation is
// whether the facet being counted takes part in its own narrowing.
//
// Invalid input never fails the read path: unknown sort keys fall back to
// rank, and out-of-range pages clamp to the nearest valid page.
func Query(set *models.TrendingSet, state models.FilterState) models.QueryResult {
	if set == nil {
		set = &models.TrendingSet{}
	}

	andTags := shared.NormalizeAll(state.AndTags)
	notTags := shared.NormalizeAll(state.NotTags)
	creator := shared.Normalize(state.Creator)

	// Step 1: narrow by creator.
	byCreator := set.Entries
	if creator != "" {
		byCreator = make([]models.TrendingEntry, 0, len(set.Entries))
		for _, e := range set.Entries {
			if shared.Normalize(e.CreatorName) == creator {
				byCreator = append(byCreator, e)
			}
		}
	}

	// Tag counts come from the creator-narrowed set before any tag
	// narrowing is applied, so the sidebar shows what each tag choice
	// would yield from the visible universe.
	tagCounts := countTags(byCreator)

	// Step 2: AND tags (superset), then NOT tags (disjoint). A tag listed
	// on both sides yields an empty result: NOT takes precedence.
	matched := make([]models.TrendingEntry, 0, len(byCreator))
	for _, e := range byCreator {
		tags := normalizedTagSet(e.Tags)
		if !containsAll(tags, andTags) {
			continue
		}
		if intersects(tags, notTags) {
			continue
		}
		matched = append(matched, e)
	}

	// Creator counts reflect the filtered grid.
	creatorCounts := countCreators(matched)

	sortEntries(matched, state.SortKey, state.Desc)

	// Paging with clamping; TotalMatched is the pre-slice count.
	pageSize := state.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (len(matched) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := state.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return models.QueryResult{
		Entries:       matched[start:end],
		TotalMatched:  len(matched),
		Page:          page,
		TotalPages:    totalPages,
		TagCounts:     tagCounts,
		CreatorCounts: creatorCounts,
	}
}

func normalizedTagSet(tags []string) map[string]bool {
	out := make(map[string]bool, len(tags))
	for _, t := range tags {
		if n := shared.Normalize(t); n != "" {
			out[n] = true
		}
	}
	return out
}

func containsAll(tags map[string]bool, want []string) bool {
	for _, t := range want {
		if !tags[t] {
			return false
		}
	}
	return true
}

func intersects(tags map[string]bool, avoid []string) bool {
	for _, t := range avoid {
		if tags[t] {
			return true
		}
	}
	return false
}

func countTags(entries []models.TrendingEntry) []models.TagCount {
	counts := make(map[string]int)
	for _, e := range entries {
		for t := range normalizedTagSet(e.Tags) {
			counts[t]++
		}
	}
	out := make([]models.TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, models.TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func countCreators(entries []models.TrendingEntry) []models.CreatorCount {
	counts := make(map[string]int)
	names := make(map[string]string) // normalized -> first display form
	for _, e := range entries {
		n := shared.Normalize(e.CreatorName)
		if n == "" {
			continue
		}
		counts[n]++
		if _, ok := names[n]; !ok {
			names[n] = e.CreatorName
		}
	}
	out := make([]models.CreatorCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, models.CreatorCount{Creator: names[n], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Creator < out[j].Creator
	})
	return out
}

// sortEntries orders by the requested key with a stable tie-break on
// ascending rank. Unknown keys fall back to rank.
func sortEntries(entries []models.TrendingEntry, key string, desc bool) {
	less := func(i, j int) bool { return entries[i].Rank < entries[j].Rank }

	switch key {
	case models.SortMessages:
		less = func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.NumMessages != b.NumMessages {
				if desc {
					return a.NumMessages > b.NumMessages
				}
				return a.NumMessages < b.NumMessages
			}
			return a.Rank < b.Rank
		}
	case models.SortCreator:
		less = func(i, j int) bool {
			a, b := entries[i], entries[j]
			an, bn := shared.Normalize(a.CreatorName), shared.Normalize(b.CreatorName)
			if an != bn {
				if desc {
					return an > bn
				}
				return an < bn
			}
			return a.Rank < b.Rank
		}
	default:
		if desc {
			less = func(i, j int) bool { return entries[i].Rank > entries[j].Rank }
		}
	}

	sort.SliceStable(entries, less)
}
