package models

import (
	"time"
)

// Core domain models

// DateFormat is the canonical stamp used for all date-keyed history rows.
const DateFormat = "2006-01-02"

// Bot represents one item as returned by the external search index.
// A Bot is immutable for the lifetime of the fetch cycle that produced it;
// the whole set is replaced wholesale on the next aggregation.
type Bot struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Title         string   `json:"title,omitempty"`
	CreatorID     string   `json:"creator_id,omitempty"`
	CreatorName   string   `json:"creator_name,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	NumMessages   int64    `json:"num_messages"`
	DailyMessages int64    `json:"daily_messages,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`

	// AvatarNormalized is false when the raw avatar URL could not be
	// rewritten to the canonical CDN form. The bot is kept either way.
	AvatarNormalized bool `json:"avatar_normalized"`
}

// TrendingEntry is a Bot plus its 1-based global rank within the merged
// search ordering. Rank spans all pages, not one.
type TrendingEntry struct {
	Bot
	Rank int `json:"rank"`
	Page int `json:"page"`
}

// TrendingSet is the full merged trending result for one base filter,
// bounded to Capacity entries with no duplicate bot IDs. Entries are
// ordered strictly by ascending rank.
type TrendingSet struct {
	BaseFilter string          `json:"base_filter"`
	Capacity   int             `json:"capacity"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Entries    []TrendingEntry `json:"entries"`
}

// Size returns the number of entries in the set.
func (s *TrendingSet) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// RankOf returns the global rank for a bot ID, or 0 if the bot is not in
// the set.
func (s *TrendingSet) RankOf(botID string) int {
	if s == nil {
		return 0
	}
	for _, e := range s.Entries {
		if e.ID == botID {
			return e.Rank
		}
	}
	return 0
}

// Sort keys accepted by the filter engine. Anything else falls back to
// SortRank.
const (
	SortRank     = "rank"
	SortMessages = "messages"
	SortCreator  = "creator"
)

// FilterState captures one interactive query against a TrendingSet.
// It is derived per request and never persisted.
type FilterState struct {
	AndTags  []string `json:"and_tags,omitempty"`
	NotTags  []string `json:"not_tags,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	SortKey  string   `json:"sort_key,omitempty"`
	Desc     bool     `json:"desc,omitempty"`
	Page     int      `json:"page,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// TagCount is a tag and the number of entries carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CreatorCount is a creator name and the number of their entries.
type CreatorCount struct {
	Creator string `json:"creator"`
	Count   int    `json:"count"`
}

// QueryResult is one page of filtered trending entries plus the facet
// counts derived from the same filtering pass.
type QueryResult struct {
	Entries       []TrendingEntry `json:"entries"`
	TotalMatched  int             `json:"total_matched"`
	Page          int             `json:"page"`
	TotalPages    int             `json:"total_pages"`
	TagCounts     []TagCount      `json:"tag_counts"`
	CreatorCounts []CreatorCount  `json:"creator_counts"`
}

// TrackedBot is one of the user's own bots as returned by the account API.
type TrackedBot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	NumMessages int64  `json:"num_messages"`
	CreatorID   string `json:"creator_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
