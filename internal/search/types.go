package search

import (
	"fmt"

	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
)

// SearchQuery is one filter variant within a multi-search request.
type SearchQuery struct {
	Collection string `json:"collection"`
	Query      string `json:"q"`
	QueryBy    string `json:"query_by,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	FilterBy   string `json:"filter_by,omitempty"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
}

// PageResult is one variant's page of normalized records.
type PageResult struct {
	Page      int          // requested page number
	Found     int          // total matches reported by the index
	Bots      []models.Bot // normalized records, source order preserved
	Malformed int          // hits skipped because normalization failed
}

// multiSearchRequest mirrors the index's multi_search wire format.
type multiSearchRequest struct {
	Searches []SearchQuery `json:"searches"`
}

type multiSearchResponse struct {
	Results []struct {
		Found int `json:"found"`
		Page  int `json:"page"`
		Hits  []struct {
			Document map[string]interface{} `json:"document"`
		} `json:"hits"`
	} `json:"results"`
}

// parseDocument normalizes one raw hit document into a Bot. The upstream
// schema has drifted over time, so several historical key spellings are
// accepted for each field.
func parseDocument(doc map[string]interface{}) (models.Bot, error) {
	id := pickString(doc, "character_id", "id", "uuid", "slug")
	if id == "" {
		return models.Bot{}, fmt.Errorf("document has no id")
	}

	total, ok := shared.CoerceInt(firstPresent(doc, "num_messages", "messageCount", "message_count"))
	if !ok {
		return models.Bot{}, fmt.Errorf("document %s has no message count", id)
	}

	daily, _ := shared.CoerceInt(firstPresent(doc, "num_messages_24h", "daily_messages"))

	bot := models.Bot{
		ID:            id,
		Name:          pickString(doc, "name", "characterName", "displayName"),
		Title:         pickString(doc, "title", "botTitle", "description"),
		CreatorID:     pickString(doc, "creator_user_id", "creatorUserId"),
		CreatorName:   pickString(doc, "creator_username", "creatorUsername"),
		NumMessages:   total,
		DailyMessages: daily,
		AvatarURL:     pickString(doc, "avatar_url", "avatarUrl"),
		Tags:          pickStrings(doc, "tags"),
	}
	return bot, nil
}

func firstPresent(doc map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func pickString(doc map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := doc[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func pickStrings(doc map[string]interface{}, key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
