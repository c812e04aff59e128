package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
	"github.com/botlens/botlens/internal/trending"
)

// Trending endpoint

// getTrending handles GET /api/v1/trending
//
// Query parameters: and, not (comma-separated tag lists), creator, sort
// (rank|messages|creator), order (asc|desc), page, page_size, fresh
// (bypass the cached set and re-aggregate). Bad filter input is clamped
// or ignored, never rejected.
func (s *Server) getTrending(c *gin.Context) {
	fresh := false
	if v := shared.ParseBoolQuery(c, "fresh"); v != nil {
		fresh = *v
	}

	set, err := s.currentSet(c.Request.Context(), fresh)
	if err != nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "Trending set unavailable: "+err.Error())
		return
	}

	state := models.FilterState{
		AndTags:  splitTags(c.Query("and")),
		NotTags:  splitTags(c.Query("not")),
		Creator:  c.Query("creator"),
		SortKey:  c.Query("sort"),
		Desc:     strings.EqualFold(c.Query("order"), "desc"),
		Page:     shared.ParseIntQuery(c, "page", 1),
		PageSize: shared.ParseIntQuery(c, "page_size", trending.DefaultPageSize),
	}

	result := trending.Query(set, state)

	s.successResponse(c, map[string]interface{}{
		"fetched_at":     set.FetchedAt,
		"set_size":       set.Size(),
		"entries":        result.Entries,
		"total_matched":  result.TotalMatched,
		"page":           result.Page,
		"total_pages":    result.TotalPages,
		"tag_counts":     result.TagCounts,
		"creator_counts": result.CreatorCounts,
	})
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
