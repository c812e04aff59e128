package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
)

// History endpoints

// getBotHistory handles GET /api/v1/bots/:id/history
//
// Optional from/to bound the range (inclusive); from defaults to the
// beginning of time, to defaults to today.
func (s *Server) getBotHistory(c *gin.Context) {
	botID := c.Param("id")
	if botID == "" {
		s.errorResponse(c, http.StatusBadRequest, "Bot ID is required")
		return
	}

	from, to := rangeParams(c)

	totals, err := s.store.ReadRange(c.Request.Context(), botID, from, to)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to read history: "+err.Error())
		return
	}

	ranks, err := s.store.ReadRankRange(c.Request.Context(), botID, from, to)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to read rank history: "+err.Error())
		return
	}

	s.successResponse(c, map[string]interface{}{
		"bot_id": botID,
		"from":   from,
		"to":     to,
		"totals": totals,
		"ranks":  ranks,
	})
}

// getTopN handles GET /api/v1/topn
func (s *Server) getTopN(c *gin.Context) {
	threshold := shared.ParseIntQuery(c, "threshold", 0)
	if threshold <= 0 {
		s.errorResponse(c, http.StatusBadRequest, "A positive threshold is required")
		return
	}

	from, to := rangeParams(c)

	counts, err := s.store.ReadTopNRange(c.Request.Context(), threshold, from, to)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to read top-N history: "+err.Error())
		return
	}

	s.successResponse(c, map[string]interface{}{
		"threshold": threshold,
		"from":      from,
		"to":        to,
		"counts":    counts,
	})
}

func rangeParams(c *gin.Context) (string, string) {
	from := c.Query("from")
	if from == "" {
		from = "0001-01-01"
	}
	to := c.Query("to")
	if to == "" {
		to = time.Now().UTC().Format(models.DateFormat)
	}
	return from, to
}
