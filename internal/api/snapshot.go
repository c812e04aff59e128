package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botlens/botlens/internal/scheduler"
)

// Snapshot endpoint

// triggerSnapshot handles POST /api/v1/snapshot
func (s *Server) triggerSnapshot(c *gin.Context) {
	result, err := s.sched.CaptureNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrCaptureInProgress) {
			s.errorResponse(c, http.StatusConflict, "A capture is already in progress")
			return
		}
		s.errorResponse(c, http.StatusBadGateway, "Snapshot capture failed: "+err.Error())
		return
	}

	s.successResponse(c, result)
}
