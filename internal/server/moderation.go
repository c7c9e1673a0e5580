package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultModerationPageSize = 50

func (s *Server) ListPendingVisits(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	limit := defaultModerationPageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	visits, err := s.moderationSvc.ListPending(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"visits": visits}})
}

func (s *Server) ConfirmVisit(c *gin.Context) {
	merchantID := strings.TrimSpace(c.Param("id"))
	visitID := strings.TrimSpace(c.Param("visitId"))

	resp, err := s.moderationSvc.Confirm(c.Request.Context(), merchantID, visitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordModeration("confirm")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rejectVisitRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectVisit(c *gin.Context) {
	merchantID := strings.TrimSpace(c.Param("id"))
	visitID := strings.TrimSpace(c.Param("visitId"))

	var req rejectVisitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.moderationSvc.Reject(c.Request.Context(), merchantID, visitID, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordModeration("reject")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
