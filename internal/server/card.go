package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/pkg/db/pagination"
)

func (s *Server) GetCard(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	card, err := s.cardSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	merchant, err := s.merchantSvc.GetByID(c.Request.Context(), card.MerchantID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tier1Redeemed, err := s.cardSvc.Tier1Redeemed(c.Request.Context(), card)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tier := carddomain.DeriveTierState(card.CurrentStamps, carddomain.TierConfigFor(card, merchant), tier1Redeemed)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"card": card,
		"tier": tier,
	}})
}

func (s *Server) ListCardVisits(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cardSvc.History(c.Request.Context(), id, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type adjustStampsRequest struct {
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason"`
}

func (s *Server) AdjustStamps(c *gin.Context) {
	merchantID := strings.TrimSpace(c.Param("id"))

	var req adjustStampsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	merchant, err := s.merchantSvc.GetByID(c.Request.Context(), merchantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cardSvc.Adjust(c.Request.Context(), carddomain.AdjustRequest{
		MerchantID: merchant.ID,
		CardID:     strings.TrimSpace(c.Param("cardId")),
		Adjustment: req.Adjustment,
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
