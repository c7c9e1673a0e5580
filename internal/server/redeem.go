package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
)

type redeemRequest struct {
	CardID     string `json:"loyalty_card_id"`
	CustomerID string `json:"customer_id"`
	Tier       int    `json:"tier"`
}

func (s *Server) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tier := req.Tier
	if tier == 0 {
		tier = 1
	}

	resp, err := s.redemptionSvc.Redeem(c.Request.Context(), redemptiondomain.RedeemRequest{
		CardID:     strings.TrimSpace(req.CardID),
		CustomerID: strings.TrimSpace(req.CustomerID),
		Tier:       tier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordRedemption(resp.Redemption.Tier)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
