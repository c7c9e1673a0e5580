package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
)

type createMerchantRequest struct {
	Name                   string `json:"name"`
	ScanCode               string `json:"scan_code"`
	Timezone               string `json:"timezone"`
	ContactEmail           string `json:"contact_email"`
	StampsRequired         int    `json:"stamps_required"`
	RewardDescription      string `json:"reward_description"`
	Tier2Enabled           bool   `json:"tier2_enabled"`
	Tier2StampsRequired    int    `json:"tier2_stamps_required"`
	Tier2RewardDescription string `json:"tier2_reward_description"`
}

func (s *Server) CreateMerchant(c *gin.Context) {
	var req createMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.merchantSvc.Create(c.Request.Context(), merchantdomain.CreateMerchantRequest{
		Name:                   strings.TrimSpace(req.Name),
		ScanCode:               strings.TrimSpace(req.ScanCode),
		Timezone:               strings.TrimSpace(req.Timezone),
		ContactEmail:           strings.TrimSpace(req.ContactEmail),
		StampsRequired:         req.StampsRequired,
		RewardDescription:      strings.TrimSpace(req.RewardDescription),
		Tier2Enabled:           req.Tier2Enabled,
		Tier2StampsRequired:    req.Tier2StampsRequired,
		Tier2RewardDescription: strings.TrimSpace(req.Tier2RewardDescription),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMerchant(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.merchantSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLoyaltyConfigRequest struct {
	StampsRequired         int    `json:"stamps_required"`
	RewardDescription      string `json:"reward_description"`
	Tier2Enabled           bool   `json:"tier2_enabled"`
	Tier2StampsRequired    int    `json:"tier2_stamps_required"`
	Tier2RewardDescription string `json:"tier2_reward_description"`
}

func (s *Server) UpdateLoyaltyConfig(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateLoyaltyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.merchantSvc.UpdateLoyaltyConfig(c.Request.Context(), merchantdomain.UpdateLoyaltyConfigRequest{
		MerchantID:             id,
		StampsRequired:         req.StampsRequired,
		RewardDescription:      strings.TrimSpace(req.RewardDescription),
		Tier2Enabled:           req.Tier2Enabled,
		Tier2StampsRequired:    req.Tier2StampsRequired,
		Tier2RewardDescription: strings.TrimSpace(req.Tier2RewardDescription),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type banCustomerRequest struct {
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

func (s *Server) BanCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req banCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.merchantSvc.Ban(c.Request.Context(), merchantdomain.BanRequest{
		MerchantID: id,
		CustomerID: strings.TrimSpace(req.CustomerID),
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"banned": true}})
}

func (s *Server) UnbanCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	customerID := strings.TrimSpace(c.Param("customerId"))

	if err := s.merchantSvc.Unban(c.Request.Context(), id, customerID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"banned": false}})
}
