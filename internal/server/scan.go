package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkindomain "github.com/smallbiznis/punchcard/internal/checkin/domain"
)

type scanRequest struct {
	ScanCode  string `json:"scan_code"`
	Phone     string `json:"phone_number"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Points    int    `json:"points"`
	Auto      bool   `json:"auto"`

	CheckedInToday bool   `json:"checked_in_today"`
	LastScanDate   string `json:"last_scan_date"`
}

func (s *Server) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ScanCode) == "" {
		AbortWithError(c, newValidationError("scan_code", "invalid_scan_code", "scan code is required"))
		return
	}

	resp, err := s.checkInSvc.CheckIn(c.Request.Context(), checkindomain.CheckInRequest{
		ScanCode:  strings.TrimSpace(req.ScanCode),
		Phone:     strings.TrimSpace(req.Phone),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Points:    req.Points,
		Auto:      req.Auto,
		Session: checkindomain.ClientSessionContext{
			CheckedInToday: req.CheckedInToday,
			LastScanDate:   strings.TrimSpace(req.LastScanDate),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordCheckIn(string(resp.Status))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type undoScanRequest struct {
	VisitID    string `json:"visit_id"`
	CustomerID string `json:"customer_id"`
}

func (s *Server) UndoScan(c *gin.Context) {
	var req undoScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkInSvc.Undo(c.Request.Context(), checkindomain.UndoRequest{
		VisitID:    strings.TrimSpace(req.VisitID),
		CustomerID: strings.TrimSpace(req.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
