package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	paymentdomain "github.com/hirelink/hirelink/internal/payment/domain"
)

type initiatePaymentRequest struct {
	MilestoneID string `json:"milestone_id"`
	Gateway     string `json:"gateway"`
}

func (s *Server) InitiatePayment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	milestoneID, err := snowflake.ParseString(strings.TrimSpace(req.MilestoneID))
	if err != nil {
		AbortWithError(c, newValidationError("milestone_id", "invalid_milestone_id", "invalid identifier"))
		return
	}

	resp, err := s.paymentSvc.Initiate(c.Request.Context(), callerID, paymentdomain.InitiatePaymentRequest{
		MilestoneID: milestoneID,
		Gateway:     strings.TrimSpace(req.Gateway),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetPayment reports the payment's current state, polling the gateway for
// in-flight payments so a stuck callback cannot leave the caller blind.
func (s *Server) GetPayment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.GetStatus(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentReceipt(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pdfBytes, err := s.paymentSvc.Receipt(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+id.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
