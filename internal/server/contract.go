package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	contractdomain "github.com/hirelink/hirelink/internal/contract/domain"
	milestonedomain "github.com/hirelink/hirelink/internal/milestone/domain"
	paymentdomain "github.com/hirelink/hirelink/internal/payment/domain"
)

type createContractRequest struct {
	ClientID    string            `json:"client_id"`
	ProviderID  string            `json:"provider_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	TotalAmount *int64            `json:"total_amount"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type updateContractRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	TotalAmount *int64            `json:"total_amount"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type contractView struct {
	*contractdomain.Contract
	Milestones []milestonedomain.Milestone `json:"milestones"`
	Payments   []paymentdomain.Payment     `json:"payments"`
}

func (s *Server) CreateContract(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientID, err := parseOptionalID(req.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid identifier"))
		return
	}
	providerID, err := parseOptionalID(req.ProviderID)
	if err != nil {
		AbortWithError(c, newValidationError("provider_id", "invalid_provider_id", "invalid identifier"))
		return
	}

	resp, err := s.contractSvc.Create(c.Request.Context(), callerID, contractdomain.CreateContractRequest{
		ClientID:    clientID,
		ProviderID:  providerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalAmount: req.TotalAmount,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetContract returns the contract with its milestones and payments so a
// party sees the whole engagement in one call.
func (s *Server) GetContract(c *gin.Context) {
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

	contract, err := s.contractSvc.GetByID(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	milestones, err := s.milestoneSvc.ListByContract(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByContract(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contractView{
		Contract:   contract,
		Milestones: milestones,
		Payments:   payments,
	}})
}

func (s *Server) UpdateContract(c *gin.Context) {
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

	var req updateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.UpdateDetails(c.Request.Context(), callerID, id, contractdomain.UpdateContractRequest{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalAmount: req.TotalAmount,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendContract(c *gin.Context) {
	s.transitionContract(c, s.contractSvc.Send)
}

func (s *Server) SignContract(c *gin.Context) {
	s.transitionContract(c, s.contractSvc.Sign)
}

func (s *Server) CancelContract(c *gin.Context) {
	s.transitionContract(c, s.contractSvc.Cancel)
}

func (s *Server) CompleteContract(c *gin.Context) {
	s.transitionContract(c, s.contractSvc.Complete)
}

func (s *Server) transitionContract(c *gin.Context, op func(ctx context.Context, callerID, id snowflake.ID) (*contractdomain.Contract, error)) {
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

	resp, err := op(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseOptionalID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return snowflake.ParseString(raw)
}
