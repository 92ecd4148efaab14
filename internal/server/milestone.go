package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	milestonedomain "github.com/hirelink/hirelink/internal/milestone/domain"
)

type addMilestoneRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	DueDate     *time.Time `json:"due_date"`
}

type updateMilestoneRequest struct {
	Status string `json:"status"`
}

func (s *Server) AddMilestone(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	contractID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.milestoneSvc.Add(c.Request.Context(), callerID, contractID, milestonedomain.AddMilestoneRequest{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMilestone(c *gin.Context) {
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

	var req updateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// the only caller-driven milestone transition is completion; payment
	// settlement owns the move to paid
	if milestonedomain.MilestoneStatus(strings.TrimSpace(req.Status)) != milestonedomain.StatusCompleted {
		AbortWithError(c, newValidationError("status", "invalid_status", "unsupported status"))
		return
	}

	resp, err := s.milestoneSvc.MarkCompleted(c.Request.Context(), callerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMilestone(c *gin.Context) {
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

	if err := s.milestoneSvc.Delete(c.Request.Context(), callerID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
