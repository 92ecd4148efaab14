package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/hirelink/hirelink/internal/payment/domain"
)

// HandleGatewayCallback ingests an asynchronous gateway notification. The
// response is always 200 once the payload verifies, so gateways stop
// retrying even when the reference is unknown or already settled.
func (s *Server) HandleGatewayCallback(c *gin.Context) {
	name := strings.TrimSpace(c.Param("gateway"))
	gateway, err := s.registry.Get(name)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	event, err := gateway.ParseCallback(c.Request)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		if errors.Is(err, paymentdomain.ErrInvalidPayload) || errors.Is(err, paymentdomain.ErrInvalidSignature) {
			AbortWithError(c, invalidRequestError())
			return
		}
		AbortWithError(c, err)
		return
	}

	result, err := s.reconciler.Reconcile(c.Request.Context(), gateway.Name(), event.Reference, event.Status)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(result)})
}
