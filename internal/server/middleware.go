package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/hirelink/hirelink/internal/callerctx"
)

// AuthRequired authenticates the bearer token and stores the caller ID on the
// request context for downstream handlers.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		callerID, err := s.identitySvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(callerctx.WithCallerID(c.Request.Context(), callerID))
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func caller(c *gin.Context) (snowflake.ID, bool) {
	return callerctx.CallerIDFromContext(c.Request.Context())
}

// CallbackRateLimit throttles unauthenticated gateway callbacks per
// gateway and source address.
func (s *Server) CallbackRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.callbackLimiter != nil {
			key := fmt.Sprintf("%s:%s", c.Param("gateway"), c.ClientIP())
			if !s.callbackLimiter.Allow(key) {
				AbortWithError(c, ErrRateLimited)
				return
			}
		}
		c.Next()
	}
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, invalidRequestError()
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "invalid identifier")
	}
	return id, nil
}
