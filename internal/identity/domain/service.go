package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidSession  = errors.New("invalid_session")
	ErrSessionExpired  = errors.New("session_expired")
	ErrUserNotFound    = errors.New("user_not_found")
	ErrProfileNotFound = errors.New("profile_not_found")
)

// Service resolves caller identity. The platform's account subsystem owns the
// records; the contract core only reads them.
type Service interface {
	Authenticate(ctx context.Context, token string) (snowflake.ID, error)
	GetUser(ctx context.Context, id snowflake.ID) (User, error)
	GetTradesmanProfile(ctx context.Context, userID snowflake.ID) (TradesmanProfile, error)
}
