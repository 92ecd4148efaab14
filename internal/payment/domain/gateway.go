package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// GatewayStatus is the normalized answer a gateway gives about a session,
// whether it arrived by callback or by poll.
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusFailed    GatewayStatus = "failed"
)

func (s GatewayStatus) Terminal() bool {
	return s == GatewayStatusSucceeded || s == GatewayStatusFailed
}

type SessionRequest struct {
	PaymentID snowflake.ID
	Amount    int64
	Currency  string
	Reference string // our payment id rendered for the gateway's metadata
}

// Session is what the gateway hands back when a payment is opened. Exactly
// one of RedirectURL or ClientSecret is set depending on the flow.
type Session struct {
	Reference    string
	RedirectURL  string
	ClientSecret string
}

// CallbackEvent is a gateway notification normalized to our vocabulary.
type CallbackEvent struct {
	Reference string
	Status    GatewayStatus
}

// Gateway adapts one payment provider. Implementations own their wire
// formats and signature schemes; everything past ParseCallback is uniform.
type Gateway interface {
	Name() string
	OpenSession(ctx context.Context, req SessionRequest) (*Session, error)
	CheckStatus(ctx context.Context, reference string) (GatewayStatus, error)
	ParseCallback(r *http.Request) (*CallbackEvent, error)
}
