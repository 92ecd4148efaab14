package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("payment_not_found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrPaymentInFlight    = errors.New("payment_in_flight")
	ErrMilestoneNotDue    = errors.New("milestone_not_payable")
	ErrUnknownGateway     = errors.New("unknown_gateway")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrEventIgnored       = errors.New("event_ignored")
)

type InitiatePaymentRequest struct {
	MilestoneID snowflake.ID `json:"milestone_id"`
	Gateway     string       `json:"gateway"`
}

// PaymentIntent is the orchestrator's answer to an initiate call: the
// persisted record plus whatever the gateway needs the client to do next.
type PaymentIntent struct {
	Payment      *Payment `json:"payment"`
	RedirectURL  string   `json:"redirect_url,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
}

type Service interface {
	Initiate(ctx context.Context, callerID snowflake.ID, req InitiatePaymentRequest) (*PaymentIntent, error)
	GetStatus(ctx context.Context, callerID, id snowflake.ID) (*Payment, error)
	ListByContract(ctx context.Context, callerID, contractID snowflake.ID) ([]Payment, error)
	Receipt(ctx context.Context, callerID, id snowflake.ID) ([]byte, error)
}

// ReconcileResult classifies what a notification did.
type ReconcileResult string

const (
	ReconcileApplied      ReconcileResult = "applied"
	ReconcileAlreadyFinal ReconcileResult = "already_final"
	ReconcileUnknown      ReconcileResult = "unknown"
)

// Reconciler is the single funnel through which gateway outcomes reach the
// ledger. Callbacks and status polls both end here.
type Reconciler interface {
	Reconcile(ctx context.Context, gateway, reference string, reported GatewayStatus) (ReconcileResult, error)
}
