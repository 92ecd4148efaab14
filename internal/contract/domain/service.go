package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrNotFound          = errors.New("contract_not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidParties    = errors.New("invalid_parties")
	ErrInvalidID         = errors.New("invalid_contract_id")
)

// TransitionError wraps ErrInvalidTransition with the contract's current
// status so the caller can resync.
func TransitionError(current ContractStatus) error {
	return fmt.Errorf("%w: contract is %s", ErrInvalidTransition, current)
}

type CreateContractRequest struct {
	ClientID    snowflake.ID      `json:"client_id"`
	ProviderID  snowflake.ID      `json:"provider_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	TotalAmount *int64            `json:"total_amount"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type UpdateContractRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	TotalAmount *int64            `json:"total_amount"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

type Service interface {
	Create(ctx context.Context, callerID snowflake.ID, req CreateContractRequest) (*Contract, error)
	GetByID(ctx context.Context, callerID, id snowflake.ID) (*Contract, error)
	UpdateDetails(ctx context.Context, callerID, id snowflake.ID, req UpdateContractRequest) (*Contract, error)
	Send(ctx context.Context, callerID, id snowflake.ID) (*Contract, error)
	Sign(ctx context.Context, callerID, id snowflake.ID) (*Contract, error)
	Cancel(ctx context.Context, callerID, id snowflake.ID) (*Contract, error)
	Complete(ctx context.Context, callerID, id snowflake.ID) (*Contract, error)
}
