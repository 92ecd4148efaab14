package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound          = errors.New("milestone_not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrMilestonePaid     = errors.New("milestone_paid")
)

// TransitionError wraps ErrInvalidTransition with the milestone's current
// status so the caller can resync.
func TransitionError(current MilestoneStatus) error {
	return fmt.Errorf("%w: milestone is %s", ErrInvalidTransition, current)
}

type AddMilestoneRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	DueDate     *time.Time `json:"due_date"`
}

type Service interface {
	Add(ctx context.Context, callerID, contractID snowflake.ID, req AddMilestoneRequest) (*Milestone, error)
	MarkCompleted(ctx context.Context, callerID, id snowflake.ID) (*Milestone, error)
	Delete(ctx context.Context, callerID, id snowflake.ID) error
	GetByID(ctx context.Context, callerID, id snowflake.ID) (*Milestone, error)
	ListByContract(ctx context.Context, callerID, contractID snowflake.ID) ([]Milestone, error)
}
