package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type MilestoneStatus string

const (
	StatusPending   MilestoneStatus = "pending"
	StatusCompleted MilestoneStatus = "completed"
	StatusPaid      MilestoneStatus = "paid"
)

// Paid is terminal; the status only ever moves forward.
func (s MilestoneStatus) Terminal() bool { return s == StatusPaid }

type Milestone struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	ContractID  snowflake.ID    `gorm:"not null;index" json:"contract_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Status      MilestoneStatus `gorm:"not null;default:pending;index" json:"status"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Milestone) TableName() string { return "milestones" }
