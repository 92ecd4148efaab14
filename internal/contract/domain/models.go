package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ContractStatus string

const (
	StatusDraft     ContractStatus = "draft"
	StatusSent      ContractStatus = "sent"
	StatusSigned    ContractStatus = "signed"
	StatusCompleted ContractStatus = "completed"
	StatusCancelled ContractStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s ContractStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Contract struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClientID         snowflake.ID      `gorm:"not null;index" json:"client_id"`
	ProviderID       snowflake.ID      `gorm:"not null;index" json:"provider_id"`
	Title            string            `gorm:"not null" json:"title"`
	Description      string            `json:"description,omitempty"`
	StartDate        *time.Time        `json:"start_date,omitempty"`
	EndDate          *time.Time        `json:"end_date,omitempty"`
	TotalAmount      *int64            `json:"total_amount,omitempty"`
	Status           ContractStatus    `gorm:"not null;default:draft;index" json:"status"`
	SignedByClient   bool              `gorm:"not null;default:false" json:"signed_by_client"`
	SignedByProvider bool              `gorm:"not null;default:false" json:"signed_by_provider"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

// Party describes the caller's standing on a contract.
type Party struct {
	IsClient   bool
	IsProvider bool
}

func (p Party) OnContract() bool { return p.IsClient || p.IsProvider }

// PartyOf resolves the caller against the contract's parties of record.
func PartyOf(callerID snowflake.ID, c *Contract) Party {
	return Party{
		IsClient:   callerID == c.ClientID,
		IsProvider: callerID == c.ProviderID,
	}
}
