package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusCompleted  PaymentStatus = "completed"
	StatusFailed     PaymentStatus = "failed"
)

// Terminal reports whether the payment can never change again.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payment carries both party ids copied from the contract at creation so
// authorization never needs a join.
type Payment struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	MilestoneID       snowflake.ID  `gorm:"not null;index" json:"milestone_id"`
	ContractID        snowflake.ID  `gorm:"not null;index" json:"contract_id"`
	ClientID          snowflake.ID  `gorm:"not null" json:"client_id"`
	ProviderID        snowflake.ID  `gorm:"not null" json:"provider_id"`
	Amount            int64         `gorm:"not null" json:"amount"`
	Gateway           string        `gorm:"not null" json:"gateway"`
	Status            PaymentStatus `gorm:"not null;default:pending;index" json:"status"`
	ExternalReference *string       `gorm:"uniqueIndex" json:"external_reference,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// CallbackRecord archives every gateway notification we acted on or ignored.
type CallbackRecord struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Gateway           string       `gorm:"not null" json:"gateway"`
	ExternalReference string       `gorm:"not null;index" json:"external_reference"`
	ReportedStatus    string       `gorm:"not null" json:"reported_status"`
	Result            string       `gorm:"not null" json:"result"`
	ReceivedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"received_at"`
}

func (CallbackRecord) TableName() string { return "payment_callbacks" }
