package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, gateway, reference string) (*Payment, error)
	FindActiveByMilestone(ctx context.Context, db *gorm.DB, milestoneID snowflake.ID) (*Payment, error)
	ListByContract(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	InsertCallback(ctx context.Context, db *gorm.DB, record *CallbackRecord) error
}
