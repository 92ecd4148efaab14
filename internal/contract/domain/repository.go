package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	Update(ctx context.Context, db *gorm.DB, contract *Contract) error
	CountUnpaidMilestones(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (int64, error)
}
