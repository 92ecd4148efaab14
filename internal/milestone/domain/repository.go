package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, milestone *Milestone) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Milestone, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Milestone, error)
	ListByContract(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Milestone, error)
	Update(ctx context.Context, db *gorm.DB, milestone *Milestone) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountActivePayments(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	DeletePayments(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
