package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindSession(ctx context.Context, db *gorm.DB, token string) (*Session, error)
	FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindTradesmanProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*TradesmanProfile, error)
}
