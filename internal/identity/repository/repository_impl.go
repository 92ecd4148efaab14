package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/identity/domain"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

func (r *repository) FindSession(ctx context.Context, db *gorm.DB, token string) (*domain.Session, error) {
	var sess domain.Session
	err := db.WithContext(ctx).
		Raw(`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token).
		Scan(&sess).Error
	if err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return &sess, nil
}

func (r *repository) FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Raw(`SELECT id, name, email, created_at FROM users WHERE id = ?`, id).
		Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *repository) FindTradesmanProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.TradesmanProfile, error) {
	var profile domain.TradesmanProfile
	err := db.WithContext(ctx).
		Raw(`SELECT user_id, trade, location, created_at FROM tradesman_profiles WHERE user_id = ?`, userID).
		Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.UserID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}
