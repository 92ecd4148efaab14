package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/identity/domain"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	DB   *gorm.DB
	Repo domain.Repository
}

type service struct {
	log  *zap.Logger
	db   *gorm.DB
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		log:  p.Log.Named("identity.service"),
		db:   p.DB,
		repo: p.Repo,
	}
}

func (s *service) Authenticate(ctx context.Context, token string) (snowflake.ID, error) {
	if token == "" {
		return 0, domain.ErrInvalidSession
	}

	sess, err := s.repo.FindSession(ctx, s.db, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrInvalidSession
		}
		return 0, err
	}

	if time.Now().After(sess.ExpiresAt) {
		return 0, domain.ErrSessionExpired
	}

	return sess.UserID, nil
}

func (s *service) GetUser(ctx context.Context, id snowflake.ID) (domain.User, error) {
	user, err := s.repo.FindUser(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return *user, nil
}

func (s *service) GetTradesmanProfile(ctx context.Context, userID snowflake.ID) (domain.TradesmanProfile, error) {
	profile, err := s.repo.FindTradesmanProfile(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TradesmanProfile{}, domain.ErrProfileNotFound
		}
		return domain.TradesmanProfile{}, err
	}
	return *profile, nil
}
