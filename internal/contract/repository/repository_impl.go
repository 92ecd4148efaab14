package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/contract/domain"
	"github.com/hirelink/hirelink/pkg/db"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, contract *domain.Contract) error {
	return tx.WithContext(ctx).Create(contract).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	return r.find(ctx, tx, id, "")
}

func (r *repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	return r.find(ctx, tx, id, db.LockSuffix(tx))
}

func (r *repository) find(ctx context.Context, tx *gorm.DB, id snowflake.ID, suffix string) (*domain.Contract, error) {
	var contract domain.Contract
	err := tx.WithContext(ctx).
		Raw(`SELECT * FROM contracts WHERE id = ?`+suffix, id).
		Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, contract *domain.Contract) error {
	contract.UpdatedAt = time.Now()
	return tx.WithContext(ctx).Save(contract).Error
}

func (r *repository) CountUnpaidMilestones(ctx context.Context, tx *gorm.DB, contractID snowflake.ID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM milestones WHERE contract_id = ? AND status != 'paid'`, contractID).
		Scan(&count).Error
	return count, err
}
