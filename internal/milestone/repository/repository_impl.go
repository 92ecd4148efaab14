package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/milestone/domain"
	"github.com/hirelink/hirelink/pkg/db"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, milestone *domain.Milestone) error {
	return tx.WithContext(ctx).Create(milestone).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Milestone, error) {
	return r.find(ctx, tx, id, "")
}

func (r *repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Milestone, error) {
	return r.find(ctx, tx, id, db.LockSuffix(tx))
}

func (r *repository) find(ctx context.Context, tx *gorm.DB, id snowflake.ID, suffix string) (*domain.Milestone, error) {
	var milestone domain.Milestone
	err := tx.WithContext(ctx).
		Raw(`SELECT * FROM milestones WHERE id = ?`+suffix, id).
		Scan(&milestone).Error
	if err != nil {
		return nil, err
	}
	if milestone.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &milestone, nil
}

func (r *repository) ListByContract(ctx context.Context, tx *gorm.DB, contractID snowflake.ID) ([]domain.Milestone, error) {
	var milestones []domain.Milestone
	err := tx.WithContext(ctx).
		Raw(`SELECT * FROM milestones WHERE contract_id = ? ORDER BY created_at, id`, contractID).
		Scan(&milestones).Error
	return milestones, err
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, milestone *domain.Milestone) error {
	milestone.UpdatedAt = time.Now()
	return tx.WithContext(ctx).Save(milestone).Error
}

func (r *repository) Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	return tx.WithContext(ctx).Exec(`DELETE FROM milestones WHERE id = ?`, id).Error
}

func (r *repository) CountActivePayments(ctx context.Context, tx *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM payments WHERE milestone_id = ? AND status IN ('pending', 'processing')`, id).
		Scan(&count).Error
	return count, err
}

func (r *repository) DeletePayments(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	return tx.WithContext(ctx).Exec(`DELETE FROM payments WHERE milestone_id = ?`, id).Error
}
