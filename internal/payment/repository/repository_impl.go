package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/payment/domain"
	"github.com/hirelink/hirelink/pkg/db"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.one(ctx, tx, `SELECT * FROM payments WHERE id = ?`, id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.one(ctx, tx, `SELECT * FROM payments WHERE id = ?`+db.LockSuffix(tx), id)
}

func (r *repository) FindByReferenceForUpdate(ctx context.Context, tx *gorm.DB, gateway, reference string) (*domain.Payment, error) {
	return r.one(ctx, tx,
		`SELECT * FROM payments WHERE gateway = ? AND external_reference = ?`+db.LockSuffix(tx),
		gateway, reference)
}

func (r *repository) FindActiveByMilestone(ctx context.Context, tx *gorm.DB, milestoneID snowflake.ID) (*domain.Payment, error) {
	return r.one(ctx, tx,
		`SELECT * FROM payments WHERE milestone_id = ? AND status IN ('pending', 'processing')`+db.LockSuffix(tx),
		milestoneID)
}

func (r *repository) one(ctx context.Context, tx *gorm.DB, query string, args ...any) (*domain.Payment, error) {
	var payment domain.Payment
	err := tx.WithContext(ctx).Raw(query, args...).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &payment, nil
}

func (r *repository) ListByContract(ctx context.Context, tx *gorm.DB, contractID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := tx.WithContext(ctx).
		Raw(`SELECT * FROM payments WHERE contract_id = ? ORDER BY created_at, id`, contractID).
		Scan(&payments).Error
	return payments, err
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	payment.UpdatedAt = time.Now()
	return tx.WithContext(ctx).Save(payment).Error
}

func (r *repository) InsertCallback(ctx context.Context, tx *gorm.DB, record *domain.CallbackRecord) error {
	return tx.WithContext(ctx).Create(record).Error
}
