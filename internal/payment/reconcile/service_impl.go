package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	milestonedomain "github.com/hirelink/hirelink/internal/milestone/domain"
	"github.com/hirelink/hirelink/internal/observability/metrics"
	"github.com/hirelink/hirelink/internal/payment/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	DB         *gorm.DB
	Node       *snowflake.Node
	Repo       domain.Repository
	Milestones milestonedomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type service struct {
	log        *zap.Logger
	db         *gorm.DB
	node       *snowflake.Node
	repo       domain.Repository
	milestones milestonedomain.Repository
	metrics    *metrics.Metrics
}

func New(p Params) domain.Reconciler {
	return &service{
		log:        p.Log.Named("payment.reconcile"),
		db:         p.DB,
		node:       p.Node,
		repo:       p.Repo,
		milestones: p.Milestones,
		metrics:    p.Metrics,
	}
}

// Reconcile applies one gateway outcome to the ledger. It is safe to call
// with duplicates, with references we never issued, and after the payment
// already reached a terminal state; the first terminal write wins and every
// later notification is acknowledged without effect.
func (s *service) Reconcile(ctx context.Context, gateway, reference string, reported domain.GatewayStatus) (domain.ReconcileResult, error) {
	if !reported.Terminal() {
		return "", domain.ErrEventIgnored
	}

	var result domain.ReconcileResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByReferenceForUpdate(ctx, tx, gateway, reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = domain.ReconcileUnknown
				return s.archive(ctx, tx, gateway, reference, reported, result)
			}
			return err
		}

		if payment.Status.Terminal() {
			result = domain.ReconcileAlreadyFinal
			return s.archive(ctx, tx, gateway, reference, reported, result)
		}

		now := time.Now()
		if reported == domain.GatewayStatusSucceeded {
			payment.Status = domain.StatusCompleted
			payment.CompletedAt = &now
			if err := s.repo.Update(ctx, tx, payment); err != nil {
				return err
			}
			if err := s.payMilestone(ctx, tx, payment.MilestoneID, now); err != nil {
				return err
			}
		} else {
			payment.Status = domain.StatusFailed
			if err := s.repo.Update(ctx, tx, payment); err != nil {
				return err
			}
		}

		result = domain.ReconcileApplied
		return s.archive(ctx, tx, gateway, reference, reported, result)
	})
	if err != nil {
		return "", err
	}

	s.metrics.RecordReconcile(gateway, string(result))
	switch result {
	case domain.ReconcileApplied:
		s.log.Info("reconcile applied",
			zap.String("gateway", gateway),
			zap.String("reference", reference),
			zap.String("reported", string(reported)),
		)
	case domain.ReconcileAlreadyFinal:
		s.log.Info("reconcile skipped, payment already final",
			zap.String("gateway", gateway),
			zap.String("reference", reference),
		)
	case domain.ReconcileUnknown:
		s.log.Warn("reconcile for unknown reference",
			zap.String("gateway", gateway),
			zap.String("reference", reference),
		)
	}
	return result, nil
}

// payMilestone moves the milestone to paid; a milestone may be paid straight
// from pending when the client pays before the provider marks work done.
func (s *service) payMilestone(ctx context.Context, tx *gorm.DB, milestoneID snowflake.ID, now time.Time) error {
	milestone, err := s.milestones.FindByIDForUpdate(ctx, tx, milestoneID)
	if err != nil {
		return err
	}
	if milestone.Status == milestonedomain.StatusPaid {
		return nil
	}
	milestone.Status = milestonedomain.StatusPaid
	if milestone.CompletedAt == nil {
		milestone.CompletedAt = &now
	}
	return s.milestones.Update(ctx, tx, milestone)
}

func (s *service) archive(ctx context.Context, tx *gorm.DB, gateway, reference string, reported domain.GatewayStatus, result domain.ReconcileResult) error {
	return s.repo.InsertCallback(ctx, tx, &domain.CallbackRecord{
		ID:                s.node.Generate(),
		Gateway:           gateway,
		ExternalReference: reference,
		ReportedStatus:    string(reported),
		Result:            string(result),
		ReceivedAt:        time.Now(),
	})
}
