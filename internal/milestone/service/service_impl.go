package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	contractdomain "github.com/hirelink/hirelink/internal/contract/domain"
	"github.com/hirelink/hirelink/internal/milestone/domain"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	DB        *gorm.DB
	Node      *snowflake.Node
	Repo      domain.Repository
	Contracts contractdomain.Repository
}

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	node      *snowflake.Node
	repo      domain.Repository
	contracts contractdomain.Repository
}

func New(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("milestone.service"),
		db:        p.DB,
		node:      p.Node,
		repo:      p.Repo,
		contracts: p.Contracts,
	}
}

func (s *service) Add(ctx context.Context, callerID, contractID snowflake.ID, req domain.AddMilestoneRequest) (*domain.Milestone, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var milestone *domain.Milestone
	err := s.db.Transaction(func(tx *gorm.DB) error {
		contract, err := s.contract(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if callerID != contract.ProviderID {
			return domain.ErrForbidden
		}
		if contract.Status != contractdomain.StatusSigned {
			return fmt.Errorf("%w: contract is %s", domain.ErrInvalidTransition, contract.Status)
		}

		milestone = &domain.Milestone{
			ID:          s.node.Generate(),
			ContractID:  contractID,
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			Amount:      req.Amount,
			Status:      domain.StatusPending,
			DueDate:     req.DueDate,
		}
		return s.repo.Insert(ctx, tx, milestone)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("milestone added",
		zap.Int64("milestone_id", milestone.ID.Int64()),
		zap.Int64("contract_id", contractID.Int64()),
		zap.Int64("amount", milestone.Amount),
	)
	return milestone, nil
}

func (s *service) MarkCompleted(ctx context.Context, callerID, id snowflake.ID) (*domain.Milestone, error) {
	var completed *domain.Milestone
	err := s.db.Transaction(func(tx *gorm.DB) error {
		milestone, contract, err := s.findWithContract(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if callerID != contract.ProviderID {
			return domain.ErrForbidden
		}
		if milestone.Status != domain.StatusPending {
			return domain.TransitionError(milestone.Status)
		}

		now := time.Now()
		milestone.Status = domain.StatusCompleted
		milestone.CompletedAt = &now
		if err := s.repo.Update(ctx, tx, milestone); err != nil {
			return err
		}
		completed = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("milestone completed", zap.Int64("milestone_id", completed.ID.Int64()))
	return completed, nil
}

func (s *service) Delete(ctx context.Context, callerID, id snowflake.ID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		milestone, contract, err := s.findWithContract(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if callerID != contract.ProviderID {
			return domain.ErrForbidden
		}
		if milestone.Status == domain.StatusPaid {
			return domain.ErrMilestonePaid
		}

		active, err := s.repo.CountActivePayments(ctx, tx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: a payment for this milestone is in flight", domain.ErrInvalidTransition)
		}

		// failed attempts reference the milestone; drop them with it so
		// the row can actually go. gateway history stays in payment_callbacks.
		if err := s.repo.DeletePayments(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("milestone deleted", zap.Int64("milestone_id", id.Int64()))
	return nil
}

func (s *service) GetByID(ctx context.Context, callerID, id snowflake.ID) (*domain.Milestone, error) {
	milestone, contract, err := s.findWithContract(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if !contractdomain.PartyOf(callerID, contract).OnContract() {
		return nil, domain.ErrForbidden
	}
	return milestone, nil
}

func (s *service) ListByContract(ctx context.Context, callerID, contractID snowflake.ID) ([]domain.Milestone, error) {
	contract, err := s.contract(ctx, s.db, contractID)
	if err != nil {
		return nil, err
	}
	if !contractdomain.PartyOf(callerID, contract).OnContract() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByContract(ctx, s.db, contractID)
}

func (s *service) contract(ctx context.Context, tx *gorm.DB, contractID snowflake.ID) (*contractdomain.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, tx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return contract, nil
}

func (s *service) findWithContract(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Milestone, *contractdomain.Contract, error) {
	var (
		milestone *domain.Milestone
		err       error
	)
	if forUpdate {
		milestone, err = s.repo.FindByIDForUpdate(ctx, tx, id)
	} else {
		milestone, err = s.repo.FindByID(ctx, tx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}

	contract, err := s.contract(ctx, tx, milestone.ContractID)
	if err != nil {
		return nil, nil, err
	}
	return milestone, contract, nil
}
