package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hirelink/hirelink/internal/contract/domain"
	identitydomain "github.com/hirelink/hirelink/internal/identity/domain"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	Node     *snowflake.Node
	Repo     domain.Repository
	Identity identitydomain.Service
}

type service struct {
	log      *zap.Logger
	db       *gorm.DB
	node     *snowflake.Node
	repo     domain.Repository
	identity identitydomain.Service
}

func New(p Params) domain.Service {
	return &service{
		log:      p.Log.Named("contract.service"),
		db:       p.DB,
		node:     p.Node,
		repo:     p.Repo,
		identity: p.Identity,
	}
}

func (s *service) Create(ctx context.Context, callerID snowflake.ID, req domain.CreateContractRequest) (*domain.Contract, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	// a client names the provider, a provider names the client
	clientID := req.ClientID
	if clientID == 0 {
		clientID = callerID
	}
	if callerID != clientID && callerID != req.ProviderID {
		return nil, domain.ErrInvalidParties
	}
	if req.ProviderID == 0 || req.ProviderID == clientID {
		return nil, domain.ErrInvalidParties
	}

	if _, err := s.identity.GetTradesmanProfile(ctx, req.ProviderID); err != nil {
		if errors.Is(err, identitydomain.ErrProfileNotFound) {
			return nil, domain.ErrInvalidParties
		}
		return nil, err
	}
	if callerID == req.ProviderID {
		if _, err := s.identity.GetUser(ctx, clientID); err != nil {
			if errors.Is(err, identitydomain.ErrUserNotFound) {
				return nil, domain.ErrInvalidParties
			}
			return nil, err
		}
	}

	contract := &domain.Contract{
		ID:          s.node.Generate(),
		ClientID:    clientID,
		ProviderID:  req.ProviderID,
		Title:       title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalAmount: req.TotalAmount,
		Status:      domain.StatusDraft,
		Metadata:    req.Metadata,
	}

	if err := s.repo.Insert(ctx, s.db, contract); err != nil {
		return nil, err
	}

	s.log.Info("contract created",
		zap.Int64("contract_id", contract.ID.Int64()),
		zap.Int64("client_id", contract.ClientID.Int64()),
		zap.Int64("provider_id", contract.ProviderID.Int64()),
	)
	return contract, nil
}

func (s *service) GetByID(ctx context.Context, callerID, id snowflake.ID) (*domain.Contract, error) {
	contract, err := s.findAuthorized(ctx, s.db, callerID, id, false)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *service) UpdateDetails(ctx context.Context, callerID, id snowflake.ID, req domain.UpdateContractRequest) (*domain.Contract, error) {
	var updated *domain.Contract
	err := s.db.Transaction(func(tx *gorm.DB) error {
		contract, err := s.findAuthorized(ctx, tx, callerID, id, true)
		if err != nil {
			return err
		}
		if callerID != contract.ProviderID {
			return domain.ErrForbidden
		}
		// details freeze once anyone has signed
		if contract.Status.Terminal() || contract.SignedByClient || contract.SignedByProvider {
			return domain.TransitionError(contract.Status)
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return domain.ErrInvalidTitle
			}
			contract.Title = title
		}
		if req.Description != nil {
			contract.Description = *req.Description
		}
		if req.StartDate != nil {
			contract.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			contract.EndDate = req.EndDate
		}
		if req.TotalAmount != nil {
			contract.TotalAmount = req.TotalAmount
		}
		if req.Metadata != nil {
			contract.Metadata = req.Metadata
		}

		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		updated = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Send(ctx context.Context, callerID, id snowflake.ID) (*domain.Contract, error) {
	var sent *domain.Contract
	err := s.db.Transaction(func(tx *gorm.DB) error {
		contract, err := s.findAuthorized(ctx, tx, callerID, id, true)
		if err != nil {
			return err
		}
		if callerID != contract.ProviderID {
			return domain.ErrForbidden
		}
		if contract.Status != domain.StatusDraft {
			return domain.TransitionError(contract.Status)
		}

		contract.Status = domain.StatusSent
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		sent = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract sent", zap.Int64("contract_id", sent.ID.Int64()))
	return sent, nil
}

func (s *service) Sign(ctx context.Context, callerID, id snowflake.ID) (*domain.Contract, error) {
	var signed *domain.Contract
	err := s.db.Transaction(func(tx *gorm.DB) error {
		contract, err := s.findAuthorized(ctx, tx, callerID, id, true)
		if err != nil {
			return err
		}
		if contract.Status.Terminal() {
			return domain.TransitionError(contract.Status)
		}

		party := domain.PartyOf(callerID, contract)
		switch {
		case party.IsClient && contract.SignedByClient,
			party.IsProvider && contract.SignedByProvider:
			// re-signing is a no-op
			signed = contract
			return nil
		case party.IsClient:
			contract.SignedByClient = true
		case party.IsProvider:
			contract.SignedByProvider = true
		}

		if contract.SignedByClient && contract.SignedByProvider {
			contract.Status = domain.StatusSigned
		}

		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		signed = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract signature recorded",
		zap.Int64("contract_id", signed.ID.Int64()),
		zap.String("status", string(signed.Status)),
	)
	return signed, nil
}

func (s *service) Cancel(ctx context.Context, callerID, id snowflake.ID) (*domain.Contract, error) {
	return s.transition(ctx, callerID, id, domain.StatusCancelled)
}

func (s *service) Complete(ctx context.Context, callerID, id snowflake.ID) (*domain.Contract, error) {
	return s.transition(ctx, callerID, id, domain.StatusCompleted)
}

func (s *service) transition(ctx context.Context, callerID, id snowflake.ID, target domain.ContractStatus) (*domain.Contract, error) {
	var out *domain.Contract
	err := s.db.Transaction(func(tx *gorm.DB) error {
		contract, err := s.findAuthorized(ctx, tx, callerID, id, true)
		if err != nil {
			return err
		}
		if contract.Status.Terminal() {
			return domain.TransitionError(contract.Status)
		}

		switch target {
		case domain.StatusCompleted:
			if contract.Status != domain.StatusSigned {
				return domain.TransitionError(contract.Status)
			}
			// the provider closes out directly; the client only once
			// every milestone has been paid
			if callerID == contract.ClientID {
				unpaid, err := s.repo.CountUnpaidMilestones(ctx, tx, contract.ID)
				if err != nil {
					return err
				}
				if unpaid > 0 {
					return fmt.Errorf("%w: %d milestones not yet paid", domain.ErrInvalidTransition, unpaid)
				}
			}
		case domain.StatusCancelled:
			// either party may cancel any non-terminal contract
		default:
			return domain.ErrInvalidTransition
		}

		contract.Status = target
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		out = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract transitioned",
		zap.Int64("contract_id", out.ID.Int64()),
		zap.String("status", string(out.Status)),
	)
	return out, nil
}

func (s *service) findAuthorized(ctx context.Context, tx *gorm.DB, callerID, id snowflake.ID, forUpdate bool) (*domain.Contract, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}

	var (
		contract *domain.Contract
		err      error
	)
	if forUpdate {
		contract, err = s.repo.FindByIDForUpdate(ctx, tx, id)
	} else {
		contract, err = s.repo.FindByID(ctx, tx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if !domain.PartyOf(callerID, contract).OnContract() {
		return nil, domain.ErrForbidden
	}
	return contract, nil
}
