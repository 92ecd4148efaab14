package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	contractdomain "github.com/hirelink/hirelink/internal/contract/domain"
	identitydomain "github.com/hirelink/hirelink/internal/identity/domain"
	milestonedomain "github.com/hirelink/hirelink/internal/milestone/domain"
	"github.com/hirelink/hirelink/internal/observability/metrics"
	"github.com/hirelink/hirelink/internal/payment/domain"
	"github.com/hirelink/hirelink/internal/payment/gateways"
	"github.com/hirelink/hirelink/internal/providers/pdf"
	"github.com/hirelink/hirelink/internal/ratelimit"
	"github.com/hirelink/hirelink/pkg/db"
)

const (
	paymentCurrency = "GBP"
	initiateLockTTL = 30 * time.Second
)

type Params struct {
	fx.In

	Log        *zap.Logger
	DB         *gorm.DB
	Node       *snowflake.Node
	Repo       domain.Repository
	Milestones milestonedomain.Repository
	Contracts  contractdomain.Repository
	Registry   *gateways.Registry
	Reconciler domain.Reconciler
	Identity   identitydomain.Service
	PDF        *pdf.Provider
	Locker     *ratelimit.Locker `optional:"true"`
	Metrics    *metrics.Metrics  `optional:"true"`
}

type service struct {
	log        *zap.Logger
	db         *gorm.DB
	node       *snowflake.Node
	repo       domain.Repository
	milestones milestonedomain.Repository
	contracts  contractdomain.Repository
	registry   *gateways.Registry
	reconciler domain.Reconciler
	identity   identitydomain.Service
	pdf        *pdf.Provider
	locker     *ratelimit.Locker
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		log:        p.Log.Named("payment.service"),
		db:         p.DB,
		node:       p.Node,
		repo:       p.Repo,
		milestones: p.Milestones,
		contracts:  p.Contracts,
		registry:   p.Registry,
		reconciler: p.Reconciler,
		identity:   p.Identity,
		pdf:        p.PDF,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

func (s *service) Initiate(ctx context.Context, callerID snowflake.ID, req domain.InitiatePaymentRequest) (*domain.PaymentIntent, error) {
	gateway, err := s.registry.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	// best-effort fence; the unique index on active payments is the guarantee
	if s.locker != nil {
		key := ratelimit.MilestoneLockKey(req.MilestoneID.Int64())
		token, ok, lockErr := s.locker.TryLock(ctx, key, initiateLockTTL)
		if lockErr != nil {
			s.log.Warn("initiate lock unavailable", zap.Error(lockErr))
		} else if !ok {
			return nil, domain.ErrPaymentInFlight
		} else {
			defer func() {
				if releaseErr := s.locker.Release(context.WithoutCancel(ctx), key, token); releaseErr != nil {
					s.log.Warn("initiate lock release failed", zap.Error(releaseErr))
				}
			}()
		}
	}

	var payment *domain.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		milestone, err := s.milestones.FindByIDForUpdate(ctx, tx, req.MilestoneID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		contract, err := s.contracts.FindByID(ctx, tx, milestone.ContractID)
		if err != nil {
			return err
		}

		if callerID != contract.ClientID {
			return domain.ErrForbidden
		}
		if contract.Status != contractdomain.StatusSigned {
			return fmt.Errorf("%w: contract is %s", domain.ErrInvalidTransition, contract.Status)
		}
		if milestone.Status == milestonedomain.StatusPaid {
			return domain.ErrMilestoneNotDue
		}

		if _, err := s.repo.FindActiveByMilestone(ctx, tx, milestone.ID); err == nil {
			return domain.ErrPaymentInFlight
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		payment = &domain.Payment{
			ID:          s.node.Generate(),
			MilestoneID: milestone.ID,
			ContractID:  contract.ID,
			ClientID:    contract.ClientID,
			ProviderID:  contract.ProviderID,
			Amount:      milestone.Amount,
			Gateway:     gateway.Name(),
			Status:      domain.StatusPending,
		}
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrPaymentInFlight
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := gateway.OpenSession(ctx, domain.SessionRequest{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  paymentCurrency,
		Reference: payment.ID.String(),
	})
	s.metrics.RecordGatewayRequest(gateway.Name(), "open_session", outcome(err))
	if err != nil {
		// never leave a pending payment with no session behind
		if failErr := s.markFailed(ctx, payment.ID); failErr != nil {
			s.log.Error("orphaned pending payment",
				zap.Int64("payment_id", payment.ID.Int64()),
				zap.Error(failErr),
			)
		}
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			return nil, domain.ErrGatewayUnavailable
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, payment.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusPending {
			payment = current
			return nil
		}
		current.Status = domain.StatusProcessing
		current.ExternalReference = &session.Reference
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		payment = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentOpened(gateway.Name())
	s.log.Info("payment initiated",
		zap.Int64("payment_id", payment.ID.Int64()),
		zap.Int64("milestone_id", payment.MilestoneID.Int64()),
		zap.String("gateway", payment.Gateway),
		zap.String("reference", session.Reference),
	)

	return &domain.PaymentIntent{
		Payment:      payment,
		RedirectURL:  session.RedirectURL,
		ClientSecret: session.ClientSecret,
	}, nil
}

// GetStatus returns the payment and, when it is still in flight,
// opportunistically polls the gateway so a missed callback cannot strand it.
func (s *service) GetStatus(ctx context.Context, callerID, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.findAuthorized(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	if payment.Status.Terminal() || payment.ExternalReference == nil {
		return payment, nil
	}

	gateway, err := s.registry.Get(payment.Gateway)
	if err != nil {
		return payment, nil
	}

	reported, err := gateway.CheckStatus(ctx, *payment.ExternalReference)
	s.metrics.RecordGatewayRequest(gateway.Name(), "check_status", outcome(err))
	if err != nil {
		s.log.Warn("status poll failed",
			zap.Int64("payment_id", payment.ID.Int64()),
			zap.Error(err),
		)
		return payment, nil
	}
	if !reported.Terminal() {
		return payment, nil
	}

	if _, err := s.reconciler.Reconcile(ctx, payment.Gateway, *payment.ExternalReference, reported); err != nil {
		return payment, nil
	}
	return s.findAuthorized(ctx, callerID, id)
}

func (s *service) ListByContract(ctx context.Context, callerID, contractID snowflake.ID) ([]domain.Payment, error) {
	contract, err := s.contracts.FindByID(ctx, s.db, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !contractdomain.PartyOf(callerID, contract).OnContract() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByContract(ctx, s.db, contractID)
}

func (s *service) Receipt(ctx context.Context, callerID, id snowflake.ID) ([]byte, error) {
	payment, err := s.findAuthorized(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: payment is %s", domain.ErrInvalidTransition, payment.Status)
	}

	milestone, err := s.milestones.FindByID(ctx, s.db, payment.MilestoneID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.FindByID(ctx, s.db, payment.ContractID)
	if err != nil {
		return nil, err
	}

	clientName := partyName(ctx, s.identity, payment.ClientID)
	providerName := partyName(ctx, s.identity, payment.ProviderID)

	datePaid := ""
	if payment.CompletedAt != nil {
		datePaid = payment.CompletedAt.Format("2 January 2006")
	}

	return s.pdf.GenerateReceipt(pdf.ReceiptData{
		PaymentID:      payment.ID.String(),
		ContractTitle:  contract.Title,
		MilestoneTitle: milestone.Title,
		ClientName:     clientName,
		ProviderName:   providerName,
		Gateway:        payment.Gateway,
		Amount:         formatAmount(payment.Amount),
		DatePaid:       datePaid,
	})
}

func (s *service) findAuthorized(ctx context.Context, callerID, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if callerID != payment.ClientID && callerID != payment.ProviderID {
		return nil, domain.ErrForbidden
	}
	return payment, nil
}

func (s *service) markFailed(ctx context.Context, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment.Status.Terminal() {
			return nil
		}
		payment.Status = domain.StatusFailed
		return s.repo.Update(ctx, tx, payment)
	})
}

func partyName(ctx context.Context, identity identitydomain.Service, id snowflake.ID) string {
	user, err := identity.GetUser(ctx, id)
	if err != nil {
		return id.String()
	}
	return user.Name
}

func formatAmount(pence int64) string {
	return fmt.Sprintf("£%d.%02d", pence/100, pence%100)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
