package payment

import (
	"go.uber.org/fx"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/payment/domain"
	"github.com/hirelink/hirelink/internal/payment/gateways"
	"github.com/hirelink/hirelink/internal/payment/gateways/cardlink"
	"github.com/hirelink/hirelink/internal/payment/gateways/payhop"
	"github.com/hirelink/hirelink/internal/payment/reconcile"
	"github.com/hirelink/hirelink/internal/payment/repository"
	"github.com/hirelink/hirelink/internal/payment/service"
)

func newRegistry(holder *config.GatewaysConfigHolder, card *cardlink.Gateway, hop *payhop.Gateway) *gateways.Registry {
	cfg := holder.Get()
	enabled := make([]domain.Gateway, 0, 2)
	if cfg.Cardlink.Enabled {
		enabled = append(enabled, card)
	}
	if cfg.Payhop.Enabled {
		enabled = append(enabled, hop)
	}
	return gateways.NewRegistry(enabled...)
}

var Module = fx.Module("payment",
	fx.Provide(
		repository.New,
		cardlink.New,
		payhop.New,
		newRegistry,
		reconcile.New,
		service.New,
	),
)
