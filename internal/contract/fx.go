package contract

import (
	"go.uber.org/fx"

	"github.com/hirelink/hirelink/internal/contract/repository"
	"github.com/hirelink/hirelink/internal/contract/service"
)

var Module = fx.Module("contract",
	fx.Provide(
		repository.New,
		service.New,
	),
)
