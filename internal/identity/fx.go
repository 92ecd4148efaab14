package identity

import (
	"go.uber.org/fx"

	"github.com/hirelink/hirelink/internal/identity/repository"
	"github.com/hirelink/hirelink/internal/identity/service"
)

var Module = fx.Module("identity",
	fx.Provide(
		repository.New,
		service.New,
	),
)
