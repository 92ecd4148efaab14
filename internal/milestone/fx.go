package milestone

import (
	"go.uber.org/fx"

	"github.com/hirelink/hirelink/internal/milestone/repository"
	"github.com/hirelink/hirelink/internal/milestone/service"
)

var Module = fx.Module("milestone",
	fx.Provide(
		repository.New,
		service.New,
	),
)
