package card

import (
	"github.com/smallbiznis/punchcard/internal/card/repository"
	"github.com/smallbiznis/punchcard/internal/card/service"
	"go.uber.org/fx"
)

var Module = fx.Module("card.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
