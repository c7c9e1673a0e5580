package redemption

import (
	"github.com/smallbiznis/punchcard/internal/redemption/repository"
	"github.com/smallbiznis/punchcard/internal/redemption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("redemption.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
