package merchant

import (
	"github.com/smallbiznis/punchcard/internal/merchant/repository"
	"github.com/smallbiznis/punchcard/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
