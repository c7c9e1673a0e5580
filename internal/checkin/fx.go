package checkin

import (
	"github.com/smallbiznis/punchcard/internal/checkin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkin",
	fx.Provide(service.New),
)
