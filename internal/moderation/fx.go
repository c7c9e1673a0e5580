package moderation

import (
	"github.com/smallbiznis/punchcard/internal/moderation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("moderation.service",
	fx.Provide(service.New),
	fx.Provide(NewNotifier),
)
