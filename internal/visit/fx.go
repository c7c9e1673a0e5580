package visit

import (
	"github.com/smallbiznis/punchcard/internal/visit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("visit.ledger",
	fx.Provide(repository.Provide),
)
