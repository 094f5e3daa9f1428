package checkout

import (
	"github.com/smallbiznis/talentgate/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(service.NewFactory),
	fx.Provide(service.NewVerifier),
)
