package webhook

import (
	"github.com/smallbiznis/talentgate/internal/webhook/repository"
	"github.com/smallbiznis/talentgate/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewDispatcher),
	fx.Provide(service.NewGateway),
)
