package subscription

import (
	"github.com/smallbiznis/talentgate/internal/subscription/repository"
	"github.com/smallbiznis/talentgate/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(fx.Annotate(NewWebhookRoute, fx.ResultTags(`group:"webhook_routes"`))),
)
