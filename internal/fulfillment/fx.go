package fulfillment

import (
	"github.com/smallbiznis/talentgate/internal/fulfillment/repository"
	"github.com/smallbiznis/talentgate/internal/fulfillment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fulfillment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewReconciler),
	fx.Provide(NewVerificationRecorder),
	fx.Provide(fx.Annotate(NewWebhookRoute, fx.ResultTags(`group:"webhook_routes"`))),
)
