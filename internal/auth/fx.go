package auth

import (
	"github.com/smallbiznis/talentgate/internal/auth/repository"
	"github.com/smallbiznis/talentgate/internal/auth/service"
	"github.com/smallbiznis/talentgate/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(token.Provide),
)
