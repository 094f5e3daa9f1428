package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentgate/internal/auth"
	"github.com/smallbiznis/talentgate/internal/checkout"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/internal/customer"
	"github.com/smallbiznis/talentgate/internal/fulfillment"
	"github.com/smallbiznis/talentgate/internal/migration"
	"github.com/smallbiznis/talentgate/internal/observability"
	"github.com/smallbiznis/talentgate/internal/payment"
	"github.com/smallbiznis/talentgate/internal/ratelimit"
	"github.com/smallbiznis/talentgate/internal/server"
	"github.com/smallbiznis/talentgate/internal/signup"
	"github.com/smallbiznis/talentgate/internal/subscription"
	"github.com/smallbiznis/talentgate/internal/webhook"
	"github.com/smallbiznis/talentgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,

		// Domains
		payment.Module,
		customer.Module,
		subscription.Module,
		checkout.Module,
		fulfillment.Module,
		webhook.Module,
		auth.Module,
		signup.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
