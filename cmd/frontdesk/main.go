package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/audit"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/internal/booking"
	"github.com/smallbiznis/frontdesk/internal/checkout"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/migration"
	"github.com/smallbiznis/frontdesk/internal/observability"
	"github.com/smallbiznis/frontdesk/internal/pricing"
	"github.com/smallbiznis/frontdesk/internal/receipt"
	"github.com/smallbiznis/frontdesk/internal/room"
	"github.com/smallbiznis/frontdesk/internal/server"
	"github.com/smallbiznis/frontdesk/internal/settings"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Stores
		settings.Module,
		room.Module,
		audit.Module,
		authorization.Module,

		// Front desk
		pricing.Module,
		booking.Module,
		checkout.Module,
		receipt.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
