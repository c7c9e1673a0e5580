package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/config"
	"github.com/smallbiznis/punchcard/internal/lock"
	"github.com/smallbiznis/punchcard/internal/logger"
	"github.com/smallbiznis/punchcard/internal/migration"
	"github.com/smallbiznis/punchcard/internal/scheduler"
	"github.com/smallbiznis/punchcard/internal/server"
	"github.com/smallbiznis/punchcard/internal/telemetry"
	"github.com/smallbiznis/punchcard/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,

		// Functional domains
		server.Module,
		scheduler.Module,
		migration.Module,
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
