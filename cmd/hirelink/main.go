package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/logger"
	"github.com/hirelink/hirelink/internal/migration"
	obsmetrics "github.com/hirelink/hirelink/internal/observability/metrics"
	"github.com/hirelink/hirelink/internal/server"
	"github.com/hirelink/hirelink/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		obsmetrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
