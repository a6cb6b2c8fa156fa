package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/apikey"
	"github.com/loyaltyworks/tally/internal/clock"
	"github.com/loyaltyworks/tally/internal/config"
	"github.com/loyaltyworks/tally/internal/customer"
	"github.com/loyaltyworks/tally/internal/events"
	"github.com/loyaltyworks/tally/internal/ledger"
	"github.com/loyaltyworks/tally/internal/logger"
	"github.com/loyaltyworks/tally/internal/migration"
	"github.com/loyaltyworks/tally/internal/pos"
	"github.com/loyaltyworks/tally/internal/possync"
	"github.com/loyaltyworks/tally/internal/program"
	"github.com/loyaltyworks/tally/internal/seed"
	"github.com/loyaltyworks/tally/internal/server"
	"github.com/loyaltyworks/tally/internal/voucher"
	"github.com/loyaltyworks/tally/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			return seed.EnsureDefaults(conn, cfg, genID, log)
		}),

		apikey.Module,
		events.Module,
		customer.Module,
		program.Module,
		ledger.Module,
		voucher.Module,
		pos.Module,
		possync.Module,
		server.Module,
	)
	app.Run()
}
