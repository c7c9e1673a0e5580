package migration

import (
	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/config"
	customerdomain "github.com/smallbiznis/punchcard/internal/customer/domain"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	"github.com/smallbiznis/punchcard/internal/seed"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
		if cfg.DBType == "sqlite" {
			// The dev dialect skips versioned migrations.
			if err := conn.AutoMigrate(
				&merchantdomain.Merchant{},
				&merchantdomain.Ban{},
				&customerdomain.Customer{},
				&carddomain.LoyaltyCard{},
				&visitdomain.Visit{},
				&visitdomain.PointAdjustment{},
				&redemptiondomain.Redemption{},
			); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
				return err
			}
		}

		if cfg.SeedDemoMerchant {
			return seed.EnsureDemoMerchant(conn, node)
		}
		return nil
	}),
)
