package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		ctx := context.Background()
		if err := EnsureRoomTypes(ctx, conn); err != nil {
			return err
		}
		if cfg.SeedRooms {
			if err := EnsureDemoRooms(ctx, conn, node, clk.Now()); err != nil {
				return err
			}
		}
		log.Named("migrations").Info("schema ready", zap.String("type", cfg.DBType), zap.Bool("seed_rooms", cfg.SeedRooms))
		return nil
	}),
)
