package migration

import (
	"github.com/smallbiznis/talentgate/internal/config"
	"github.com/smallbiznis/talentgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(apply),
)

func apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	dbCfg := db.FromAppConfig(cfg)
	if !dbCfg.IsPostgres() {
		log.Warn("embedded migrations skipped", zap.String("type", dbCfg.Type))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	status, err := Up(sqlDB)
	if err != nil {
		return err
	}
	log.Info("schema ready",
		zap.Uint("version", status.Version),
		zap.Bool("changed", status.Changed),
		zap.Bool("dirty", status.Dirty),
	)
	return nil
}
