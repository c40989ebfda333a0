package db

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"legal-revision-engine/config"
)

var tidb *gorm.DB
var tidbOnce sync.Once

// InitTiDB 初始化 MySQL/TiDB 任务库连接
// 配置了只读副本时注册 dbresolver，读请求随机分发到副本
func InitTiDB(cfg *config.GlobalConfig) error {
	if cfg == nil || cfg.DatabaseConfig == nil {
		return fmt.Errorf("数据库配置未设置")
	}

	var err error
	tidbOnce.Do(func() {
		tidb, err = gorm.Open(mysql.Open(cfg.DatabaseConfig.DSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			zap.S().Errorf("连接 MySQL 失败: %v", err)
			return
		}

		if len(cfg.DatabaseConfig.Replicas) > 0 {
			replicas := make([]gorm.Dialector, 0, len(cfg.DatabaseConfig.Replicas))
			for _, dsn := range cfg.DatabaseConfig.Replicas {
				replicas = append(replicas, mysql.Open(dsn))
			}
			if err = tidb.Use(dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			})); err != nil {
				zap.S().Errorf("注册读写分离失败: %v", err)
				return
			}
		}

		sqlDB, dbErr := tidb.DB()
		if dbErr != nil {
			err = dbErr
			zap.S().Errorf("获取底层连接失败: %v", err)
			return
		}
		if err = sqlDB.Ping(); err != nil {
			zap.S().Errorf("MySQL 连接测试失败: %v", err)
			return
		}

		zap.S().Debug("MySQL 初始化完成...")
	})
	return err
}

// GetTiDB 获取任务库连接
func GetTiDB() *gorm.DB {
	return tidb
}
