package cmd

import (
	"errors"

	"legal-revision-engine/config"
	"legal-revision-engine/pkg/db"
	"legal-revision-engine/pkg/service"
	"legal-revision-engine/pkg/signals"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewReviewCommand() *cobra.Command {
	var configFilePath string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "批量审校文档并渲染修订标记",
		Long:  "从 MySQL 的 tbl_review_task 表读取文档树与候选编辑，逐篇运行 索引→定位/校验→渲染 流水线，把结果与带修订标记的文档树写入 DuckDB",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.TryLoadFromDisk(configFilePath)
			if err != nil {
				zap.S().Errorf("读取本地配置文件错误:%s", err.Error())
				return
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				zap.S().Errorf("本地配置文件验证错误:%s", errors.Join(errs...))
				return
			}

			if cfg.DuckDBConfig == nil {
				zap.S().Error("DuckDB 配置未设置")
				return
			}

			ctx := signals.SetupSignalHandler()

			// 初始化 MySQL
			if err := db.InitTiDB(cfg); err != nil {
				zap.S().Errorf("MySQL 数据库连接错误:%s", err.Error())
				return
			}

			// 初始化 DuckDB
			if err := db.InitDuckDB(cfg.DuckDBConfig); err != nil {
				zap.S().Errorf("DuckDB 连接错误:%s", err.Error())
				return
			}

			// 执行批量审校
			reviewService := service.NewReviewService(cfg.ReviewConfig)
			if err := reviewService.RunBatch(ctx, batchSize); err != nil {
				zap.S().Errorf("审校失败:%s", err.Error())
				return
			}

			// 显示统计信息
			count, err := reviewService.GetOutcomeCount(ctx)
			if err != nil {
				zap.S().Warnf("获取统计信息失败:%s", err.Error())
			} else {
				zap.S().Infof("DuckDB 中已落库的审校结果数量: %d", count)
			}
		},
	}

	cmd.Flags().StringVarP(&configFilePath, "config", "c", "./etc/config.yaml", "配置文件路径")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 100, "批量处理大小")
	return cmd
}
