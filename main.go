package main

import (
	"os"

	"go.uber.org/zap"

	"legal-revision-engine/cmd"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cmd.NewRootCommand().Execute(); err != nil {
		zap.S().Errorf("命令执行失败: %v", err)
		os.Exit(1)
	}
}
