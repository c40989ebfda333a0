package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legal-revision-engine/config"
	"legal-revision-engine/pkg/db"
	"legal-revision-engine/pkg/model"
)

// ReviewService 批量审校服务：从 MySQL 的 tbl_review_task 表读取任务，
// 逐篇运行流水线，把结果与带修订标记的文档树写入 DuckDB 的 review_outcome 表
type ReviewService struct {
	cfg *config.ReviewConfig
}

func NewReviewService(cfg *config.ReviewConfig) *ReviewService {
	if cfg == nil {
		cfg = config.NewDefaultReviewConfig()
	}
	return &ReviewService{cfg: cfg}
}

// RunBatch 批量处理全部待审任务
// 单篇失败只计数并跳过，处理结束输出汇总统计
func (s *ReviewService) RunBatch(ctx context.Context, batchSize int) error {
	if err := s.createOutcomeTable(ctx); err != nil {
		return fmt.Errorf("创建 DuckDB 表失败: %v", err)
	}

	tidb := db.GetTiDB()
	if tidb == nil {
		return fmt.Errorf("MySQL 连接未初始化")
	}

	startTime := time.Now()
	offset := 0
	processed := 0
	errors := 0

	for {
		var tasks []model.ReviewTask
		if err := tidb.WithContext(ctx).
			Order("id").
			Limit(batchSize).
			Offset(offset).
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("查询任务失败: %v", err)
		}
		if len(tasks) == 0 {
			break
		}

		for i := range tasks {
			task := &tasks[i]
			if task.Document.Doc == nil {
				zap.S().Debugf("任务 ID %d: 文档树缺失或不是合法 JSON，跳过", task.ID)
				continue
			}
			if err := s.processAndInsert(ctx, task); err != nil {
				zap.S().Warnf("处理任务 ID %d 失败: %v", task.ID, err)
				errors++
				continue
			}
			processed++
		}

		offset += batchSize
	}

	zap.S().Infof("处理完成: 成功 %d 篇, 失败 %d 篇", processed, errors)
	zap.S().Infof("耗时：%s", time.Since(startTime))
	return nil
}

// createOutcomeTable 创建 DuckDB 结果表
func (s *ReviewService) createOutcomeTable(ctx context.Context) error {
	duckDB := db.GetDuckDBWithContext(ctx)
	if duckDB == nil {
		return fmt.Errorf("DuckDB 连接未初始化")
	}

	// 删除旧表（如果存在），保证表结构跟随代码演进
	if _, err := duckDB.ExecContext(ctx, "DROP TABLE IF EXISTS review_outcome"); err != nil {
		return fmt.Errorf("删除旧表失败: %v", err)
	}

	createTableSQL := `
		CREATE TABLE review_outcome (
			id TEXT PRIMARY KEY,
			task_id TEXT,
			attempted INTEGER,
			applied INTEGER,
			unresolved INTEGER,
			stale INTEGER,
			render_failed INTEGER,
			mean_confidence DOUBLE,
			strategy_stats TEXT,
			revised_tree TEXT,
			error_reason TEXT
		)
	`
	if _, err := duckDB.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("创建表失败: %v", err)
	}

	zap.S().Debug("DuckDB 表创建成功")
	return nil
}

// processAndInsert 对单篇文档运行流水线并把结果写入 DuckDB
// 每篇文档使用独立的流水线实例：实例间不共享状态，树在渲染期间不可并发访问
func (s *ReviewService) processAndInsert(ctx context.Context, task *model.ReviewTask) error {
	outcome := &model.ReviewOutcome{
		ID:     uuid.NewString(),
		TaskID: task.TaskID,
	}

	pipeline := NewPipeline(PipelineOptions{
		Author:          s.cfg.Author,
		ChunkFloor:      s.cfg.ChunkMatchFloor,
		AnchorFloor:     s.cfg.AnchorMatchFloor,
		ValidateFloor:   s.cfg.ValidateFloor,
		MaxChunkChars:   s.cfg.MaxChunkChars,
		MaxSectionChars: s.cfg.MaxSectionChars,
	})

	result, err := pipeline.Run(task.Document.Doc, task.Candidates.Edits)
	if err != nil {
		// 结构性失败：记录原因后照常落库，不中断批次
		outcome.ErrorReason = err.Error()
	} else {
		outcome.Attempted = result.Attempted
		outcome.Applied = result.Applied
		outcome.Unresolved = result.Unresolved
		outcome.Stale = result.Stale
		outcome.RenderFailed = result.RenderFailed
		outcome.MeanConfidence = result.MeanConfidence

		if stats, err := json.Marshal(result.StrategyHits); err == nil {
			outcome.StrategyStats = string(stats)
		}
		if tree, err := json.Marshal(task.Document.Doc); err == nil {
			outcome.RevisedTree = string(tree)
		}
	}

	duckDB := db.GetDuckDBWithContext(ctx)
	if duckDB == nil {
		return fmt.Errorf("DuckDB 连接未初始化")
	}

	insertSQL := `
		INSERT INTO review_outcome (id, task_id, attempted, applied, unresolved,
			stale, render_failed, mean_confidence, strategy_stats, revised_tree, error_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := duckDB.ExecContext(ctx, insertSQL,
		outcome.ID,
		outcome.TaskID,
		outcome.Attempted,
		outcome.Applied,
		outcome.Unresolved,
		outcome.Stale,
		outcome.RenderFailed,
		outcome.MeanConfidence,
		outcome.StrategyStats,
		outcome.RevisedTree,
		outcome.ErrorReason,
	); err != nil {
		return fmt.Errorf("插入结果失败: %v", err)
	}

	return nil
}

// GetOutcomeCount 获取已落库的审校结果数量
func (s *ReviewService) GetOutcomeCount(ctx context.Context) (int64, error) {
	duckDB := db.GetDuckDBWithContext(ctx)
	if duckDB == nil {
		return 0, fmt.Errorf("DuckDB 连接未初始化")
	}

	var count int64
	if err := duckDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_outcome").Scan(&count); err != nil {
		return 0, fmt.Errorf("查询数量失败: %v", err)
	}
	return count, nil
}
