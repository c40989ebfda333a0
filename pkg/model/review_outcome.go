package model

// ReviewOutcome 表示一次文档审校的结果，存储到 DuckDB
// 软失败（未解析/过期/渲染失败）只记入计数，不会让整篇文档失败
type ReviewOutcome struct {
	ID             string  `json:"id"`              // UUID
	TaskID         string  `json:"task_id"`         // 对应 tbl_review_task 表的 taskId
	Attempted      int     `json:"attempted"`       // 候选编辑总数
	Applied        int     `json:"applied"`         // 成功应用的编辑数
	Unresolved     int     `json:"unresolved"`      // 没有策略达到置信度下限
	Stale          int     `json:"stale"`           // 校验器拒绝（文本已变化）
	RenderFailed   int     `json:"render_failed"`   // 渲染时无法定位或变更目标
	MeanConfidence float64 `json:"mean_confidence"` // 定位器命中平均置信度
	StrategyStats  string  `json:"strategy_stats"`  // 各策略命中计数 JSON
	RevisedTree    string  `json:"revised_tree"`    // 带修订标记的文档树 JSON
	ErrorReason    string  `json:"error_reason"`    // 结构性失败原因（正常时为空）
}

// TableName 指定表名
func (ReviewOutcome) TableName() string {
	return "review_outcome"
}
