package model

import (
	"github.com/spf13/cast"
)

// CandidateEdit 外部分析方提出的候选编辑
// 两种形态：
// 1. 精确形态：携带 WorkingText 坐标 {start, end, original_text, revised_text}（快路径，跳过定位器）
// 2. 描述形态：只有条款描述与建议文本 {description, original_text, revised_text}（走定位器）
// Metadata 为不透明的严重度/置信度元数据，原样透传
type CandidateEdit struct {
	Start        int                    `json:"start"`
	End          int                    `json:"end"`
	OriginalText string                 `json:"original_text"`
	RevisedText  string                 `json:"revised_text"`
	Description  string                 `json:"description,omitempty"`
	InsertAfter  bool                   `json:"insert_after,omitempty"` // 纯插入时锚点前/后意图
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// HasExactSpan 判断候选是否已携带精确坐标
// 带描述的候选一律视为概念形态（描述方通常给不出可靠坐标）
// 纯插入允许 start == end（插入点）
func (c *CandidateEdit) HasExactSpan() bool {
	if c.Description != "" {
		return false
	}
	if c.Start < 0 || c.End < c.Start {
		return false
	}
	return c.End > c.Start || (c.OriginalText == "" && c.RevisedText != "")
}

// Target 定位时使用的目标文本：优先 original_text，缺失时退回描述
func (c *CandidateEdit) Target() string {
	if c.OriginalText != "" {
		return c.OriginalText
	}
	return c.Description
}

// Severity 从不透明元数据中读取严重度（缺失时为空串）
func (c *CandidateEdit) Severity() string {
	return cast.ToString(c.Metadata["severity"])
}

// AnalyzerConfidence 从不透明元数据中读取分析方自报置信度（缺失时为 0）
func (c *CandidateEdit) AnalyzerConfidence() float64 {
	return cast.ToFloat64(c.Metadata["confidence"])
}

// ResolvedEdit 候选编辑加上落实的坐标、解析策略标签与解析置信度
type ResolvedEdit struct {
	Candidate  *CandidateEdit `json:"candidate"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Strategy   string         `json:"strategy"`
	Confidence float64        `json:"confidence"`
}

// DeleteOnly 删除编辑：revised_text 为空
func (e *ResolvedEdit) DeleteOnly() bool {
	return e.Candidate.RevisedText == "" && e.Candidate.OriginalText != ""
}

// InsertOnly 插入编辑：original_text 为空
func (e *ResolvedEdit) InsertOnly() bool {
	return e.Candidate.OriginalText == "" && e.Candidate.RevisedText != ""
}
