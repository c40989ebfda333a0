package config

import (
	"github.com/pkg/errors"
)

// ReviewConfig 审校流水线可调参数
// 各置信度下限是经验调出来的，没有推导依据，当配置对待并通过实验校准
type ReviewConfig struct {
	Author           string  `json:"author" yaml:"author"`                     // 修订节点的作者署名
	ChunkMatchFloor  float64 `json:"chunkMatchFloor" yaml:"chunkMatchFloor"`   // 块模糊匹配下限（0~100）
	AnchorMatchFloor float64 `json:"anchorMatchFloor" yaml:"anchorMatchFloor"` // 边界锚点匹配下限（0~100）
	ValidateFloor    float64 `json:"validateFloor" yaml:"validateFloor"`       // 校验器相似度下限（0~100）
	MaxChunkChars    int     `json:"maxChunkChars" yaml:"maxChunkChars"`       // 单块最大字符数
	MaxSectionChars  int     `json:"maxSectionChars" yaml:"maxSectionChars"`   // 标题锚点章节跨度上限
}

func (r *ReviewConfig) Validate() []error {
	var errs = make([]error, 0)
	if r.Author == "" {
		errs = append(errs, errors.Errorf("修订作者署名不能为空"))
	}
	for name, floor := range map[string]float64{
		"chunkMatchFloor":  r.ChunkMatchFloor,
		"anchorMatchFloor": r.AnchorMatchFloor,
		"validateFloor":    r.ValidateFloor,
	} {
		if floor <= 0 || floor > 100 {
			errs = append(errs, errors.Errorf("置信度下限 %s=%v 必须在 (0,100] 内", name, floor))
		}
	}
	if r.MaxChunkChars <= 0 {
		errs = append(errs, errors.Errorf("maxChunkChars 必须为正数"))
	}
	if r.MaxSectionChars <= 0 {
		errs = append(errs, errors.Errorf("maxSectionChars 必须为正数"))
	}
	return errs
}

func NewDefaultReviewConfig() *ReviewConfig {
	return &ReviewConfig{
		Author:           "Legal Revision Engine",
		ChunkMatchFloor:  80,
		AnchorMatchFloor: 70,
		ValidateFloor:    80,
		MaxChunkChars:    480,
		MaxSectionChars:  1200,
	}
}
