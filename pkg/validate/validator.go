package validate

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"legal-revision-engine/pkg/locate"
	"legal-revision-engine/pkg/model"
)

const defaultSimilarityFloor = 80.0

// Validator 跨度校验器：在变更前再次确认编辑的区间仍与当前 WorkingText 吻合
// 纯函数、无状态，只判定不修复
type Validator struct {
	floor float64 // 字符级相似度下限（0~100）
}

// Rejection 一次校验拒绝，带上期望文本与实际文本便于诊断
type Rejection struct {
	Edit     *model.ResolvedEdit
	Expected string
	Actual   string
	Reason   string
}

// New 创建校验器，floor <= 0 时使用默认下限 80
func New(floor float64) *Validator {
	if floor <= 0 {
		floor = defaultSimilarityFloor
	}
	return &Validator{floor: floor}
}

// Validate 校验单个编辑：先查边界，再把区间当前内容与声明的原文比对
// 大小写/空白规范化后完全一致即通过，否则字符级相似度达到下限也通过
// 纯插入编辑（original_text 为空）只查边界，允许 start == end 的插入点
func (v *Validator) Validate(e *model.ResolvedEdit, working string) bool {
	if e == nil || e.Candidate == nil {
		return false
	}
	if e.Candidate.OriginalText == "" {
		return e.Start >= 0 && e.Start <= e.End && e.End <= len(working)
	}
	if e.Start < 0 || e.Start >= e.End || e.End > len(working) {
		return false
	}
	actual := working[e.Start:e.End]
	expected := e.Candidate.OriginalText
	if normalize(actual) == normalize(expected) {
		return true
	}
	return locate.Ratio(normalize(actual), normalize(expected)) >= v.floor
}

// ValidateAll 过滤出通过校验的编辑，逐条记录被拒绝编辑的期望/实际文本
func (v *Validator) ValidateAll(edits []*model.ResolvedEdit, working string) ([]*model.ResolvedEdit, []Rejection) {
	passed := make([]*model.ResolvedEdit, 0, len(edits))
	var rejected []Rejection
	for _, e := range edits {
		if v.Validate(e, working) {
			passed = append(passed, e)
			continue
		}
		if e == nil || e.Candidate == nil {
			rejected = append(rejected, Rejection{Edit: e, Reason: "编辑为空"})
			continue
		}
		rej := Rejection{Edit: e, Expected: e.Candidate.OriginalText, Reason: "区间内容与声明原文不匹配"}
		if e.Start >= 0 && e.Start < e.End && e.End <= len(working) {
			rej.Actual = working[e.Start:e.End]
		} else {
			rej.Reason = "区间越界"
		}
		zap.S().Warnf("编辑校验未通过(%s): 期望 %q 实际 %q", rej.Reason, rej.Expected, rej.Actual)
		rejected = append(rejected, rej)
	}
	return passed, rejected
}

// normalize 小写化并折叠空白，用于宽容比对
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}
