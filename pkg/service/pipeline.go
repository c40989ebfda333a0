package service

import (
	"go.uber.org/zap"

	"legal-revision-engine/pkg/document"
	"legal-revision-engine/pkg/index"
	"legal-revision-engine/pkg/locate"
	"legal-revision-engine/pkg/model"
	"legal-revision-engine/pkg/render"
	"legal-revision-engine/pkg/validate"
)

// 单编辑软失败类别：只计数并留样本，永远不会让整个流水线失败
const (
	FailureUnresolved   = "unresolved"    // 没有定位策略达到置信度下限
	FailureStale        = "stale"         // 校验器拒绝：区间/文本不匹配
	FailureRenderFailed = "render_failed" // 渲染时无法定位或变更目标
)

// maxFailureSamples 每类软失败最多保留的代表性样本数
const maxFailureSamples = 5

// SoftFailure 一条软失败的代表性样本
type SoftFailure struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ReviewResult 一次流水线运行的结果："M 个候选编辑中应用了 N 个"
// 附带剩余编辑的原因，部分质量的输入绝不产生裸失败
type ReviewResult struct {
	Attempted      int            `json:"attempted"`
	Applied        int            `json:"applied"`
	Unresolved     int            `json:"unresolved"`
	Stale          int            `json:"stale"`
	RenderFailed   int            `json:"render_failed"`
	MeanConfidence float64        `json:"mean_confidence"`
	StrategyHits   map[string]int `json:"strategy_hits"`
	Samples        []SoftFailure  `json:"samples,omitempty"`
}

// PipelineOptions 流水线可调参数，均来自配置
type PipelineOptions struct {
	Author          string
	ChunkFloor      float64
	AnchorFloor     float64
	ValidateFloor   float64
	MaxChunkChars   int
	MaxSectionChars int
}

// Pipeline 单文档审校流水线：索引 → 定位/校验（批量）→ 渲染
// 单线程同步操作一棵文档树实例，吞吐靠并行运行多个相互独立的
// 流水线实例获得（每文档一个实例，实例间不共享状态）
type Pipeline struct {
	locator   *locate.Locator
	validator *validate.Validator
	renderer  *render.Renderer
}

// NewPipeline 按配置装配流水线
func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{
		locator: locate.NewLocator(&locate.Options{
			ChunkFloor:      opts.ChunkFloor,
			AnchorFloor:     opts.AnchorFloor,
			MaxChunkChars:   opts.MaxChunkChars,
			MaxSectionChars: opts.MaxSectionChars,
		}),
		validator: validate.New(opts.ValidateFloor),
		renderer:  render.New(opts.Author),
	}
}

// Run 对一篇文档执行完整流水线，就地变更文档树并返回结果
// 只有 StructuralError 会作为错误上浮；所有单编辑失败聚合进结果
func (p *Pipeline) Run(doc *document.Document, candidates []*model.CandidateEdit) (*ReviewResult, error) {
	idx, err := index.Build(doc)
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{Attempted: len(candidates)}

	// 自带精确坐标的候选走快路径，跳过定位器
	resolved := make([]*model.ResolvedEdit, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.HasExactSpan() {
			resolved = append(resolved, &model.ResolvedEdit{
				Candidate:  c,
				Start:      c.Start,
				End:        c.End,
				Strategy:   locate.StrategyExactSpan,
				Confidence: 100,
			})
			continue
		}
		re, ok := p.locator.Locate(c, idx)
		if !ok {
			zap.S().Debugf("候选编辑未解析 (严重度=%q 自报置信度=%.1f): %.60s",
				c.Severity(), c.AnalyzerConfidence(), c.Target())
			result.Unresolved++
			result.addSample(FailureUnresolved, c.Target())
			continue
		}
		resolved = append(resolved, re)
	}

	validated, rejected := p.validator.ValidateAll(resolved, idx.WorkingText)
	result.Stale = len(rejected)
	for _, rej := range rejected {
		result.addSample(FailureStale, "期望 "+rej.Expected+" 实际 "+rej.Actual)
	}

	applied, failed := p.renderer.Apply(doc, idx, validated)
	result.Applied = applied
	result.RenderFailed = len(failed)
	for _, f := range failed {
		result.addSample(FailureRenderFailed, f.Reason)
	}

	stats := p.locator.Stats()
	result.MeanConfidence = stats.MeanConfidence()
	result.StrategyHits = stats.HitsByStrategy

	zap.S().Infof("审校完成: %d 个候选编辑应用 %d 个 (未解析 %d, 过期 %d, 渲染失败 %d)",
		result.Attempted, result.Applied, result.Unresolved, result.Stale, result.RenderFailed)
	return result, nil
}

// Stats 暴露定位器累计统计，供可观测协作方读取
func (p *Pipeline) Stats() locate.Stats {
	return p.locator.Stats()
}

func (r *ReviewResult) addSample(kind, detail string) {
	n := 0
	for _, s := range r.Samples {
		if s.Kind == kind {
			n++
		}
	}
	if n >= maxFailureSamples {
		return
	}
	r.Samples = append(r.Samples, SoftFailure{Kind: kind, Detail: detail})
}
