package locate

import (
	"strings"

	"go.uber.org/zap"

	"legal-revision-engine/pkg/index"
	"legal-revision-engine/pkg/model"
)

const (
	defaultChunkFloor      = 80.0
	defaultAnchorFloor     = 70.0
	defaultMaxChunkChars   = 480
	defaultMaxSectionChars = 1200
)

// Options 定位器可调参数
// 置信度下限（块匹配 80、锚点匹配 70）是经验值，按配置对待，不是固定常量
type Options struct {
	ChunkFloor      float64 // 块模糊匹配的置信度下限
	AnchorFloor     float64 // 边界锚点匹配的置信度下限
	MaxChunkChars   int     // 单块最大字符数，超长段落按句子边界细分
	MaxSectionChars int     // 标题锚点匹配时章节跨度的兜底上限
}

func (o *Options) withDefaults() Options {
	out := Options{
		ChunkFloor:      defaultChunkFloor,
		AnchorFloor:     defaultAnchorFloor,
		MaxChunkChars:   defaultMaxChunkChars,
		MaxSectionChars: defaultMaxSectionChars,
	}
	if o == nil {
		return out
	}
	if o.ChunkFloor > 0 {
		out.ChunkFloor = o.ChunkFloor
	}
	if o.AnchorFloor > 0 {
		out.AnchorFloor = o.AnchorFloor
	}
	if o.MaxChunkChars > 0 {
		out.MaxChunkChars = o.MaxChunkChars
	}
	if o.MaxSectionChars > 0 {
		out.MaxSectionChars = o.MaxSectionChars
	}
	return out
}

// span 一个策略落实出的区间与得分
type span struct {
	start      int
	end        int
	confidence float64
}

// Strategy 单个"尝试解析"能力对象
// 定位器按严格顺序尝试，第一个达到自身下限的策略胜出，
// 严格策略永远优先于宽松策略，即使后者可能得分更高
type Strategy interface {
	Name() string
	Resolve(target string, idx *index.Index) (span, bool)
}

// Stats 定位器累计统计，供可观测协作方读取
type Stats struct {
	Attempts        int            `json:"attempts"`
	Hits            int            `json:"hits"`
	HitsByStrategy  map[string]int `json:"hits_by_strategy"`
	totalConfidence float64
}

// MeanConfidence 命中编辑的平均置信度
func (s *Stats) MeanConfidence() float64 {
	if s.Hits == 0 {
		return 0
	}
	return s.totalConfidence / float64(s.Hits)
}

// Locator 条款定位器：把缺少精确坐标的候选编辑落实为 WorkingText 区间
type Locator struct {
	strategies []Strategy
	stats      Stats
}

// NewLocator 按规约顺序装配策略链
func NewLocator(opts *Options) *Locator {
	o := opts.withDefaults()
	return &Locator{
		strategies: []Strategy{
			exactStrategy{},
			caseInsensitiveStrategy{},
			chunkStrategy{floor: o.ChunkFloor, maxChunkChars: o.MaxChunkChars},
			headerAnchorStrategy{maxSectionChars: o.MaxSectionChars},
			boundaryAnchorStrategy{floor: o.AnchorFloor, maxChunkChars: o.MaxChunkChars},
		},
		stats: Stats{HitsByStrategy: make(map[string]int)},
	}
}

// Locate 依次尝试各策略，返回第一个达到下限的解析结果
// 所有策略都未达标是正常结果（false），不是错误
func (l *Locator) Locate(c *model.CandidateEdit, idx *index.Index) (*model.ResolvedEdit, bool) {
	l.stats.Attempts++
	target := c.Target()
	if strings.TrimSpace(target) == "" {
		zap.S().Debugf("候选编辑没有可定位的目标文本，跳过")
		return nil, false
	}
	for _, st := range l.strategies {
		sp, ok := st.Resolve(target, idx)
		if !ok {
			continue
		}
		l.stats.Hits++
		l.stats.HitsByStrategy[st.Name()]++
		l.stats.totalConfidence += sp.confidence
		zap.S().Debugf("策略 %s 命中: span=(%d,%d) 置信度=%.1f", st.Name(), sp.start, sp.end, sp.confidence)
		return &model.ResolvedEdit{
			Candidate:  c,
			Start:      sp.start,
			End:        sp.end,
			Strategy:   st.Name(),
			Confidence: sp.confidence,
		}, true
	}
	return nil, false
}

// Stats 返回当前累计统计的副本
func (l *Locator) Stats() Stats {
	out := l.stats
	out.HitsByStrategy = make(map[string]int, len(l.stats.HitsByStrategy))
	for k, v := range l.stats.HitsByStrategy {
		out.HitsByStrategy[k] = v
	}
	return out
}
