package locate

import (
	"strings"
	"testing"

	"legal-revision-engine/pkg/document"
	"legal-revision-engine/pkg/index"
	"legal-revision-engine/pkg/model"
)

func buildIndex(t *testing.T, paragraphs ...string) *index.Index {
	t.Helper()
	doc := &document.Document{}
	for _, text := range paragraphs {
		doc.Paragraphs = append(doc.Paragraphs, &document.Paragraph{
			Runs: []*document.Run{{Text: text}},
		})
	}
	idx, err := index.Build(doc)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

// TestLocateExact 精确子串命中，置信度 100
func TestLocateExact(t *testing.T) {
	idx := buildIndex(t, "The term is two years.")
	l := NewLocator(nil)
	re, ok := l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "two years"}, idx)
	if !ok {
		t.Fatalf("expect hit")
	}
	if re.Start != 12 || re.End != 21 {
		t.Fatalf("span (%d,%d), want (12,21)", re.Start, re.End)
	}
	if re.Strategy != StrategyExact || re.Confidence != 100 {
		t.Fatalf("strategy %s confidence %v", re.Strategy, re.Confidence)
	}
}

// TestLocateCaseInsensitive 大小写不敏感命中，置信度 95
func TestLocateCaseInsensitive(t *testing.T) {
	idx := buildIndex(t, "The term is two years.")
	l := NewLocator(nil)
	re, ok := l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "TWO YEARS"}, idx)
	if !ok {
		t.Fatalf("expect hit")
	}
	if re.Start != 12 || re.End != 21 {
		t.Fatalf("span (%d,%d), want (12,21)", re.Start, re.End)
	}
	if re.Strategy != StrategyCaseInsensitive || re.Confidence != 95 {
		t.Fatalf("strategy %s confidence %v", re.Strategy, re.Confidence)
	}
}

// TestLocatePrecedence 严格策略优先：文本精确存在时绝不落入模糊策略
func TestLocatePrecedence(t *testing.T) {
	idx := buildIndex(t,
		"Payment is due within thirty days.",
		"Payment is due within thirty days of the invoice date.",
	)
	l := NewLocator(nil)
	re, ok := l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "Payment is due within thirty days."}, idx)
	if !ok || re.Strategy != StrategyExact {
		t.Fatalf("expect exact strategy, got %+v", re)
	}
	if re.Start != 0 {
		t.Fatalf("exact match should take the first occurrence, start=%d", re.Start)
	}
}

// TestLocateChunkFuzzy 词序打乱的候选由块模糊策略按段落命中
func TestLocateChunkFuzzy(t *testing.T) {
	idx := buildIndex(t,
		"This Agreement is governed by the laws of the State of Delaware.",
		"The obligations shall survive for a period of 24 months following termination.",
		"All notices must be delivered to the registered office in writing.",
	)
	l := NewLocator(nil)
	re, ok := l.Locate(&model.CandidateEdit{
		Start: -1, End: -1,
		Description: "shall survive obligations for a period of 24 months following termination",
	}, idx)
	if !ok {
		t.Fatalf("expect chunk hit")
	}
	if re.Strategy != StrategyChunk {
		t.Fatalf("strategy %s, want %s", re.Strategy, StrategyChunk)
	}
	if re.Confidence < 80 {
		t.Fatalf("confidence %v below floor", re.Confidence)
	}
	wantStart := strings.Index(idx.WorkingText, "The obligations")
	wantEnd := strings.Index(idx.WorkingText, "termination.") + len("termination.")
	if re.Start != wantStart || re.End != wantEnd {
		t.Fatalf("span (%d,%d), want (%d,%d)", re.Start, re.End, wantStart, wantEnd)
	}
}

// TestChunkStrategySelectsBestParagraph 低下限时仍选中最相近的段落
func TestChunkStrategySelectsBestParagraph(t *testing.T) {
	idx := buildIndex(t,
		"This Agreement is governed by the laws of the State of New York.",
		"The obligations shall survive for a period of 24 months following termination.",
		"Payment is due within thirty days of the invoice date.",
	)
	s := chunkStrategy{floor: 30, maxChunkChars: defaultMaxChunkChars}
	sp, ok := s.Resolve("survive 2 years after end", idx)
	if !ok {
		t.Fatalf("expect hit at floor 30")
	}
	wantStart := strings.Index(idx.WorkingText, "The obligations")
	if sp.start != wantStart {
		t.Fatalf("picked chunk at %d, want %d", sp.start, wantStart)
	}
}

// TestLocateNoneIsNormal 无策略达标返回 false，不是错误
func TestLocateNoneIsNormal(t *testing.T) {
	idx := buildIndex(t, "The term is two years.")
	l := NewLocator(nil)
	if _, ok := l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "zzz qqq xxyzzy unrelated"}, idx); ok {
		t.Fatalf("expect miss")
	}
	if _, ok := l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "   "}, idx); ok {
		t.Fatalf("blank target should miss")
	}
	stats := l.Stats()
	if stats.Attempts != 2 || stats.Hits != 0 {
		t.Fatalf("stats %+v", stats)
	}
}

// TestHeaderAnchorStrategy 标题锚点：标题定位，区间延伸到下一个章节边界
func TestHeaderAnchorStrategy(t *testing.T) {
	idx := buildIndex(t,
		"7. Indemnification",
		"The Supplier shall hold harmless the Buyer from all third party claims.",
		"8. Termination",
		"Either party may terminate this Agreement upon sixty days notice.",
	)
	s := headerAnchorStrategy{maxSectionChars: defaultMaxSectionChars}
	sp, ok := s.Resolve("7. Indemnification: the clause should cap the aggregate liability", idx)
	if !ok {
		t.Fatalf("expect hit")
	}
	wantStart := strings.Index(idx.WorkingText, "7. Indemnification")
	wantEnd := strings.Index(idx.WorkingText, "8. Termination")
	if sp.start != wantStart || sp.end != wantEnd {
		t.Fatalf("span (%d,%d), want (%d,%d)", sp.start, sp.end, wantStart, wantEnd)
	}
	if sp.confidence != 85 {
		t.Fatalf("confidence %v", sp.confidence)
	}

	// 没有下一个标题时退回固定最大长度
	short := headerAnchorStrategy{maxSectionChars: 30}
	sp, ok = short.Resolve("7. Indemnification: rewrite", idx)
	if !ok || sp.end != wantStart+30 {
		t.Fatalf("fallback span (%d,%d)", sp.start, sp.end)
	}

	// 候选没有标题样式的前导短语时不命中
	if _, ok := s.Resolve("the supplier must also insure the goods", idx); ok {
		t.Fatalf("lowercase candidate should miss")
	}
}

// TestBoundaryAnchorStrategy 边界锚点：首摘录包含匹配决定区间
func TestBoundaryAnchorStrategy(t *testing.T) {
	idx := buildIndex(t,
		"This Agreement is governed by the laws of the State of New York.",
		"The Supplier shall indemnify the Buyer against every liability arising from defects in the goods.",
	)
	s := boundaryAnchorStrategy{floor: defaultAnchorFloor, maxChunkChars: defaultMaxChunkChars}
	target := "The Supplier shall indemnify the Buyer against every liability and any regulatory penalties whatsoever without limit"
	sp, ok := s.Resolve(target, idx)
	if !ok {
		t.Fatalf("expect hit")
	}
	wantStart := strings.Index(idx.WorkingText, "The Supplier shall indemnify")
	if sp.start != wantStart {
		t.Fatalf("start %d, want %d", sp.start, wantStart)
	}
	if sp.end > len(idx.WorkingText) || sp.end <= sp.start {
		t.Fatalf("bad end %d", sp.end)
	}
	if sp.confidence < defaultAnchorFloor {
		t.Fatalf("confidence %v below floor", sp.confidence)
	}
}

// TestLocatorStats 统计：尝试数、各策略命中数、平均置信度
func TestLocatorStats(t *testing.T) {
	idx := buildIndex(t, "The term is two years.")
	l := NewLocator(nil)
	l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "two years"}, idx)
	l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "THE TERM"}, idx)
	l.Locate(&model.CandidateEdit{Start: -1, End: -1, Description: "zzz qqq unrelated"}, idx)
	stats := l.Stats()
	if stats.Attempts != 3 || stats.Hits != 2 {
		t.Fatalf("stats %+v", stats)
	}
	if stats.HitsByStrategy[StrategyExact] != 1 || stats.HitsByStrategy[StrategyCaseInsensitive] != 1 {
		t.Fatalf("per-strategy hits %+v", stats.HitsByStrategy)
	}
	if got := stats.MeanConfidence(); got != 97.5 {
		t.Fatalf("mean confidence %v, want 97.5", got)
	}
}
