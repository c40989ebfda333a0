package locate

import (
	"regexp"
	"strings"

	"legal-revision-engine/pkg/index"
)

// 策略命名即解析标签，会随 ResolvedEdit 透传给可观测协作方
const (
	StrategyExactSpan       = "exact-span" // 快路径：候选自带精确坐标，未经过定位器
	StrategyExact           = "exact"
	StrategyCaseInsensitive = "case-insensitive"
	StrategyChunk           = "chunk-fuzzy"
	StrategyHeaderAnchor    = "header-anchor"
	StrategyBoundaryAnchor  = "boundary-anchor"
)

// exactStrategy 精确子串匹配，置信度 100
type exactStrategy struct{}

func (exactStrategy) Name() string { return StrategyExact }

func (exactStrategy) Resolve(target string, idx *index.Index) (span, bool) {
	pos := strings.Index(idx.WorkingText, target)
	if pos < 0 {
		return span{}, false
	}
	return span{start: pos, end: pos + len(target), confidence: 100}, true
}

// caseInsensitiveStrategy 大小写不敏感子串匹配，置信度 95
type caseInsensitiveStrategy struct{}

func (caseInsensitiveStrategy) Name() string { return StrategyCaseInsensitive }

func (caseInsensitiveStrategy) Resolve(target string, idx *index.Index) (span, bool) {
	pos := strings.Index(strings.ToLower(idx.WorkingText), strings.ToLower(target))
	if pos < 0 {
		return span{}, false
	}
	return span{start: pos, end: pos + len(target), confidence: 95}, true
}

// chunkStrategy 块模糊匹配：段落优先切块，词序不敏感打分，取最佳块
// 同策略内平分时偏向更高得分（即先到先得的最高分块）
type chunkStrategy struct {
	floor         float64
	maxChunkChars int
}

func (chunkStrategy) Name() string { return StrategyChunk }

func (s chunkStrategy) Resolve(target string, idx *index.Index) (span, bool) {
	var best span
	found := false
	for _, ch := range splitChunks(idx.WorkingText, s.maxChunkChars) {
		score := chunkScore(target, ch.text)
		if score > best.confidence {
			best = span{start: ch.start, end: ch.end, confidence: score}
			found = true
		}
	}
	if !found || best.confidence < s.floor {
		return span{}, false
	}
	return best, true
}

// titlePattern 候选文本的短前导标题：编号前缀和/或大写起头短语加分隔符
var titlePattern = regexp.MustCompile(`^\s*((?:\d+(?:\.\d+)*[.)]?\s+)?[A-Z][A-Za-z0-9 ,&'()/-]{2,60}?)\s*(?::|;|\.\s|\n|—|--|$)`)

// numberedLinePattern 带编号前缀的段落（"7."、"7.2)" 等）
var numberedLinePattern = regexp.MustCompile(`^\d+(?:\.\d+)*[.)]?\s+[A-Z]`)

// isTitleLine 判断 WorkingText 中某个段落是否像章节标题：
// 带编号前缀，或足够短且每个词都大写起头
func isTitleLine(s string) bool {
	if len(s) > 80 {
		return false
	}
	if numberedLinePattern.MatchString(s) {
		return true
	}
	if len(s) > 60 {
		return false
	}
	words := strings.Fields(strings.TrimRight(s, ".:"))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// headerAnchorStrategy 标题锚点匹配：在候选文本里找出标题样式的前导短语，
// 借助段落边界在 WorkingText 中定位该标题，并把区间延伸到下一个章节边界
// （下一个标题样式段落，否则退回固定最大长度）
type headerAnchorStrategy struct {
	maxSectionChars int
}

func (headerAnchorStrategy) Name() string { return StrategyHeaderAnchor }

func (s headerAnchorStrategy) Resolve(target string, idx *index.Index) (span, bool) {
	m := titlePattern.FindStringSubmatch(target)
	if m == nil {
		return span{}, false
	}
	title := strings.ToLower(strings.TrimSpace(m[1]))
	if title == "" {
		return span{}, false
	}

	paras := paragraphSpans(idx.WorkingText)
	start := -1
	var from int
	for i, p := range paras {
		if strings.HasPrefix(strings.ToLower(p.text), title) {
			start = p.start
			from = i + 1
			break
		}
	}
	if start < 0 {
		return span{}, false
	}

	end := start + s.maxSectionChars
	for _, p := range paras[from:] {
		if isTitleLine(p.text) {
			if p.start < end {
				end = p.start
			}
			break
		}
	}
	if end > len(idx.WorkingText) {
		end = len(idx.WorkingText)
	}
	return span{start: start, end: end, confidence: 85}, true
}

// boundaryAnchorStrategy 边界锚点匹配：取候选文本的首尾摘录，
// 各自用包含偏置相似度模糊匹配，第一个达到下限的摘录决定区间
type boundaryAnchorStrategy struct {
	floor         float64
	maxChunkChars int
}

func (boundaryAnchorStrategy) Name() string { return StrategyBoundaryAnchor }

const anchorExcerptChars = 60

func (s boundaryAnchorStrategy) Resolve(target string, idx *index.Index) (span, bool) {
	chunks := splitChunks(idx.WorkingText, s.maxChunkChars)
	if len(chunks) == 0 {
		return span{}, false
	}

	leading := leadingExcerpt(target, anchorExcerptChars)
	if ch, score, ok := bestPartialChunk(leading, chunks, s.floor); ok {
		end := ch.start + len(target)
		if end > len(idx.WorkingText) {
			end = len(idx.WorkingText)
		}
		return span{start: ch.start, end: end, confidence: score}, true
	}

	trailing := trailingExcerpt(target, anchorExcerptChars)
	if ch, score, ok := bestPartialChunk(trailing, chunks, s.floor); ok {
		start := ch.end - len(target)
		if start < 0 {
			start = 0
		}
		return span{start: start, end: ch.end, confidence: score}, true
	}
	return span{}, false
}

func bestPartialChunk(excerpt string, chunks []chunk, floor float64) (chunk, float64, bool) {
	if strings.TrimSpace(excerpt) == "" {
		return chunk{}, 0, false
	}
	var best chunk
	bestScore := 0.0
	for _, ch := range chunks {
		if score := PartialRatio(excerpt, ch.text); score > bestScore {
			best = ch
			bestScore = score
		}
	}
	if bestScore < floor {
		return chunk{}, 0, false
	}
	return best, bestScore, true
}

// leadingExcerpt 取前 n 个字符，回退到词边界
func leadingExcerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut]
}

// trailingExcerpt 取后 n 个字符，前移到词边界
func trailingExcerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if cut := strings.IndexByte(tail, ' '); cut >= 0 && cut < len(tail)-1 {
		tail = tail[cut+1:]
	}
	return tail
}

// paragraphSpan WorkingText 中一个段落的区间（不含分隔符）
type paragraphSpan struct {
	start int
	end   int
	text  string
}

func paragraphSpans(working string) []paragraphSpan {
	var out []paragraphSpan
	offset := 0
	for offset < len(working) {
		next := strings.IndexByte(working[offset:], '\n')
		var end int
		if next < 0 {
			end = len(working)
		} else {
			end = offset + next
		}
		if end > offset {
			out = append(out, paragraphSpan{start: offset, end: end, text: working[offset:end]})
		}
		if next < 0 {
			break
		}
		offset = end + 1
	}
	return out
}
