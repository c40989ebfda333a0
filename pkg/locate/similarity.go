package locate

import (
	"sort"
	"strings"
	"unicode"
)

// 相似度统一用 0~100 分值表示，与各策略的置信度同刻度

// levenshtein 计算两个 rune 序列的编辑距离（双行 DP）
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			m := prev[j] + 1
			if curr[j-1]+1 < m {
				m = curr[j-1] + 1
			}
			if prev[j-1]+cost < m {
				m = prev[j-1] + cost
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Ratio 字符级相似度：1 - 编辑距离/较长串长度，乘 100
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) > n {
		n = len(rb)
	}
	if n == 0 {
		return 100
	}
	return (1 - float64(levenshtein(ra, rb))/float64(n)) * 100
}

// TokenSortRatio 词序不敏感相似度：分词、小写、排序后再做字符级比较
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialRatio 包含偏置相似度：needle 对 hay 所有等长窗口取最高字符级相似度
// 片段被更长文本包含时得分接近 100
func PartialRatio(needle, hay string) float64 {
	rn := []rune(strings.ToLower(needle))
	rh := []rune(strings.ToLower(hay))
	if len(rn) == 0 || len(rh) == 0 {
		return 0
	}
	if len(rn) >= len(rh) {
		return (1 - float64(levenshtein(rn, rh))/float64(len(rn))) * 100
	}
	best := 0.0
	for i := 0; i+len(rn) <= len(rh); i++ {
		d := levenshtein(rn, rh[i:i+len(rn)])
		score := (1 - float64(d)/float64(len(rn))) * 100
		if score > best {
			best = score
			if best >= 100 {
				break
			}
		}
	}
	return best
}

// chunkScore 块匹配分值：词序不敏感与包含偏置两种度量取较高者
func chunkScore(needle, chunk string) float64 {
	s := TokenSortRatio(needle, chunk)
	if p := PartialRatio(needle, chunk); p > s {
		s = p
	}
	return s
}

func sortedTokens(s string) string {
	tokens := tokenize(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
