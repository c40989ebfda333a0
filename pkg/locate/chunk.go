package locate

import (
	"strings"
)

// chunk WorkingText 中一段有界的候选区间
type chunk struct {
	start int
	end   int
	text  string
}

// splitChunks 把 WorkingText 切成有界块：段落优先，超长段落再按句子边界细分
// 块的偏移始终落在 WorkingText 坐标系内
func splitChunks(working string, maxChars int) []chunk {
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	var chunks []chunk
	offset := 0
	for offset < len(working) {
		next := strings.IndexByte(working[offset:], '\n')
		var para string
		var end int
		if next < 0 {
			para = working[offset:]
			end = len(working)
		} else {
			para = working[offset : offset+next]
			end = offset + next + 1
		}
		if strings.TrimSpace(para) != "" {
			if len(para) <= maxChars {
				chunks = append(chunks, chunk{start: offset, end: offset + len(para), text: para})
			} else {
				chunks = append(chunks, splitSentences(para, offset, maxChars)...)
			}
		}
		offset = end
	}
	return chunks
}

// splitSentences 按句子边界切分超长段落，单句仍超长时按 maxChars 硬切
func splitSentences(para string, base, maxChars int) []chunk {
	var chunks []chunk
	segStart := 0
	for segStart < len(para) {
		// 在不超过 maxChars 的前提下尽量多装几个完整句子
		segEnd := segStart
		for segEnd < len(para) {
			cut := sentenceEnd(para, segEnd)
			if cut < 0 {
				cut = len(para)
			}
			if cut-segStart > maxChars {
				break
			}
			segEnd = cut
		}
		if segEnd == segStart {
			segEnd = segStart + maxChars
			if segEnd > len(para) {
				segEnd = len(para)
			}
		}
		text := para[segStart:segEnd]
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, chunk{start: base + segStart, end: base + segEnd, text: text})
		}
		segStart = segEnd
	}
	return chunks
}

// sentenceEnd 返回 from 之后第一个句子终止位置（标点后含空格），找不到返回 -1
func sentenceEnd(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?', ';':
			j := i + 1
			for j < len(s) && s[j] == ' ' {
				j++
			}
			if j > i+1 || j == len(s) {
				return j
			}
		}
	}
	return -1
}
