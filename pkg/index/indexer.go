package index

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"legal-revision-engine/pkg/document"
)

// StructuralError 表示文档树结构损坏，索引构建立即失败，不返回部分索引
type StructuralError struct {
	Detail string
}

func (e *StructuralError) Error() string {
	return "文档结构错误: " + e.Detail
}

func structuralErrorf(format string, args ...interface{}) error {
	return &StructuralError{Detail: fmt.Sprintf(format, args...)}
}

// LocationKind 位置变体标签
type LocationKind string

const (
	ParagraphRun LocationKind = "paragraph_run"
	TableCellRun LocationKind = "table_cell_run"
	HeaderRun    LocationKind = "header_run"
	FooterRun    LocationKind = "footer_run"
)

// Location 用稳定的整数索引描述文档树中的一个 run
// 不持有活引用：引用会被任何变更作废，索引只要在两个阶段之间重新解析就不会
type Location struct {
	Kind      LocationKind `json:"kind"`
	Paragraph int          `json:"paragraph"`
	Run       int          `json:"run"`
	Table     int          `json:"table,omitempty"`
	Row       int          `json:"row,omitempty"`
	Col       int          `json:"col,omitempty"`
	Section   int          `json:"section,omitempty"`
}

// SpanMapping 将 WorkingText 的一段偏移区间映射回树上的具体 run
// 不变式：按 Start 排序、两两不重叠、拼接后恰好还原 WorkingText
// 段落分隔符计入所在段落最后一个映射的 [ContentEnd, End) 尾部
type SpanMapping struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	ContentEnd int      `json:"content_end"` // run 文本的结束偏移，不含分隔符
	Loc        Location `json:"location"`
}

// Index 一次索引构建的产物，对下游组件只读
// WorkingText 不可变：文档任何变更后必须整体重建
type Index struct {
	WorkingText string
	Mappings    []SpanMapping
}

// paragraphSeparator 每个非空段落内容之后恰好追加一个分隔符
// 单字符分隔让偏移运算保持简单可逆
const paragraphSeparator = "\n"

type builder struct {
	text     strings.Builder
	mappings []SpanMapping
}

// Build 单次遍历文档树，构建 WorkingText 与 SpanMapping 表
// 遍历顺序：正文段落、表格、各分节的页眉/页脚
// 同时就地规范化树：合并相邻同格式 run、折叠空白、剔除零宽字符，
// 使后续组件只看到逻辑 run（run 碎片化是格式怪癖，不是建模选择）
func Build(doc *document.Document) (*Index, error) {
	if doc == nil {
		return nil, structuralErrorf("文档为空")
	}

	b := &builder{}

	for pi, p := range doc.Paragraphs {
		if err := b.emitParagraph(p, func(run int) Location {
			return Location{Kind: ParagraphRun, Paragraph: pi, Run: run}
		}, fmt.Sprintf("段落 %d", pi)); err != nil {
			return nil, err
		}
	}

	for ti, t := range doc.Tables {
		if t == nil {
			return nil, structuralErrorf("表格 %d 为空", ti)
		}
		for ri, row := range t.Rows {
			for ci, cell := range row {
				if cell == nil {
					return nil, structuralErrorf("表格 %d 单元格 (%d,%d) 为空", ti, ri, ci)
				}
				for pi, p := range cell.Paragraphs {
					ti, ri, ci, pi := ti, ri, ci, pi
					if err := b.emitParagraph(p, func(run int) Location {
						return Location{Kind: TableCellRun, Table: ti, Row: ri, Col: ci, Paragraph: pi, Run: run}
					}, fmt.Sprintf("表格 %d 单元格 (%d,%d) 段落 %d", ti, ri, ci, pi)); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	for si, s := range doc.Sections {
		if s == nil {
			return nil, structuralErrorf("分节 %d 为空", si)
		}
		for pi, p := range s.Header {
			si, pi := si, pi
			if err := b.emitParagraph(p, func(run int) Location {
				return Location{Kind: HeaderRun, Section: si, Paragraph: pi, Run: run}
			}, fmt.Sprintf("分节 %d 页眉段落 %d", si, pi)); err != nil {
				return nil, err
			}
		}
		for pi, p := range s.Footer {
			si, pi := si, pi
			if err := b.emitParagraph(p, func(run int) Location {
				return Location{Kind: FooterRun, Section: si, Paragraph: pi, Run: run}
			}, fmt.Sprintf("分节 %d 页脚段落 %d", si, pi)); err != nil {
				return nil, err
			}
		}
	}

	return &Index{WorkingText: b.text.String(), Mappings: b.mappings}, nil
}

// emitParagraph 先就地合并相邻同格式 run 并规范化文本，再逐个逻辑 run 发射
// 空段落/空 run 不贡献任何内容（也不追加分隔符）
func (b *builder) emitParagraph(p *document.Paragraph, mkLoc func(run int) Location, where string) error {
	if p == nil {
		return structuralErrorf("%s 为空", where)
	}

	merged := make([]*document.Run, 0, len(p.Runs))
	for ri, r := range p.Runs {
		if r == nil {
			return structuralErrorf("%s run %d 为空", where, ri)
		}
		// 已带修订标记的 run 不参与合并，保持修订节点边界
		if r.Revision == nil {
			r.Text = normalizeText(r.Text)
			if r.Text == "" {
				continue
			}
			if n := len(merged); n > 0 {
				last := merged[n-1]
				if last.Revision == nil && last.Format.Equal(r.Format) {
					last.Text = normalizeText(last.Text + r.Text)
					continue
				}
			}
		} else if !r.Deleted() {
			r.Text = normalizeText(r.Text)
		}
		merged = append(merged, r)
	}
	p.Runs = merged

	// 仅含空白的段落视同空段落
	var visible strings.Builder
	for _, r := range p.Runs {
		if !r.Deleted() {
			visible.WriteString(r.Text)
		}
	}
	if strings.TrimSpace(visible.String()) == "" {
		return nil
	}

	emitted := false
	for ri, r := range p.Runs {
		// 删除修订包裹的文本不再属于当前正文
		if r.Deleted() {
			continue
		}
		text := r.Text
		if text == "" {
			continue
		}
		start := b.text.Len()
		b.text.WriteString(text)
		b.mappings = append(b.mappings, SpanMapping{Start: start, End: b.text.Len(), ContentEnd: b.text.Len(), Loc: mkLoc(ri)})
		emitted = true
	}

	if emitted {
		// 分隔符计入最后一个 run 的映射，保证映射是 WorkingText 的无缝划分
		b.text.WriteString(paragraphSeparator)
		b.mappings[len(b.mappings)-1].End = b.text.Len()
	}
	return nil
}

// normalizeText 剔除零宽/标记字符，并把内部空白串折叠为单个空格
func normalizeText(s string) string {
	s = document.SanitizeText(s)
	if s == "" {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	if space {
		sb.WriteByte(' ')
	}
	return sb.String()
}

// FindSpans 区间查询：二分定位首个重叠映射，线性扫描到最后一个
// 一个编辑可能横跨多个原始 run
func (idx *Index) FindSpans(start, end int) []SpanMapping {
	if start >= end || len(idx.Mappings) == 0 {
		return nil
	}
	i := sort.Search(len(idx.Mappings), func(i int) bool {
		return idx.Mappings[i].End > start
	})
	var out []SpanMapping
	for ; i < len(idx.Mappings) && idx.Mappings[i].Start < end; i++ {
		out = append(out, idx.Mappings[i])
	}
	return out
}

// ResolveParagraph 依据当前树状态按索引重新解析映射指向的段落
// 永远不缓存活引用：只有渲染器在变更那一刻才能安全持有 run 引用
func ResolveParagraph(doc *document.Document, loc Location) (*document.Paragraph, error) {
	switch loc.Kind {
	case ParagraphRun:
		if loc.Paragraph < 0 || loc.Paragraph >= len(doc.Paragraphs) {
			return nil, fmt.Errorf("段落索引 %d 越界", loc.Paragraph)
		}
		return doc.Paragraphs[loc.Paragraph], nil
	case TableCellRun:
		if loc.Table < 0 || loc.Table >= len(doc.Tables) {
			return nil, fmt.Errorf("表格索引 %d 越界", loc.Table)
		}
		t := doc.Tables[loc.Table]
		if loc.Row < 0 || loc.Row >= len(t.Rows) {
			return nil, fmt.Errorf("表格 %d 行索引 %d 越界", loc.Table, loc.Row)
		}
		row := t.Rows[loc.Row]
		if loc.Col < 0 || loc.Col >= len(row) {
			return nil, fmt.Errorf("表格 %d 列索引 %d 越界", loc.Table, loc.Col)
		}
		cell := row[loc.Col]
		if loc.Paragraph < 0 || loc.Paragraph >= len(cell.Paragraphs) {
			return nil, fmt.Errorf("表格 %d 单元格段落索引 %d 越界", loc.Table, loc.Paragraph)
		}
		return cell.Paragraphs[loc.Paragraph], nil
	case HeaderRun, FooterRun:
		if loc.Section < 0 || loc.Section >= len(doc.Sections) {
			return nil, fmt.Errorf("分节索引 %d 越界", loc.Section)
		}
		s := doc.Sections[loc.Section]
		paras := s.Header
		if loc.Kind == FooterRun {
			paras = s.Footer
		}
		if loc.Paragraph < 0 || loc.Paragraph >= len(paras) {
			return nil, fmt.Errorf("分节 %d 页眉/页脚段落索引 %d 越界", loc.Section, loc.Paragraph)
		}
		return paras[loc.Paragraph], nil
	default:
		return nil, fmt.Errorf("未知的位置类型 %q", loc.Kind)
	}
}

// ResolveRun 解析映射指向的具体 run
func ResolveRun(doc *document.Document, loc Location) (*document.Paragraph, *document.Run, error) {
	p, err := ResolveParagraph(doc, loc)
	if err != nil {
		return nil, nil, err
	}
	if loc.Run < 0 || loc.Run >= len(p.Runs) {
		return nil, nil, fmt.Errorf("run 索引 %d 越界", loc.Run)
	}
	return p, p.Runs[loc.Run], nil
}
