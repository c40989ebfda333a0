package document

import (
	"strings"
	"time"
)

// RevisionKind 修订类型
type RevisionKind string

const (
	Insertion RevisionKind = "insertion" // 插入修订
	Deletion  RevisionKind = "deletion"  // 删除修订
)

// RevisionMark 表示一个原生修订节点（插入或删除）
// 同一次渲染过程中分配的 ID 严格递增，且不会复用
type RevisionMark struct {
	ID     int          `json:"id"`
	Author string       `json:"author"`
	Date   time.Time    `json:"date"`
	Kind   RevisionKind `json:"kind"`
}

// RunFormat 表示一个 run 的独立格式
// 相邻且格式完全相同的 run 在索引阶段会被合并为一个逻辑 run
type RunFormat struct {
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	FontFamily string  `json:"font_family,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
}

// Equal 判断两个格式是否完全一致
func (f RunFormat) Equal(o RunFormat) bool {
	return f == o
}

// Run 表示一段带独立格式的文本片段
// Revision 不为 nil 时，该 run 被包裹在对应的修订节点中
type Run struct {
	Text     string        `json:"text"`
	Format   RunFormat     `json:"format"`
	Revision *RevisionMark `json:"revision,omitempty"`
}

// Deleted 判断该 run 是否已被删除修订包裹
func (r *Run) Deleted() bool {
	return r.Revision != nil && r.Revision.Kind == Deletion
}

// Paragraph 表示一个段落
type Paragraph struct {
	Runs []*Run `json:"runs"`
}

// Cell 表示表格单元格，内部是若干段落
type Cell struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
}

// Table 表示表格
type Table struct {
	Rows [][]*Cell `json:"rows"`
}

// Section 表示文档分节，各自携带页眉/页脚段落
type Section struct {
	Header []*Paragraph `json:"header,omitempty"`
	Footer []*Paragraph `json:"footer,omitempty"`
}

// Document 表示已解析的文档树
// 本核心不解析磁盘上的容器格式，树由文档库协作方提供
type Document struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
	Tables     []*Table     `json:"tables,omitempty"`
	Sections   []*Section   `json:"sections,omitempty"`

	// TrackRevisions 声明"启用修订跟踪"，每次渲染最多声明一次
	TrackRevisions bool `json:"track_revisions,omitempty"`

	// NextRevisionID 下一个可用的修订 ID，随文档持久化，保证不复用
	NextRevisionID int `json:"next_revision_id,omitempty"`
}

// AllocateRevisionID 分配一个严格递增的修订 ID
func (d *Document) AllocateRevisionID() int {
	if d.NextRevisionID <= 0 {
		d.NextRevisionID = 1
	}
	id := d.NextRevisionID
	d.NextRevisionID++
	return id
}

// markerChars 零宽字符与标记字符，索引与插入文本时一律剔除
const markerChars = "​‌‍⁠\uFEFF­"

// SanitizeText 剔除文本中对标记体系有意义的字符（零宽字符、控制字符）
// 插入修订携带的新文本必须先经过该函数
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(markerChars, r) {
			return -1
		}
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}
