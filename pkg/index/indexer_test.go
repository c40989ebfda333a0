package index

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"legal-revision-engine/pkg/document"
)

func para(texts ...string) *document.Paragraph {
	p := &document.Paragraph{}
	for _, t := range texts {
		p.Runs = append(p.Runs, &document.Run{Text: t})
	}
	return p
}

func boldRun(t string) *document.Run {
	return &document.Run{Text: t, Format: document.RunFormat{Bold: true}}
}

// checkPartition 校验映射按序、无重叠、拼接后恰好还原 WorkingText
func checkPartition(t *testing.T, idx *Index) {
	t.Helper()
	var sb strings.Builder
	prev := 0
	for i, m := range idx.Mappings {
		if m.Start != prev {
			t.Fatalf("mapping %d start=%d, want %d (gap or overlap)", i, m.Start, prev)
		}
		if m.End <= m.Start {
			t.Fatalf("mapping %d empty span (%d,%d)", i, m.Start, m.End)
		}
		sb.WriteString(idx.WorkingText[m.Start:m.End])
		prev = m.End
	}
	if prev != len(idx.WorkingText) {
		t.Fatalf("mappings cover %d bytes, working text has %d", prev, len(idx.WorkingText))
	}
	if sb.String() != idx.WorkingText {
		t.Fatalf("concatenated mappings do not reproduce working text")
	}
}

// TestBuildMergesAdjacentRuns 相邻同格式 run 合并为一个逻辑 run
func TestBuildMergesAdjacentRuns(t *testing.T) {
	doc := &document.Document{Paragraphs: []*document.Paragraph{para("The term ", "is ", "two years.")}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.WorkingText != "The term is two years.\n" {
		t.Fatalf("working text %q", idx.WorkingText)
	}
	if len(doc.Paragraphs[0].Runs) != 1 {
		t.Fatalf("runs not merged: %d", len(doc.Paragraphs[0].Runs))
	}
	if len(idx.Mappings) != 1 || idx.Mappings[0].Start != 0 || idx.Mappings[0].End != len(idx.WorkingText) {
		t.Fatalf("unexpected mappings %+v", idx.Mappings)
	}
	checkPartition(t, idx)
}

// TestBuildKeepsFormatBoundaries 格式不同的 run 不合并
func TestBuildKeepsFormatBoundaries(t *testing.T) {
	p := &document.Paragraph{Runs: []*document.Run{
		{Text: "The Supplier shall "},
		boldRun("indemnify"),
		{Text: " the Buyer."},
	}}
	doc := &document.Document{Paragraphs: []*document.Paragraph{p}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(p.Runs) != 3 {
		t.Fatalf("format boundary lost: %d runs", len(p.Runs))
	}
	if len(idx.Mappings) != 3 {
		t.Fatalf("want 3 mappings, got %d", len(idx.Mappings))
	}
	checkPartition(t, idx)
}

// TestBuildNormalizesWhitespace 零宽字符剔除、内部空白折叠为单个空格
func TestBuildNormalizesWhitespace(t *testing.T) {
	doc := &document.Document{Paragraphs: []*document.Paragraph{para("two​  years \t later")}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.WorkingText != "two years later\n" {
		t.Fatalf("working text %q", idx.WorkingText)
	}
}

// TestBuildEmptyContributesNothing 空段落/空 run 不贡献内容也不追加分隔符
func TestBuildEmptyContributesNothing(t *testing.T) {
	doc := &document.Document{Paragraphs: []*document.Paragraph{
		para(""),
		{},
		para("  ​ "),
		para("text"),
	}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.WorkingText != "text\n" {
		t.Fatalf("working text %q", idx.WorkingText)
	}
	checkPartition(t, idx)
}

// TestBuildWalkOrder 遍历顺序：正文段落、表格、页眉、页脚
func TestBuildWalkOrder(t *testing.T) {
	doc := &document.Document{
		Paragraphs: []*document.Paragraph{para("Body")},
		Tables: []*document.Table{{Rows: [][]*document.Cell{{
			{Paragraphs: []*document.Paragraph{para("Cell")}},
		}}}},
		Sections: []*document.Section{{
			Header: []*document.Paragraph{para("Head")},
			Footer: []*document.Paragraph{para("Foot")},
		}},
	}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.WorkingText != "Body\nCell\nHead\nFoot\n" {
		t.Fatalf("working text %q", idx.WorkingText)
	}
	kinds := []LocationKind{ParagraphRun, TableCellRun, HeaderRun, FooterRun}
	for i, m := range idx.Mappings {
		if m.Loc.Kind != kinds[i] {
			t.Fatalf("mapping %d kind %q, want %q", i, m.Loc.Kind, kinds[i])
		}
	}
	checkPartition(t, idx)
}

// TestBuildIdempotent 未变更的树重建后 WorkingText 字节级一致、映射同构
func TestBuildIdempotent(t *testing.T) {
	doc := &document.Document{
		Paragraphs: []*document.Paragraph{
			para("First  paragraph ", "with fragments."),
			para("Second​ paragraph."),
		},
		Tables: []*document.Table{{Rows: [][]*document.Cell{{
			{Paragraphs: []*document.Paragraph{para("cell one"), para("cell two")}},
		}}}},
	}
	first, err := Build(doc)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := Build(doc)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first.WorkingText != second.WorkingText {
		t.Fatalf("working text changed on rebuild:\n%q\n%q", first.WorkingText, second.WorkingText)
	}
	if !reflect.DeepEqual(first.Mappings, second.Mappings) {
		t.Fatalf("mappings changed on rebuild")
	}
}

// TestBuildStructuralError 损坏的树立即失败，不返回部分索引
func TestBuildStructuralError(t *testing.T) {
	cases := []*document.Document{
		nil,
		{Paragraphs: []*document.Paragraph{nil}},
		{Paragraphs: []*document.Paragraph{{Runs: []*document.Run{nil}}}},
		{Tables: []*document.Table{nil}},
		{Tables: []*document.Table{{Rows: [][]*document.Cell{{nil}}}}},
		{Sections: []*document.Section{nil}},
	}
	for i, doc := range cases {
		idx, err := Build(doc)
		if err == nil {
			t.Fatalf("case %d: expect structural error", i)
		}
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Fatalf("case %d: error %v is not StructuralError", i, err)
		}
		if idx != nil {
			t.Fatalf("case %d: partial index returned", i)
		}
	}
}

// TestBuildSkipsDeletedRuns 删除修订包裹的文本不再属于当前正文，插入修订的文本属于
func TestBuildSkipsDeletedRuns(t *testing.T) {
	p := &document.Paragraph{Runs: []*document.Run{
		{Text: "kept "},
		{Text: "gone", Revision: &document.RevisionMark{ID: 1, Kind: document.Deletion}},
		{Text: "added", Revision: &document.RevisionMark{ID: 2, Kind: document.Insertion}},
	}}
	doc := &document.Document{Paragraphs: []*document.Paragraph{p}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.WorkingText != "kept added\n" {
		t.Fatalf("working text %q", idx.WorkingText)
	}
	checkPartition(t, idx)
}

// TestFindSpansStraddling 一个编辑区间可以横跨多个原始 run
func TestFindSpansStraddling(t *testing.T) {
	p := &document.Paragraph{Runs: []*document.Run{
		{Text: "alpha "},
		boldRun("beta"),
		{Text: " gamma"},
	}}
	doc := &document.Document{Paragraphs: []*document.Paragraph{p}}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// "ha beta ga" 横跨全部三个 run
	start := strings.Index(idx.WorkingText, "ha beta ga")
	spans := idx.FindSpans(start, start+len("ha beta ga"))
	if len(spans) != 3 {
		t.Fatalf("want 3 spans, got %d", len(spans))
	}
	if spans[1].Loc.Run != 1 {
		t.Fatalf("middle span run %d", spans[1].Loc.Run)
	}
	if got := idx.FindSpans(0, 0); got != nil {
		t.Fatalf("empty range should return nil, got %+v", got)
	}
}

// TestResolveRun 按索引从当前树状态重新解析位置
func TestResolveRun(t *testing.T) {
	doc := &document.Document{
		Paragraphs: []*document.Paragraph{para("Body")},
		Tables: []*document.Table{{Rows: [][]*document.Cell{{
			{Paragraphs: []*document.Paragraph{para("Cell")}},
		}}}},
		Sections: []*document.Section{{Footer: []*document.Paragraph{para("Foot")}}},
	}
	idx, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, m := range idx.Mappings {
		_, run, err := ResolveRun(doc, m.Loc)
		if err != nil {
			t.Fatalf("resolve %+v: %v", m.Loc, err)
		}
		wantLen := m.ContentEnd - m.Start
		if len(run.Text) != wantLen {
			t.Fatalf("run %q does not match mapping (%d,%d)", run.Text, m.Start, m.End)
		}
	}
	if _, _, err := ResolveRun(doc, Location{Kind: ParagraphRun, Paragraph: 9}); err == nil {
		t.Fatalf("expect out-of-range error")
	}
	if _, _, err := ResolveRun(doc, Location{Kind: "bogus"}); err == nil {
		t.Fatalf("expect unknown kind error")
	}
}
