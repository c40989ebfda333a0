package render

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"legal-revision-engine/pkg/document"
	"legal-revision-engine/pkg/index"
	"legal-revision-engine/pkg/model"
)

// Renderer 修订渲染器：把通过校验的编辑写成文档树上的原生插入/删除修订节点
type Renderer struct {
	author string
}

// FailedEdit 渲染阶段的单编辑软失败（目标已被先前修订消耗等）
type FailedEdit struct {
	Edit   *model.ResolvedEdit
	Reason string
}

// New 创建渲染器，author 写入每个修订节点
func New(author string) *Renderer {
	if author == "" {
		author = "Legal Revision Engine"
	}
	return &Renderer{author: author}
}

// Apply 按 start 降序应用编辑，返回应用成功数与逐条失败记录
// 树的变更会作废被变更节点之后所有映射的偏移，倒序保证每个编辑
// 仍能找到自己未被变更的目标，与同批次其他编辑无关
// 单编辑失败只记录并跳过，整个过程尽力而为，绝不因一个坏编辑中止
func (r *Renderer) Apply(doc *document.Document, idx *index.Index, edits []*model.ResolvedEdit) (int, []FailedEdit) {
	if len(edits) == 0 {
		return 0, nil
	}

	// 每次渲染最多声明一次"启用修订跟踪"
	if !doc.TrackRevisions {
		doc.TrackRevisions = true
	}

	sorted := make([]*model.ResolvedEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	now := time.Now()
	applied := 0
	var failures []FailedEdit
	for _, e := range sorted {
		var err error
		if e.InsertOnly() {
			err = r.applyInsertion(doc, idx, e, now)
		} else {
			err = r.applyDeletion(doc, idx, e, now)
		}
		if err != nil {
			zap.S().Warnf("编辑渲染失败 span=(%d,%d) 策略=%s: %v", e.Start, e.End, e.Strategy, err)
			failures = append(failures, FailedEdit{Edit: e, Reason: err.Error()})
			continue
		}
		applied++
	}
	return applied, failures
}

// applyDeletion 处理删除与替换：目标 run 在区间边界处切分，
// 只有被区间覆盖的片段包进删除修订节点；替换在删除节点之后紧接
// 一个插入修订节点，两个节点拿到两个相邻递增的 ID
func (r *Renderer) applyDeletion(doc *document.Document, idx *index.Index, e *model.ResolvedEdit, now time.Time) error {
	spans := idx.FindSpans(e.Start, e.End)
	if len(spans) == 0 {
		return fmt.Errorf("区间 (%d,%d) 未命中任何映射", e.Start, e.End)
	}

	replacement := e.Candidate.RevisedText != ""
	inserted := !replacement
	deleted := false

	// 同一编辑内的多个映射也按文档倒序处理，避免切分扰动前面的 run 索引
	for i := len(spans) - 1; i >= 0; i-- {
		m := spans[i]
		para, run, err := index.ResolveRun(doc, m.Loc)
		if err != nil {
			return err
		}
		if run.Deleted() {
			return fmt.Errorf("目标 run 已被先前的修订消耗")
		}

		// 分隔符尾部不属于 run 文本，落在其中的区间端点收缩到 ContentEnd
		s := maxInt(e.Start, m.Start) - m.Start
		t := minInt(e.End, m.ContentEnd) - m.Start
		if s >= t {
			continue
		}
		if t > len(run.Text) {
			// 映射还指向完整 run，文本却变短了：目标已被同批次更靠后的修订切走
			return fmt.Errorf("目标区间 (%d,%d) 超出 run 当前文本，已被先前的修订消耗", e.Start, e.End)
		}

		// 变更前比对目标片段与 WorkingText，错位说明该区域已被改动
		if run.Text[s:t] != idx.WorkingText[m.Start+s:m.Start+t] {
			return fmt.Errorf("目标文本已变化: 期望 %q 实际 %q",
				idx.WorkingText[m.Start+s:m.Start+t], run.Text[s:t])
		}

		pieces := make([]*document.Run, 0, 4)
		if s > 0 {
			pieces = append(pieces, &document.Run{Text: run.Text[:s], Format: run.Format})
		}
		pieces = append(pieces, &document.Run{
			Text:   run.Text[s:t],
			Format: run.Format,
			Revision: &document.RevisionMark{
				ID:     doc.AllocateRevisionID(),
				Author: r.author,
				Date:   now,
				Kind:   document.Deletion,
			},
		})
		deleted = true
		if !inserted {
			// 替换的插入节点放在文档顺序最后一个删除节点之后
			pieces = append(pieces, &document.Run{
				Text:   document.SanitizeText(e.Candidate.RevisedText),
				Format: run.Format,
				Revision: &document.RevisionMark{
					ID:     doc.AllocateRevisionID(),
					Author: r.author,
					Date:   now,
					Kind:   document.Insertion,
				},
			})
			inserted = true
		}
		if t < len(run.Text) {
			pieces = append(pieces, &document.Run{Text: run.Text[t:], Format: run.Format})
		}

		para.Runs = append(para.Runs[:m.Loc.Run],
			append(pieces, para.Runs[m.Loc.Run+1:]...)...)
	}

	if !deleted {
		return fmt.Errorf("区间 (%d,%d) 只覆盖段落分隔符，无可删除文本", e.Start, e.End)
	}
	return nil
}

// applyInsertion 处理纯插入：构造携带 revised_text 的新 run 包进插入
// 修订节点，按编辑意图放在锚点 run 之前或之后，落在 run 中间时先切分
func (r *Renderer) applyInsertion(doc *document.Document, idx *index.Index, e *model.ResolvedEdit, now time.Time) error {
	text := document.SanitizeText(e.Candidate.RevisedText)
	if text == "" {
		return fmt.Errorf("插入文本清洗后为空")
	}
	if len(idx.Mappings) == 0 {
		return fmt.Errorf("空文档没有可用的插入锚点")
	}

	pos := e.Start
	if pos < 0 {
		pos = 0
	}
	if pos > len(idx.WorkingText) {
		pos = len(idx.WorkingText)
	}

	i := sort.Search(len(idx.Mappings), func(i int) bool {
		return idx.Mappings[i].End > pos
	})
	if i == len(idx.Mappings) {
		i = len(idx.Mappings) - 1
	}
	m := idx.Mappings[i]

	para, run, err := index.ResolveRun(doc, m.Loc)
	if err != nil {
		return err
	}
	if run.Deleted() {
		return fmt.Errorf("插入锚点 run 已被先前的修订消耗")
	}

	newRun := &document.Run{
		Text:   text,
		Format: run.Format,
		Revision: &document.RevisionMark{
			ID:     doc.AllocateRevisionID(),
			Author: r.author,
			Date:   now,
			Kind:   document.Insertion,
		},
	}

	s := pos - m.Start
	if s > len(run.Text) {
		s = len(run.Text)
	}
	switch {
	case s <= 0 && !e.Candidate.InsertAfter:
		para.Runs = append(para.Runs[:m.Loc.Run],
			append([]*document.Run{newRun}, para.Runs[m.Loc.Run:]...)...)
	case s >= len(run.Text) || (s <= 0 && e.Candidate.InsertAfter):
		para.Runs = append(para.Runs[:m.Loc.Run+1],
			append([]*document.Run{newRun}, para.Runs[m.Loc.Run+1:]...)...)
	default:
		pieces := []*document.Run{
			{Text: run.Text[:s], Format: run.Format},
			newRun,
			{Text: run.Text[s:], Format: run.Format},
		}
		para.Runs = append(para.Runs[:m.Loc.Run],
			append(pieces, para.Runs[m.Loc.Run+1:]...)...)
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
