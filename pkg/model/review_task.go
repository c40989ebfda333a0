package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"legal-revision-engine/pkg/document"
)

// ReviewTask 表示 tbl_review_task 表中的一条审校任务
// Document 列存放文档库协作方解析好的文档树 JSON，
// Candidates 列存放上游分析方产出的候选编辑批次 JSON
type ReviewTask struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	TaskID     string         `gorm:"column:taskId" json:"task_id"`
	Document   JSONTree       `gorm:"type:text" json:"document"`
	Candidates JSONEdits      `gorm:"type:text" json:"candidates"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (ReviewTask) TableName() string {
	return "tbl_review_task"
}

// JSONTree 自定义列类型，存取文档树 JSON
// 解析失败时保留原始字符串，错误延迟到处理阶段报告
type JSONTree struct {
	Doc *document.Document `json:"-"`
	Raw string             `json:"-"`
}

// Value 实现 driver.Valuer 接口
func (j JSONTree) Value() (driver.Value, error) {
	if j.Doc != nil {
		bytes, err := json.Marshal(j.Doc)
		if err != nil {
			return nil, err
		}
		return string(bytes), nil
	}
	if j.Raw != "" {
		return j.Raw, nil
	}
	return nil, nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSONTree) Scan(value interface{}) error {
	j.Doc = nil
	j.Raw = ""
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	j.Raw = string(bytes)

	var doc document.Document
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return nil
	}
	j.Doc = &doc
	return nil
}

// MarshalJSON 实现 json.Marshaler 接口
func (j JSONTree) MarshalJSON() ([]byte, error) {
	if j.Doc != nil {
		return json.Marshal(j.Doc)
	}
	if j.Raw != "" {
		return []byte(j.Raw), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (j *JSONTree) UnmarshalJSON(data []byte) error {
	j.Raw = string(data)
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	j.Doc = &doc
	return nil
}

// JSONEdits 自定义列类型，存取候选编辑批次 JSON
type JSONEdits struct {
	Edits []*CandidateEdit `json:"-"`
	Raw   string           `json:"-"`
}

// Value 实现 driver.Valuer 接口
func (j JSONEdits) Value() (driver.Value, error) {
	if j.Edits != nil {
		bytes, err := json.Marshal(j.Edits)
		if err != nil {
			return nil, err
		}
		return string(bytes), nil
	}
	if j.Raw != "" {
		return j.Raw, nil
	}
	return nil, nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSONEdits) Scan(value interface{}) error {
	j.Edits = nil
	j.Raw = ""
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	j.Raw = string(bytes)

	var edits []*CandidateEdit
	if err := json.Unmarshal(bytes, &edits); err != nil {
		return nil
	}
	j.Edits = edits
	return nil
}
