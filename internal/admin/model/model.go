// Package model 定义 admin api 的存储与传输结构
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ndmgate/internal/ndm"
)

// SchemaDefinition 是存储在 MongoDB 中的一份消息模式定义
type SchemaDefinition struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string             `bson:"name" json:"name"` // 唯一名称, 通常与消息类型同名
	Definition ndm.SchemaFile     `bson:"definition" json:"definition"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// TestMessageRequest 是解析试运行接口的请求体.
// 不带内联模式时按已注册的版本关键字识别消息类型
type TestMessageRequest struct {
	Payload string          `json:"payload" binding:"required"`
	Schema  *ndm.SchemaFile `json:"schema,omitempty"`
}

// TestMessageResponse 是解析试运行接口的响应体
type TestMessageResponse struct {
	Type       string         `json:"type"`
	Fields     map[string]any `json:"fields"`
	Comments   []string       `json:"comments"`
	Steps      []StepView     `json:"steps"`
	DurationUs int64          `json:"duration_us"`
}

// StepView 是反序列化单步的展示形态
type StepView struct {
	Field   string `json:"field,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Line    string `json:"line,omitempty"`
	Action  string `json:"action"`
}

// ErrorResponse 是统一的错误响应体
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`     // 反序列化错误码
	Input    string `json:"input,omitempty"`    // 出错行原文
	Expected string `json:"expected,omitempty"` // KeywordNotFound 时期望的关键字
}
