package kvn

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Lines 是行序列上的前向游标, 只支持单行前瞻.
// 游标状态是调用局部的, 不同的解析调用之间没有共享可变状态
type Lines struct {
	lines []string
	pos   int
}

// NewLines 基于调用方切分好的行序列创建游标
func NewLines(lines []string) *Lines {
	return &Lines{lines: lines}
}

// Peek 返回下一行但不消费
func (l *Lines) Peek() (string, bool) {
	if l.pos >= len(l.lines) {
		return "", false
	}
	return l.lines[l.pos], true
}

// Next 消费并返回下一行
func (l *Lines) Next() (string, bool) {
	if l.pos >= len(l.lines) {
		return "", false
	}
	line := l.lines[l.pos]
	l.pos++
	return line, true
}

// Pos 返回当前游标位置, 从 0 开始
func (l *Lines) Pos() int {
	return l.pos
}

// Step 记录字段遍历过程中的一步, 供调试接口回放解析过程
type Step struct {
	Field   string `json:"field,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Line    string `json:"line,omitempty"`
	Action  string `json:"action"` // matched|defaulted|comment|error
}

// TraceFunc 在每一步被调用, 为 nil 时不产生任何开销
type TraceFunc func(Step)

// Result 是一次反序列化的输出: 字段表加上全模式收集的注释
type Result struct {
	Fields   map[string]any
	Comments []string
}

// Deserialize 按模式声明顺序遍历行序列填充字段表.
// 第一个错误即中止, 不产生部分记录
func Deserialize(schema *Schema, lines *Lines) (*Result, *DeserializerError) {
	return DeserializeWithTrace(schema, lines, nil)
}

// DeserializeWithTrace 与 Deserialize 相同, 但逐步回调 trace.
//
// 每个字段按以下步骤处理:
//  1. 前瞻下一行; 序列耗尽时必填字段失败, 可选字段取缺省值
//  2. 用字段接受的关键字(含别名)逐个匹配行首关键字
//  3. 命中则消费该行, 交给字段声明的词法器, 错误归一化后返回
//  4. 未命中且字段可选, 保留缺省值, 同一行留给下一个字段重试
//  5. 未命中且字段必填, 以 KeywordNotFound 失败
//
// 注释行的收集是全模式级的: 数据行之间任何位置的 COMMENT 行
// 都被消费收集, 不推进字段游标
func DeserializeWithTrace(schema *Schema, lines *Lines, trace TraceFunc) (*Result, *DeserializerError) {
	result := &Result{Fields: make(map[string]any)}

	for i := range schema.Fields {
		field := &schema.Fields[i]
		collectComments(lines, result, trace)

		line, ok := lines.Peek()
		if !ok {
			if field.Required {
				return nil, normalizeError(&KeywordNotFoundError{Expected: field.Keywords[0]})
			}
			applyDefault(field, result, trace)
			continue
		}

		keyword := matchedKeyword(field, line)
		if keyword == "" {
			if field.Required {
				return nil, normalizeError(&KeywordNotFoundError{Expected: field.Keywords[0]})
			}
			// 行未被消费, 留给下一个字段
			applyDefault(field, result, trace)
			continue
		}

		lines.Next()
		value, err := parseField(field, line)
		if err != nil {
			if trace != nil {
				trace(Step{Field: field.Name, Keyword: keyword, Line: line, Action: "error"})
			}
			return nil, normalizeError(err)
		}
		result.Fields[field.Name] = value
		if trace != nil {
			trace(Step{Field: field.Name, Keyword: keyword, Line: line, Action: "matched"})
		}
	}

	// 尾部注释
	collectComments(lines, result, trace)

	return result, nil
}

// matchedKeyword 返回字段接受的关键字中与行首匹配的那个, 无匹配返回空串
func matchedKeyword(field *Field, line string) string {
	for _, keyword := range field.Keywords {
		if LineMatchesKeyword(keyword, line) {
			return keyword
		}
	}
	return ""
}

// collectComments 消费并收集游标处连续的 COMMENT 行
func collectComments(lines *Lines, result *Result, trace TraceFunc) {
	for {
		line, ok := lines.Peek()
		if !ok || !LineMatchesKeyword("COMMENT", line) {
			return
		}
		lines.Next()
		if v, err := ParseStringLine(line); err == nil {
			result.Comments = append(result.Comments, v.Value)
		}
		if trace != nil {
			trace(Step{Keyword: "COMMENT", Line: line, Action: "comment"})
		}
	}
}

func applyDefault(field *Field, result *Result, trace TraceFunc) {
	if field.Default != nil {
		result.Fields[field.Name] = field.Default
	}
	if trace != nil {
		trace(Step{Field: field.Name, Action: "defaulted"})
	}
}

// parseField 把一行分发给字段声明的词法器.
// 复合字段在这里展开成 {数值属性, 单位属性} 的子表, 仍然只消费这一行
func parseField(field *Field, line string) (any, error) {
	switch field.Kind {
	case KindInteger:
		v, err := ParseIntegerLine[int64](line, field.WithUnit)
		if err != nil {
			return nil, err
		}
		if field.Pair != nil {
			return pairFields(field.Pair, v.Value, v.Unit), nil
		}
		return v.Value, nil
	case KindFloat:
		v, err := ParseNumericLine(line, field.WithUnit)
		if err != nil {
			return nil, err
		}
		if field.Pair != nil {
			return pairFields(field.Pair, v.Value, v.Unit), nil
		}
		return v.Value, nil
	case KindDateTime:
		v, err := ParseDateTimeLine(line)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		v, err := ParseStringLine(line)
		if err != nil {
			return nil, err
		}
		return v.Value, nil
	}
}

func pairFields(pair *PairSchema, value any, unit *string) map[string]any {
	fields := map[string]any{pair.ValueName: value}
	if unit != nil {
		fields[pair.UnitName] = *unit
	}
	return fields
}

// DecodeInto 把解析结果按 kvn 标签解码进调用方给定形状的目标结构体,
// 实现"模式声明一次, 遍历器复用"而不需要代码生成
func DecodeInto(result *Result, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "kvn",
		Result:  target,
	})
	if err != nil {
		return fmt.Errorf("创建解码器失败: %w", err)
	}
	if err := decoder.Decode(result.Fields); err != nil {
		return fmt.Errorf("解码字段失败: %w", err)
	}
	return nil
}
