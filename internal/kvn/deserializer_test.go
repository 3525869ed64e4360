package kvn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asdSchema() *Schema {
	return &Schema{
		Name: "ASD",
		Fields: []Field{
			{Name: "version", Keywords: []string{"CCSDS_ASD_VERS"}, Kind: KindString, Required: true},
			{
				Name: "semi_major_axis", Keywords: []string{"SEMI_MAJOR_AXIS"},
				Kind: KindFloat, WithUnit: true, Required: true,
				Pair: &PairSchema{ValueName: "base", UnitName: "units"},
			},
			{Name: "asdfg", Keywords: []string{"ASDFG"}, Kind: KindFloat, Required: true},
		},
	}
}

func TestDeserializePairSchema(t *testing.T) {
	lines := NewLines([]string{
		"CCSDS_ASD_VERS = 3.0",
		"        SEMI_MAJOR_AXIS = 41399.5123 [km]",
		"        ASDFG = 12333.5123",
	})

	result, derr := Deserialize(asdSchema(), lines)
	require.Nil(t, derr, "三行全部合法, 不应报错")

	assert.Equal(t, "3.0", result.Fields["version"])
	assert.Equal(t, map[string]any{"base": 41399.5123, "units": "km"}, result.Fields["semi_major_axis"], "复合字段应展开成数值+单位子表")
	assert.Equal(t, 12333.5123, result.Fields["asdfg"])
}

func TestDeserializeKeywordNotFound(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "x", Keywords: []string{"X"}, Kind: KindFloat, Required: true},
		},
	}

	// 首个关键字不匹配
	_, derr := Deserialize(schema, NewLines([]string{"Y = 1.0"}))
	require.NotNil(t, derr)
	assert.Equal(t, KeywordNotFound, derr.Code)
	assert.Equal(t, "X", derr.Expected, "错误应携带期望的关键字")

	// 行序列耗尽
	_, derr = Deserialize(schema, NewLines(nil))
	require.NotNil(t, derr)
	assert.Equal(t, KeywordNotFound, derr.Code)
	assert.Equal(t, "X", derr.Expected)
}

func TestDeserializeOptionalFields(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "a", Keywords: []string{"A"}, Kind: KindString, Required: true},
			{Name: "b", Keywords: []string{"B"}, Kind: KindFloat, Default: 1.5},
			{Name: "c", Keywords: []string{"C"}, Kind: KindString},
			{Name: "d", Keywords: []string{"D"}, Kind: KindFloat, Required: true},
		},
	}

	// B 和 C 缺席: B 取缺省值, C 不出现, 未消费的行留给 D
	result, derr := Deserialize(schema, NewLines([]string{
		"A = hello",
		"D = 2.25",
	}))
	require.Nil(t, derr)
	assert.Equal(t, "hello", result.Fields["a"])
	assert.Equal(t, 1.5, result.Fields["b"], "可选字段未命中时应取缺省值")
	_, ok := result.Fields["c"]
	assert.False(t, ok, "没有缺省值的可选字段不应出现在结果中")
	assert.Equal(t, 2.25, result.Fields["d"])
}

func TestDeserializeKeywordAlias(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "ref_frame", Keywords: []string{"REF_FRAME", "REFERENCE_FRAME"}, Kind: KindString, Required: true},
		},
	}

	result, derr := Deserialize(schema, NewLines([]string{"REFERENCE_FRAME = EME2000"}))
	require.Nil(t, derr)
	assert.Equal(t, "EME2000", result.Fields["ref_frame"], "别名关键字应命中同一字段")
}

func TestDeserializeComments(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "a", Keywords: []string{"A"}, Kind: KindString, Required: true},
			{Name: "b", Keywords: []string{"B"}, Kind: KindString, Required: true},
		},
	}

	result, derr := Deserialize(schema, NewLines([]string{
		"COMMENT generated by ndmgate",
		"A = one",
		"COMMENT  middle  ",
		"B = two",
		"COMMENT tail",
	}))
	require.Nil(t, derr)
	assert.Equal(t, "one", result.Fields["a"])
	assert.Equal(t, "two", result.Fields["b"])
	assert.Equal(t, []string{"generated by ndmgate", "middle  ", "tail"}, result.Comments, "数据行之间任意位置的注释都应被收集")
}

func TestDeserializeValueErrorAborts(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "a", Keywords: []string{"A"}, Kind: KindFloat, Required: true},
			{Name: "b", Keywords: []string{"B"}, Kind: KindString, Required: true},
		},
	}

	// 值格式错误不可恢复, 首个错误即中止整条记录
	result, derr := Deserialize(schema, NewLines([]string{
		"A = not-a-number",
		"B = ok",
	}))
	assert.Nil(t, result, "失败时不应产生部分记录")
	require.NotNil(t, derr)
	assert.Equal(t, InvalidDateTimeFormat, derr.Code, "数值格式错误归一化后与日期时间格式错误共用错误码")
	assert.Equal(t, "A = not-a-number", derr.Input, "错误应携带出错行原文")
}

func TestDeserializeDateTimeField(t *testing.T) {
	schema := &Schema{
		Name: "T",
		Fields: []Field{
			{Name: "epoch", Keywords: []string{"EPOCH"}, Kind: KindDateTime, Required: true},
		},
	}

	result, derr := Deserialize(schema, NewLines([]string{"EPOCH = 2023-12-31T23:59:59.5"}))
	require.Nil(t, derr)
	v, ok := result.Fields["epoch"].(DateTimeValue)
	require.True(t, ok)
	assert.Equal(t, uint16(2023), v.Year)
	assert.Equal(t, uint8(59), v.Second)
	assert.Equal(t, 0.5, v.FractionalSecond)
	assert.Equal(t, "2023-12-31T23:59:59.5", v.FullValue)
}

func TestDeserializeWithTrace(t *testing.T) {
	var steps []Step
	lines := NewLines([]string{
		"COMMENT hello",
		"CCSDS_ASD_VERS = 3.0",
		"SEMI_MAJOR_AXIS = 41399.5123 [km]",
		"ASDFG = 12333.5123",
	})

	_, derr := DeserializeWithTrace(asdSchema(), lines, func(s Step) {
		steps = append(steps, s)
	})
	require.Nil(t, derr)

	require.Len(t, steps, 4)
	assert.Equal(t, "comment", steps[0].Action)
	assert.Equal(t, "matched", steps[1].Action)
	assert.Equal(t, "version", steps[1].Field)
	assert.Equal(t, "CCSDS_ASD_VERS", steps[1].Keyword)
	assert.Equal(t, "matched", steps[3].Action)
	assert.Equal(t, "asdfg", steps[3].Field)
}

type distanceType struct {
	Base  float64 `kvn:"base"`
	Units *string `kvn:"units"`
}

type asdType struct {
	Version       string       `kvn:"version"`
	SemiMajorAxis distanceType `kvn:"semi_major_axis"`
	Asdfg         float64      `kvn:"asdfg"`
}

func TestDecodeInto(t *testing.T) {
	lines := NewLines([]string{
		"CCSDS_ASD_VERS = 3.0",
		"SEMI_MAJOR_AXIS = 41399.5123 [km]",
		"ASDFG = 12333.5123",
	})

	result, derr := Deserialize(asdSchema(), lines)
	require.Nil(t, derr)

	var record asdType
	require.NoError(t, DecodeInto(result, &record), "结果应能按 kvn 标签解码进目标结构体")
	assert.Equal(t, asdType{
		Version:       "3.0",
		SemiMajorAxis: distanceType{Base: 41399.5123, Units: strPtr("km")},
		Asdfg:         12333.5123,
	}, record)
}

func TestLinesCursor(t *testing.T) {
	lines := NewLines([]string{"a", "b"})

	line, ok := lines.Peek()
	assert.True(t, ok)
	assert.Equal(t, "a", line)
	assert.Equal(t, 0, lines.Pos(), "Peek 不应推进游标")

	line, ok = lines.Next()
	assert.True(t, ok)
	assert.Equal(t, "a", line)
	assert.Equal(t, 1, lines.Pos())

	_, _ = lines.Next()
	_, ok = lines.Peek()
	assert.False(t, ok, "耗尽后 Peek 应返回 false")
	_, ok = lines.Next()
	assert.False(t, ok)
}
