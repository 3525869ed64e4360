package kvn

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// 行级语法, 在 CCSDS 502.0-B-3 F-5/F-8/F-9 图的基础上放宽.
// 只在包加载时编译一次
var (
	keywordRe = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Z_]*)(?:\s*)`)

	// F-8 图的放宽版
	stringLineRe = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Z_]*)(?:\s*)=(?:\s*)(?P<value>(?:(?:.*)))(?:\s*)$`)

	// 空值判定: 关键字 = 后面什么都没有, 或只剩一个(可以为空的)方括号单位
	emptyValueRe = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Za-z_]*)(?:\s*)=(?:\s*)(?:\[(?P<unit>[0-9A-Za-z/_*]*)\]?)?$`)

	// F-9 图的放宽版, 整数允许带被丢弃的小数部分进入词法但在数值解析时报错
	integerUnitRe   = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Za-z_]*)(?:\s*)=(?:\s*)(?P<value>(?:[-+]?)(?:[0-9]+)(?:\.\d*)?)(?:(?:\s*)(?:\[(?P<unit>[0-9A-Za-z/_*]*)\]?))?(?:\s*)?$`)
	integerNoUnitRe = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Za-z_]*)(?:\s*)=(?:\s*)(?P<value>(?:[-+]?)(?:[0-9]+)(?:\.\d*)?)(?:\s*)$`)

	// F-9 图, 浮点数在整数基础上增加可选指数后缀
	numericUnitRe   = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Za-z_]*)(?:\s*)=(?:\s*)(?P<value>(?:[-+]?)(?:[0-9]+)(?:\.\d*)?(?:[eE][+-]?(?:\d+))?)(?:(?:\s*)(?:\[(?P<unit>[0-9A-Za-z/_*]*)\]?))?(?:\s*)?$`)
	numericNoUnitRe = regexp.MustCompile(`^(?:\s*)(?P<keyword>[0-9A-Za-z_]*)(?:\s*)=(?:\s*)(?P<value>(?:[-+]?)(?:[0-9]+)(?:\.\d*)?(?:[eE][+-]?(?:\d+))?)(?:\s*)?$`)

	// F-5 图的放宽版: 年固定 4 位, 月/日/时/分 1-2 位, 秒 0-2 位加可选小数
	dateTimeRe = regexp.MustCompile(`^(?:\s*)?(?P<keyword>[0-9A-Z_]*)(?:\s*)?=(?:\s*)?(?P<value>(?P<yr>(?:\d{4}))-(?P<mo>(?:\d{1,2}))-(?P<dy>(?:\d{1,2}))T(?P<hr>(?:\d{1,2})):(?P<mn>(?:\d{1,2})):(?P<sc>(?:\d{0,2}(?:\.\d*)?)))(?:\s*)?$`)
)

// matchGroups 返回命名分组的捕获内容, 未参与匹配的分组不出现在结果里,
// 以便区分"没有单位"和"空单位"
func matchGroups(re *regexp.Regexp, input string) (map[string]string, bool) {
	idx := re.FindStringSubmatchIndex(input)
	if idx == nil {
		return nil, false
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || idx[2*i] < 0 {
			continue
		}
		groups[name] = input[idx[2*i]:idx[2*i+1]]
	}
	return groups, true
}

// isEmptyValue 的检查必须先于完整语法执行,
// 用于区分"没有值"和"值格式错误"两种错误
func isEmptyValue(line string) bool {
	return emptyValueRe.MatchString(line)
}

// LineMatchesKeyword 判断一行的前导关键字是否等于期望的关键字.
// 只看关键字不解析值, 供前瞻使用; 提取本身在结构上总能成功
func LineMatchesKeyword(keyword, line string) bool {
	m := keywordRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return strings.TrimRightFunc(m[1], unicode.IsSpace) == keyword
}

// ParseStringLine 解析字符串类型的 KVN 行.
// COMMENT 开头的行按 7.8.5 节原样保留注释正文中的空白, 且允许为空
func ParseStringLine(line string) (Value[string], error) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if strings.HasPrefix(trimmed, "COMMENT ") {
		value := strings.TrimLeftFunc(strings.TrimPrefix(trimmed, "COMMENT"), unicode.IsSpace)
		return Value[string]{Value: value}, nil
	}

	if isEmptyValue(line) {
		return Value[string]{}, &StringParseError{Kind: LineErrEmptyValue, Input: line}
	}

	groups, ok := matchGroups(stringLineRe, line)
	if !ok {
		return Value[string]{}, &StringParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	keyword := strings.TrimRightFunc(groups["keyword"], unicode.IsSpace)
	if keyword == "" {
		return Value[string]{}, &StringParseError{Kind: LineErrEmptyKeyword, Input: line}
	}

	value := strings.TrimRightFunc(groups["value"], unicode.IsSpace)
	if value == "" {
		return Value[string]{}, &StringParseError{Kind: LineErrEmptyValue, Input: line}
	}

	return Value[string]{Value: value}, nil
}

// Integer 约束整数行的目标宽度和符号性
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ParseIntegerLine 解析整数类型的 KVN 行, withUnit 控制是否接受方括号单位后缀.
// 捕获到小数部分或超出目标类型范围都按格式错误处理
func ParseIntegerLine[T Integer](line string, withUnit bool) (Value[T], error) {
	if isEmptyValue(line) {
		return Value[T]{}, &NumberParseError{Kind: LineErrEmptyValue, Input: line}
	}

	re := integerNoUnitRe
	if withUnit {
		re = integerUnitRe
	}

	groups, ok := matchGroups(re, line)
	if !ok {
		return Value[T]{}, &NumberParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	keyword := strings.TrimRightFunc(groups["keyword"], unicode.IsSpace)
	if keyword == "" {
		return Value[T]{}, &NumberParseError{Kind: LineErrEmptyKeyword, Input: line}
	}

	value, err := parseInteger[T](groups["value"])
	if err != nil {
		return Value[T]{}, &NumberParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	return Value[T]{Value: value, Unit: unitOf(groups)}, nil
}

// parseInteger 按目标类型的符号性和宽度解析十进制整数
func parseInteger[T Integer](raw string) (T, error) {
	var zero T
	if signed := zero-1 < zero; signed {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return zero, err
		}
		out := T(v)
		if int64(out) != v {
			return zero, strconv.ErrRange
		}
		return out, nil
	}
	// ParseUint 不接受正号前缀
	raw = strings.TrimPrefix(raw, "+")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return zero, err
	}
	out := T(v)
	if uint64(out) != v {
		return zero, strconv.ErrRange
	}
	return out, nil
}

// ParseNumericLine 解析浮点数类型的 KVN 行, 数值解析与系统 locale 无关
func ParseNumericLine(line string, withUnit bool) (Value[float64], error) {
	if isEmptyValue(line) {
		return Value[float64]{}, &NumberParseError{Kind: LineErrEmptyValue, Input: line}
	}

	re := numericNoUnitRe
	if withUnit {
		re = numericUnitRe
	}

	groups, ok := matchGroups(re, line)
	if !ok {
		return Value[float64]{}, &NumberParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	keyword := strings.TrimRightFunc(groups["keyword"], unicode.IsSpace)
	if keyword == "" {
		return Value[float64]{}, &NumberParseError{Kind: LineErrEmptyKeyword, Input: line}
	}

	value, err := strconv.ParseFloat(groups["value"], 64)
	if err != nil {
		return Value[float64]{}, &NumberParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	return Value[float64]{Value: value, Unit: unitOf(groups)}, nil
}

// ParseDateTimeLine 解析日期时间类型的 KVN 行.
// 秒按 floor 拆成整数秒和小数秒, 匹配到的原始子串保留在 FullValue 中
func ParseDateTimeLine(line string) (DateTimeValue, error) {
	if isEmptyValue(line) {
		return DateTimeValue{}, &DateTimeParseError{Kind: LineErrEmptyValue, Input: line}
	}

	groups, ok := matchGroups(dateTimeRe, line)
	if !ok {
		return DateTimeValue{}, &DateTimeParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	keyword := strings.TrimRightFunc(groups["keyword"], unicode.IsSpace)
	if keyword == "" {
		return DateTimeValue{}, &DateTimeParseError{Kind: LineErrEmptyKeyword, Input: line}
	}

	// 位数由正则保证, 这里的解析不会失败
	year, _ := strconv.ParseUint(groups["yr"], 10, 16)
	month, _ := strconv.ParseUint(groups["mo"], 10, 8)
	day, _ := strconv.ParseUint(groups["dy"], 10, 8)
	hour, _ := strconv.ParseUint(groups["hr"], 10, 8)
	minute, _ := strconv.ParseUint(groups["mn"], 10, 8)

	// 秒分组允许整数位为空, 比如 "T05:33:.5", 此时整串可能解析失败
	fullSecond, err := strconv.ParseFloat(groups["sc"], 64)
	if err != nil {
		return DateTimeValue{}, &DateTimeParseError{Kind: LineErrInvalidFormat, Input: line}
	}

	return DateTimeValue{
		Year:             uint16(year),
		Month:            uint8(month),
		Day:              uint8(day),
		Hour:             uint8(hour),
		Minute:           uint8(minute),
		Second:           uint8(math.Floor(fullSecond)),
		FractionalSecond: fullSecond - math.Floor(fullSecond),
		FullValue:        groups["value"],
	}, nil
}

// unitOf 提取可选的单位分组, 分组未参与匹配时返回 nil
func unitOf(groups map[string]string) *string {
	if unit, ok := groups["unit"]; ok {
		return &unit
	}
	return nil
}
