package kvn

import "fmt"

// LineErrorKind 是单行词法错误的种类
type LineErrorKind int

const (
	LineErrEmptyKeyword LineErrorKind = iota // = 号前没有关键字
	LineErrEmptyValue                        // 关键字存在但值为空, 含只剩方括号的情况
	LineErrInvalidFormat                     // 整行结构不符合语法
)

func (k LineErrorKind) String() string {
	switch k {
	case LineErrEmptyKeyword:
		return "EmptyKeyword"
	case LineErrEmptyValue:
		return "EmptyValue"
	case LineErrInvalidFormat:
		return "InvalidFormat"
	default:
		return "Unknown"
	}
}

// StringParseError 是字符串行词法错误
type StringParseError struct {
	Kind  LineErrorKind
	Input string
}

func (e *StringParseError) Error() string {
	return fmt.Sprintf("字符串行解析失败(%s): %q", e.Kind, e.Input)
}

// NumberParseError 是整数/浮点数行词法错误
type NumberParseError struct {
	Kind  LineErrorKind
	Input string
}

func (e *NumberParseError) Error() string {
	return fmt.Sprintf("数值行解析失败(%s): %q", e.Kind, e.Input)
}

// DateTimeParseError 是日期时间行词法错误
type DateTimeParseError struct {
	Kind  LineErrorKind
	Input string
}

func (e *DateTimeParseError) Error() string {
	return fmt.Sprintf("日期时间行解析失败(%s): %q", e.Kind, e.Input)
}

// KeywordNotFoundError 表示下一行的关键字不是期望的关键字, 或行序列已耗尽
type KeywordNotFoundError struct {
	Expected string
}

func (e *KeywordNotFoundError) Error() string {
	return fmt.Sprintf("未找到期望的关键字: %s", e.Expected)
}

// ErrorCode 是归一化后的反序列化错误码
type ErrorCode int

const (
	EmptyKeyword ErrorCode = iota
	EmptyValue
	InvalidStringFormat
	InvalidDateTimeFormat // 数值和日期时间的格式错误共用这一个码
	KeywordNotFound
)

func (c ErrorCode) String() string {
	switch c {
	case EmptyKeyword:
		return "EmptyKeyword"
	case EmptyValue:
		return "EmptyValue"
	case InvalidStringFormat:
		return "InvalidStringFormat"
	case InvalidDateTimeFormat:
		return "InvalidDateTimeFormat"
	case KeywordNotFound:
		return "KeywordNotFound"
	default:
		return "Unknown"
	}
}

// DeserializerError 是统一的反序列化错误, 携带出错的原始行文本
type DeserializerError struct {
	Code     ErrorCode
	Input    string // 出错行的原始文本
	Expected string // 仅 KeywordNotFound 时有效
}

func (e *DeserializerError) Error() string {
	if e.Code == KeywordNotFound {
		return fmt.Sprintf("反序列化失败(%s): 期望关键字 %s", e.Code, e.Expected)
	}
	return fmt.Sprintf("反序列化失败(%s): %q", e.Code, e.Input)
}

// normalizeError 把各词法错误族映射成统一的 DeserializerError.
// 注意数值格式错误与日期时间格式错误在这里合并成同一个错误码,
// 调用方只能通过当时解析的是哪个字段区分二者
func normalizeError(err error) *DeserializerError {
	switch e := err.(type) {
	case *DeserializerError:
		return e
	case *StringParseError:
		switch e.Kind {
		case LineErrEmptyKeyword:
			return &DeserializerError{Code: EmptyKeyword, Input: e.Input}
		case LineErrEmptyValue:
			return &DeserializerError{Code: EmptyValue, Input: e.Input}
		default:
			return &DeserializerError{Code: InvalidStringFormat, Input: e.Input}
		}
	case *NumberParseError:
		switch e.Kind {
		case LineErrEmptyKeyword:
			return &DeserializerError{Code: EmptyKeyword, Input: e.Input}
		case LineErrEmptyValue:
			return &DeserializerError{Code: EmptyValue, Input: e.Input}
		default:
			return &DeserializerError{Code: InvalidDateTimeFormat, Input: e.Input}
		}
	case *DateTimeParseError:
		switch e.Kind {
		case LineErrEmptyKeyword:
			return &DeserializerError{Code: EmptyKeyword, Input: e.Input}
		case LineErrEmptyValue:
			return &DeserializerError{Code: EmptyValue, Input: e.Input}
		default:
			return &DeserializerError{Code: InvalidDateTimeFormat, Input: e.Input}
		}
	case *KeywordNotFoundError:
		return &DeserializerError{Code: KeywordNotFound, Expected: e.Expected}
	default:
		return &DeserializerError{Code: InvalidStringFormat, Input: err.Error()}
	}
}
