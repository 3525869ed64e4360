package kvn

// Kind 是字段值的词法种类, 决定一行用哪个词法器解析
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// KindFromString 解析种类名, 未知名称按字符串处理
func KindFromString(s string) Kind {
	switch s {
	case "integer":
		return KindInteger
	case "float":
		return KindFloat
	case "datetime":
		return KindDateTime
	default:
		return KindString
	}
}

// PairSchema 描述数值+单位复合字段的两个目标属性.
// 复合字段只消费一行: 单位在同一行的方括号后缀里, 不占单独的行
type PairSchema struct {
	ValueName string // 数值属性名
	UnitName  string // 单位属性名
}

// Field 描述目标记录的一个字段
type Field struct {
	Name     string      // 目标字段名
	Keywords []string    // 可接受的关键字, 第一个为规范拼写, 其余为别名
	Kind     Kind        // 词法种类
	WithUnit bool        // 是否接受方括号单位后缀
	Required bool        // 必填字段匹配失败时整条记录失败
	Default  any         // 可选字段未命中时的缺省值, 可为 nil
	Pair     *PairSchema // 非空表示数值+单位复合字段
}

// Schema 是目标记录按声明顺序排列的字段集合.
// 每种记录类型构造一次, 之后只读, 可被并发的解析调用共享
type Schema struct {
	Name   string // 记录类型名, 如 OPM
	Fields []Field
}
