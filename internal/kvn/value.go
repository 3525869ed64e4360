package kvn

// Value 是一行 KVN 数据解析出的值, 单位仅在行尾带方括号后缀时存在
type Value[V any] struct {
	Value V
	Unit  *string
}

// DateTimeValue 是日期时间行的分解结果.
// 只校验位数(年 4 位, 月/日/时/分 1-2 位, 秒 0-2 位), 不校验数值范围
type DateTimeValue struct {
	Year             uint16  `kvn:"year"`
	Month            uint8   `kvn:"month"`
	Day              uint8   `kvn:"day"`
	Hour             uint8   `kvn:"hour"`
	Minute           uint8   `kvn:"minute"`
	Second           uint8   `kvn:"second"`
	FractionalSecond float64 `kvn:"fractional_second"`
	FullValue        string  `kvn:"full_value"` // 匹配到的原始子串, 用于展示
}
