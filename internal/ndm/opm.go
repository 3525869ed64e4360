package ndm

import "ndmgate/internal/kvn"

// ValueUnit 是数值+可选单位复合字段的通用目标形状
type ValueUnit struct {
	Base  float64 `kvn:"base" json:"base"`
	Units *string `kvn:"units" json:"units,omitempty"`
}

// Opm 是轨道参数消息的头部/元数据/状态向量子集
type Opm struct {
	Version      string            `kvn:"version"`
	CreationDate kvn.DateTimeValue `kvn:"creation_date"`
	Originator   string            `kvn:"originator"`
	ObjectName   string            `kvn:"object_name"`
	ObjectID     string            `kvn:"object_id"`
	CenterName   string            `kvn:"center_name"`
	RefFrame     string            `kvn:"ref_frame"`
	TimeSystem   string            `kvn:"time_system"`
	Epoch        kvn.DateTimeValue `kvn:"epoch"`
	X            ValueUnit         `kvn:"x"`
	Y            ValueUnit         `kvn:"y"`
	Z            ValueUnit         `kvn:"z"`
	XDot         ValueUnit         `kvn:"x_dot"`
	YDot         ValueUnit         `kvn:"y_dot"`
	ZDot         ValueUnit         `kvn:"z_dot"`
	Mass         *ValueUnit        `kvn:"mass"`
}

// OpmSchema 构造 OPM 的字段模式.
// REF_FRAME 在历史消息中常被写成 REFERENCE_FRAME, 按别名接受
func OpmSchema() *kvn.Schema {
	pair := &kvn.PairSchema{ValueName: "base", UnitName: "units"}
	return &kvn.Schema{
		Name: "OPM",
		Fields: []kvn.Field{
			{Name: "version", Keywords: []string{"CCSDS_OPM_VERS"}, Kind: kvn.KindString, Required: true},
			{Name: "creation_date", Keywords: []string{"CREATION_DATE"}, Kind: kvn.KindDateTime, Required: true},
			{Name: "originator", Keywords: []string{"ORIGINATOR"}, Kind: kvn.KindString, Required: true},
			{Name: "object_name", Keywords: []string{"OBJECT_NAME"}, Kind: kvn.KindString, Required: true},
			{Name: "object_id", Keywords: []string{"OBJECT_ID"}, Kind: kvn.KindString, Required: true},
			{Name: "center_name", Keywords: []string{"CENTER_NAME"}, Kind: kvn.KindString, Required: true},
			{Name: "ref_frame", Keywords: []string{"REF_FRAME", "REFERENCE_FRAME"}, Kind: kvn.KindString, Required: true},
			{Name: "time_system", Keywords: []string{"TIME_SYSTEM"}, Kind: kvn.KindString, Required: true},
			{Name: "epoch", Keywords: []string{"EPOCH"}, Kind: kvn.KindDateTime, Required: true},
			{Name: "x", Keywords: []string{"X"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "y", Keywords: []string{"Y"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "z", Keywords: []string{"Z"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "x_dot", Keywords: []string{"X_DOT"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "y_dot", Keywords: []string{"Y_DOT"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "z_dot", Keywords: []string{"Z_DOT"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "mass", Keywords: []string{"MASS"}, Kind: kvn.KindFloat, WithUnit: true, Pair: pair},
		},
	}
}

func init() {
	Register(&Message{
		Type:           "OPM",
		VersionKeyword: "CCSDS_OPM_VERS",
		Schema:         OpmSchema(),
	})
}
