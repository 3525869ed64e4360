package ndm

import "ndmgate/internal/kvn"

// Omm 是平均轨道根数消息的头部/元数据/根数子集
type Omm struct {
	Version           string            `kvn:"version"`
	CreationDate      kvn.DateTimeValue `kvn:"creation_date"`
	Originator        string            `kvn:"originator"`
	ObjectName        string            `kvn:"object_name"`
	ObjectID          string            `kvn:"object_id"`
	CenterName        string            `kvn:"center_name"`
	RefFrame          string            `kvn:"ref_frame"`
	TimeSystem        string            `kvn:"time_system"`
	MeanElementTheory string            `kvn:"mean_element_theory"`
	Epoch             kvn.DateTimeValue `kvn:"epoch"`
	MeanMotion        ValueUnit         `kvn:"mean_motion"`
	Eccentricity      float64           `kvn:"eccentricity"`
	Inclination       ValueUnit         `kvn:"inclination"`
	RaOfAscNode       ValueUnit         `kvn:"ra_of_asc_node"`
	ArgOfPericenter   ValueUnit         `kvn:"arg_of_pericenter"`
	MeanAnomaly       ValueUnit         `kvn:"mean_anomaly"`
	Gm                *ValueUnit        `kvn:"gm"`
}

// OmmSchema 构造 OMM 的字段模式
func OmmSchema() *kvn.Schema {
	pair := &kvn.PairSchema{ValueName: "base", UnitName: "units"}
	return &kvn.Schema{
		Name: "OMM",
		Fields: []kvn.Field{
			{Name: "version", Keywords: []string{"CCSDS_OMM_VERS"}, Kind: kvn.KindString, Required: true},
			{Name: "creation_date", Keywords: []string{"CREATION_DATE"}, Kind: kvn.KindDateTime, Required: true},
			{Name: "originator", Keywords: []string{"ORIGINATOR"}, Kind: kvn.KindString, Required: true},
			{Name: "object_name", Keywords: []string{"OBJECT_NAME"}, Kind: kvn.KindString, Required: true},
			{Name: "object_id", Keywords: []string{"OBJECT_ID"}, Kind: kvn.KindString, Required: true},
			{Name: "center_name", Keywords: []string{"CENTER_NAME"}, Kind: kvn.KindString, Required: true},
			{Name: "ref_frame", Keywords: []string{"REF_FRAME", "REFERENCE_FRAME"}, Kind: kvn.KindString, Required: true},
			{Name: "time_system", Keywords: []string{"TIME_SYSTEM"}, Kind: kvn.KindString, Required: true},
			{Name: "mean_element_theory", Keywords: []string{"MEAN_ELEMENT_THEORY"}, Kind: kvn.KindString, Required: true},
			{Name: "epoch", Keywords: []string{"EPOCH"}, Kind: kvn.KindDateTime, Required: true},
			{Name: "mean_motion", Keywords: []string{"MEAN_MOTION"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "eccentricity", Keywords: []string{"ECCENTRICITY"}, Kind: kvn.KindFloat, Required: true},
			{Name: "inclination", Keywords: []string{"INCLINATION"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "ra_of_asc_node", Keywords: []string{"RA_OF_ASC_NODE"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "arg_of_pericenter", Keywords: []string{"ARG_OF_PERICENTER"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "mean_anomaly", Keywords: []string{"MEAN_ANOMALY"}, Kind: kvn.KindFloat, WithUnit: true, Required: true, Pair: pair},
			{Name: "gm", Keywords: []string{"GM"}, Kind: kvn.KindFloat, WithUnit: true, Pair: pair},
		},
	}
}

func init() {
	Register(&Message{
		Type:           "OMM",
		VersionKeyword: "CCSDS_OMM_VERS",
		Schema:         OmmSchema(),
	})
}
