package ndm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ndmgate/internal/kvn"
)

const sampleOpm = `CCSDS_OPM_VERS = 2.0
CREATION_DATE = 2021-06-03T05:33:00.123
ORIGINATOR = GSOC
COMMENT GEOCENTRIC, CARTESIAN, EARTH FIXED
OBJECT_NAME = EUTELSAT W4
OBJECT_ID = 2000-028A
CENTER_NAME = EARTH
REF_FRAME = TOD
TIME_SYSTEM = UTC
EPOCH = 2006-06-03T00:00:00.0
X = 6655.9942 [km]
Y = -40218.5751 [km]
Z = -82.9177 [km]
X_DOT = 3.11548208 [km/s]
Y_DOT = 0.47042605 [km/s]
Z_DOT = -0.00101495 [km/s]
MASS = 1913.000 [kg]`

func TestDetect(t *testing.T) {
	Convey("给定内置的消息类型目录", t, func() {
		Convey("OPM 消息应按版本关键字被识别", func() {
			m, err := Detect(strings.Split(sampleOpm, "\n"))
			So(err, ShouldBeNil)
			So(m.Type, ShouldEqual, "OPM")
		})

		Convey("前导注释和空行不影响识别", func() {
			m, err := Detect([]string{"", "COMMENT header", "  CCSDS_OMM_VERS = 2.0"})
			So(err, ShouldBeNil)
			So(m.Type, ShouldEqual, "OMM")
		})

		Convey("未注册的版本关键字应报错", func() {
			_, err := Detect([]string{"CCSDS_XYZ_VERS = 1.0"})
			So(err, ShouldNotBeNil)
		})

		Convey("空消息应报错", func() {
			_, err := Detect([]string{"", "   "})
			So(err, ShouldNotBeNil)
		})

		Convey("Types 应包含内置类型", func() {
			So(Types(), ShouldContain, "OPM")
			So(Types(), ShouldContain, "OMM")
		})
	})
}

func TestOpmDeserialize(t *testing.T) {
	Convey("给定一条完整的 OPM 消息", t, func() {
		lines := strings.Split(sampleOpm, "\n")
		m, err := Detect(lines)
		So(err, ShouldBeNil)

		result, derr := kvn.Deserialize(m.Schema, kvn.NewLines(lines))
		So(derr, ShouldBeNil)

		Convey("结果应能解码进 Opm 结构体", func() {
			var opm Opm
			So(kvn.DecodeInto(result, &opm), ShouldBeNil)

			So(opm.Version, ShouldEqual, "2.0")
			So(opm.Originator, ShouldEqual, "GSOC")
			So(opm.ObjectName, ShouldEqual, "EUTELSAT W4")
			So(opm.CreationDate.Year, ShouldEqual, 2021)
			So(opm.CreationDate.FractionalSecond, ShouldAlmostEqual, 0.123)
			So(opm.Epoch.FullValue, ShouldEqual, "2006-06-03T00:00:00.0")
			So(opm.X.Base, ShouldAlmostEqual, 6655.9942)
			So(*opm.X.Units, ShouldEqual, "km")
			So(opm.ZDot.Base, ShouldAlmostEqual, -0.00101495)
			So(opm.Mass, ShouldNotBeNil)
			So(opm.Mass.Base, ShouldAlmostEqual, 1913.0)
		})

		Convey("数据行之间的注释应被收集", func() {
			So(result.Comments, ShouldResemble, []string{"GEOCENTRIC, CARTESIAN, EARTH FIXED"})
		})
	})

	Convey("缺少必填字段的 OPM 消息应整条失败", t, func() {
		lines := []string{
			"CCSDS_OPM_VERS = 2.0",
			"CREATION_DATE = 2021-06-03T05:33:00",
			// ORIGINATOR 缺失
			"OBJECT_NAME = EUTELSAT W4",
		}
		_, derr := kvn.Deserialize(OpmSchema(), kvn.NewLines(lines))
		So(derr, ShouldNotBeNil)
		So(derr.Code, ShouldEqual, kvn.KeywordNotFound)
		So(derr.Expected, ShouldEqual, "ORIGINATOR")
	})
}

func TestSchemaFile(t *testing.T) {
	Convey("给定一份 yaml 模式定义", t, func() {
		def := `type: TDM_LITE
version_keyword: CCSDS_TDM_VERS
fields:
  - name: version
    keywords: [CCSDS_TDM_VERS]
    kind: string
    required: true
  - name: range
    keywords: [RANGE]
    kind: float
    with_unit: true
    pair:
      value_name: base
      unit_name: units
`
		dir := t.TempDir()
		path := filepath.Join(dir, "tdm.yaml")
		So(os.WriteFile(path, []byte(def), 0o644), ShouldBeNil)

		Convey("应能从目录加载并注册", func() {
			count, err := LoadSchemaDir(dir)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)

			m, ok := Lookup("CCSDS_TDM_VERS")
			So(ok, ShouldBeTrue)
			So(m.Type, ShouldEqual, "TDM_LITE")
			So(m.Schema.Fields[1].Pair.UnitName, ShouldEqual, "units")
		})

		Convey("缺少 version_keyword 的定义应报错", func() {
			bad := &SchemaFile{Type: "BAD", Fields: []FieldDef{{Name: "x", Keywords: []string{"X"}}}}
			_, err := bad.BuildSchema()
			So(err, ShouldNotBeNil)
		})

		Convey("字段缺少 keywords 的定义应报错", func() {
			bad := &SchemaFile{Type: "BAD", VersionKeyword: "V", Fields: []FieldDef{{Name: "x"}}}
			_, err := bad.BuildSchema()
			So(err, ShouldNotBeNil)
		})
	})
}
