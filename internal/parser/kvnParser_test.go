package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndmgate/internal/pkg"
)

const sampleOmm = `CCSDS_OMM_VERS = 2.0
CREATION_DATE = 2021-06-03T05:33:00
ORIGINATOR = NOAA
OBJECT_NAME = GOES-9
OBJECT_ID = 1995-025A
CENTER_NAME = EARTH
REF_FRAME = TEME
TIME_SYSTEM = UTC
MEAN_ELEMENT_THEORY = SGP4
EPOCH = 2020-12-20T18:50:28.0
MEAN_MOTION = 1.00273272 [rev/day]
ECCENTRICITY = 0.0005013
INCLINATION = 3.0539 [deg]
RA_OF_ASC_NODE = 81.7939 [deg]
ARG_OF_PERICENTER = 249.2363 [deg]
MEAN_ANOMALY = 150.1602 [deg]`

func TestSplitLines(t *testing.T) {
	lines := SplitLines([]byte("A = 1\r\n\r\n  \nB = 2\n"))
	assert.Equal(t, []string{"A = 1", "B = 2"}, lines, "空行和回车应被清理")
}

func TestParseMessage(t *testing.T) {
	ctx := context.Background()

	rp, err := ParseMessage(ctx, []byte(sampleOmm))
	require.NoError(t, err, "合法的 OMM 报文应解析成功")
	require.Len(t, rp.Records, 1)

	record := rp.Records[0]
	assert.Equal(t, "OMM", record.MessageType)
	assert.Equal(t, "2.0", record.Fields["version"])
	assert.Equal(t, 0.0005013, record.Fields["eccentricity"])
	assert.Equal(t, map[string]any{"base": 1.00273272, "units": "rev/day"}, record.Fields["mean_motion"])
	assert.NotEqual(t, record.Id.String(), rp.FrameId.String(), "记录 id 与帧 id 应各自生成")
}

func TestParseMessageErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ParseMessage(ctx, []byte("CCSDS_XYZ_VERS = 1.0"))
	assert.Error(t, err, "未注册的消息类型应报错")

	_, err = ParseMessage(ctx, []byte("   \n  "))
	assert.Error(t, err, "空报文应报错")

	// 必填字段缺失, 整条报文失败
	_, err = ParseMessage(ctx, []byte("CCSDS_OMM_VERS = 2.0\nORIGINATOR = NOAA"))
	assert.Error(t, err)
}

func TestKvnParserStart(t *testing.T) {
	ctx, cancel := context.WithCancel(pkg.WithConfig(context.Background(), &pkg.Config{
		Parser: pkg.ParserConfig{Type: "kvn"},
	}))
	defer cancel()

	source := pkg.NewMessageDataSource()
	outChan := make(pkg.Parser2DispatcherChan, 10)

	p, err := New(ctx, source, outChan)
	require.NoError(t, err, "kvn 解析器应注册成功")
	p.Start()

	require.NoError(t, source.WriteOne([]byte(sampleOmm)))
	close(source.DataChan)

	select {
	case rp := <-outChan:
		assert.Equal(t, "OMM", rp.Records[0].MessageType)
	case <-time.After(2 * time.Second):
		t.Fatal("等待记录包超时")
	}
}

func TestNewUnknownType(t *testing.T) {
	ctx := pkg.WithConfig(context.Background(), &pkg.Config{
		Parser: pkg.ParserConfig{Type: "nope"},
	})
	_, err := New(ctx, pkg.NewMessageDataSource(), make(pkg.Parser2DispatcherChan))
	assert.Error(t, err, "未注册的解析器类型应报错")
}
