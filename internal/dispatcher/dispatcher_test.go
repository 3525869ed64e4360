package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndmgate/internal/pkg"
)

func testRecord(msgType string, fields map[string]any) *pkg.Record {
	return &pkg.Record{
		Id:          uuid.New(),
		MessageType: msgType,
		Fields:      fields,
		Ts:          time.Now(),
	}
}

func testCtx(sinks ...pkg.SinkConfig) context.Context {
	return pkg.WithConfig(context.Background(), &pkg.Config{Sink: sinks})
}

func TestDispatchByType(t *testing.T) {
	ctx := testCtx(
		pkg.SinkConfig{Type: "kafka", Enable: true, Filter: []string{`type == "OPM"`}},
		pkg.SinkConfig{Type: "influxdb", Enable: true},
		pkg.SinkConfig{Type: "mqtt", Enable: false, Filter: []string{`type == "OMM"`}},
	)

	d, err := NewDispatcher(ctx, make(pkg.Parser2DispatcherChan), pkg.Dispatch2SinkChan{})
	require.NoError(t, err, "合法的过滤表达式应编译成功")

	rp := &pkg.RecordPackage{
		FrameId: uuid.New(),
		Records: []*pkg.Record{
			testRecord("OPM", map[string]any{"originator": "GSOC"}),
			testRecord("OMM", map[string]any{"originator": "NOAA"}),
		},
		Ts: time.Now(),
	}

	out := d.Dispatch(rp)

	require.Contains(t, out, "kafka")
	assert.Len(t, out["kafka"].Records, 1, "kafka 只应收到 OPM 记录")
	assert.Equal(t, "OPM", out["kafka"].Records[0].MessageType)

	require.Contains(t, out, "influxdb")
	assert.Len(t, out["influxdb"].Records, 2, "没有过滤条件的 sink 应全量放行")

	assert.NotContains(t, out, "mqtt", "未启用的 sink 不应参与路由")
	assert.Equal(t, rp.FrameId, out["kafka"].FrameId, "子包应保留帧 id")
}

func TestDispatchByField(t *testing.T) {
	ctx := testCtx(
		pkg.SinkConfig{Type: "kafka", Enable: true, Filter: []string{
			`type == "OMM"`,
			`fields.eccentricity < 0.001`,
		}},
	)

	d, err := NewDispatcher(ctx, make(pkg.Parser2DispatcherChan), pkg.Dispatch2SinkChan{})
	require.NoError(t, err)

	out := d.Dispatch(&pkg.RecordPackage{
		FrameId: uuid.New(),
		Records: []*pkg.Record{
			testRecord("OMM", map[string]any{"eccentricity": 0.0005013}),
			testRecord("OMM", map[string]any{"eccentricity": 0.7}),
		},
	})

	require.Contains(t, out, "kafka")
	assert.Len(t, out["kafka"].Records, 1, "多个过滤条件应按 && 组合")
	assert.Equal(t, 0.0005013, out["kafka"].Records[0].Fields["eccentricity"])
}

func TestDispatchNoMatch(t *testing.T) {
	ctx := testCtx(pkg.SinkConfig{Type: "kafka", Enable: true, Filter: []string{`type == "TDM"`}})

	d, err := NewDispatcher(ctx, make(pkg.Parser2DispatcherChan), pkg.Dispatch2SinkChan{})
	require.NoError(t, err)

	out := d.Dispatch(&pkg.RecordPackage{
		Records: []*pkg.Record{testRecord("OPM", nil)},
	})
	assert.Empty(t, out, "全部未命中时不应产生子包")
}

func TestNewDispatcherBadFilter(t *testing.T) {
	ctx := testCtx(pkg.SinkConfig{Type: "kafka", Enable: true, Filter: []string{`type ==`}})

	_, err := NewDispatcher(ctx, make(pkg.Parser2DispatcherChan), pkg.Dispatch2SinkChan{})
	assert.Error(t, err, "非法表达式应在启动时报错而不是运行期")
}

func TestDispatcherStart(t *testing.T) {
	ctx, cancel := context.WithCancel(testCtx(pkg.SinkConfig{Type: "kafka", Enable: true}))
	defer cancel()

	inChan := make(pkg.Parser2DispatcherChan, 1)
	kafkaChan := make(chan *pkg.RecordPackage, 1)
	d, err := NewDispatcher(ctx, inChan, pkg.Dispatch2SinkChan{"kafka": kafkaChan})
	require.NoError(t, err)
	d.Start()

	inChan <- &pkg.RecordPackage{Records: []*pkg.Record{testRecord("OPM", nil)}}

	select {
	case rp := <-kafkaChan:
		assert.Len(t, rp.Records, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("等待路由结果超时")
	}
}
