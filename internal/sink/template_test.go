package sink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ndmgate/internal/kvn"
	"ndmgate/internal/pkg"
)

func TestFlattenFields(t *testing.T) {
	record := &pkg.Record{
		Id:          uuid.New(),
		MessageType: "OPM",
		Fields: map[string]any{
			"originator": "GSOC",
			"x":          map[string]any{"base": 6655.9942, "units": "km"},
			"mass":       map[string]any{"base": 1913.0},
			"epoch": kvn.DateTimeValue{
				Year: 2006, Month: 6, Day: 3,
				FullValue: "2006-06-03T00:00:00.0",
			},
		},
	}

	fields, units := FlattenFields(record)

	assert.Equal(t, "GSOC", fields["originator"])
	assert.Equal(t, 6655.9942, fields["x"], "复合字段应取数值属性")
	assert.Equal(t, 1913.0, fields["mass"])
	assert.Equal(t, "2006-06-03T00:00:00.0", fields["epoch"], "日期时间字段应取原始子串")
	assert.Equal(t, map[string]string{"x": "km"}, units, "只有带单位的字段出现在单位表中")
}

func TestBuildKafkaMessages(t *testing.T) {
	ts := time.Now()
	rp := &pkg.RecordPackage{
		FrameId: uuid.New(),
		Records: []*pkg.Record{
			{
				Id:          uuid.New(),
				MessageType: "OMM",
				Fields:      map[string]any{"eccentricity": 0.0005013},
				Comments:    []string{"test"},
				Ts:          ts,
			},
			nil, // nil 记录应被跳过
		},
		Ts: ts,
	}

	messages := BuildKafkaMessages(rp, zap.NewNop())
	require.Len(t, messages, 1)
	assert.Equal(t, []byte("OMM"), messages[0].Key, "消息 key 应取消息类型")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(messages[0].Value, &payload))
	assert.Equal(t, "OMM", payload["type"])
	assert.Equal(t, rp.FrameId.String(), payload["frame_id"])
	assert.Equal(t, 0.0005013, payload["fields"].(map[string]any)["eccentricity"])
}

func TestNewAllUnknownType(t *testing.T) {
	ctx := pkg.WithConfig(context.Background(), &pkg.Config{
		Sink: []pkg.SinkConfig{{Type: "nope", Enable: true}},
	})
	_, err := NewAll(ctx)
	assert.Error(t, err, "未注册的发送端类型应报错")
}

func TestNewAllSkipsDisabled(t *testing.T) {
	ctx := pkg.WithConfig(context.Background(), &pkg.Config{
		Sink: []pkg.SinkConfig{{Type: "kafka", Enable: false}},
	})
	sinks, err := NewAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, sinks, "未启用的发送端不应被构造")
}
