package sink

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

func init() {
	Register("influxdb", NewInfluxDbSink)
}

// InfluxDbInfo InfluxDB 的专属配置
type InfluxDbInfo struct {
	URL       string   `mapstructure:"url"`
	Org       string   `mapstructure:"org"`
	Token     string   `mapstructure:"token"`
	Bucket    string   `mapstructure:"bucket"`
	BatchSize uint     `mapstructure:"batch_size"`
	Tags      []string `mapstructure:"tags"` // 字段表中作为 tag 而非 field 写入的键
}

// InfluxDbSink 把记录按消息类型作为 measurement 写入 InfluxDB,
// 数值字段写成 field, 单位和配置指定的键写成 tag
type InfluxDbSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	info     InfluxDbInfo
	ctx      context.Context
	logger   *zap.Logger
}

// NewInfluxDbSink 构造 InfluxDB 发送端
func NewInfluxDbSink(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	para, found := sinkPara(config, "influxdb")
	if !found {
		return nil, fmt.Errorf("没有启用的 influxdb 发送端配置")
	}

	var info InfluxDbInfo
	if err := mapstructure.Decode(para, &info); err != nil {
		return nil, fmt.Errorf("influxdb 配置解析失败: %w", err)
	}
	// BatchSize 为零会导致 SDK 内 /0 panic
	if info.BatchSize == 0 {
		info.BatchSize = 100
	}

	logger := pkg.LoggerFromContext(ctx).With(zap.String("sink_type", "influxdb"))
	logger.Debug("InfluxDB配置", zap.Any("info", info))

	client := influxdb2.NewClientWithOptions(info.URL, info.Token,
		influxdb2.DefaultOptions().SetBatchSize(info.BatchSize))
	writeAPI := client.WriteAPI(info.Org, info.Bucket)

	// 异步写入的错误从专用通道读出并记录
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			logger.Error("InfluxDB写入错误", zap.Error(err))
		}
	}()

	return &InfluxDbSink{
		client:   client,
		writeAPI: writeAPI,
		info:     info,
		ctx:      ctx,
		logger:   logger,
	}, nil
}

func (b *InfluxDbSink) GetType() string {
	return "influxdb"
}

// Start 消费记录包通道并写入 InfluxDB
func (b *InfluxDbSink) Start(recordChan chan *pkg.RecordPackage) {
	metrics := pkg.GetPerformanceMetrics()
	b.logger.Info("===InfluxDbSink已启动===")

	defer b.Stop()
	for {
		select {
		case <-b.ctx.Done():
			b.logger.Info("===InfluxDbSink停止===")
			return
		case rp, ok := <-recordChan:
			if !ok {
				b.logger.Info("输入通道关闭, InfluxDbSink停止")
				return
			}

			publishTimer := metrics.NewTimer("influxdb_publish")
			metrics.IncMsgReceived("influxdb")

			if err := b.Publish(rp); err != nil {
				metrics.IncErrorCount()
				metrics.IncMsgErrors("influxdb")
				reportError(b.ctx, b.logger, fmt.Errorf("InfluxDbSink 发布失败: %w", err))
			} else {
				metrics.IncMsgParsed("influxdb")
			}

			publishTimer.StopAndLog(b.logger)
		}
	}
}

// Publish 把一个记录包写成 InfluxDB 数据点
func (b *InfluxDbSink) Publish(rp *pkg.RecordPackage) error {
	tagsSet := make(map[string]struct{}, len(b.info.Tags))
	for _, tag := range b.info.Tags {
		tagsSet[tag] = struct{}{}
	}

	for _, record := range rp.Records {
		flat, units := FlattenFields(record)

		tagsMap := make(map[string]string)
		fields := make(map[string]any)
		for key, value := range flat {
			if _, isTag := tagsSet[key]; isTag {
				tagsMap[key] = tagString(value)
				continue
			}
			fields[key] = value
		}
		// 单位跟随字段名写成 tag
		for key, unit := range units {
			tagsMap[key+"_units"] = unit
		}
		tagsMap["message_type"] = record.MessageType

		if len(fields) == 0 {
			b.logger.Warn("记录没有可写入的字段", zap.String("record", record.Id.String()))
			continue
		}

		p := influxdb2.NewPoint(
			record.MessageType, // measurement
			tagsMap,
			fields,
			record.Ts,
		)
		b.writeAPI.WritePoint(p)

		b.logger.Debug("记录已写入InfluxDB",
			zap.String("record", record.Id.String()),
			zap.String("frame_id", rp.FrameId.String()))
	}
	return nil
}

// tagString 把任意字段值转成 tag 字符串
func tagString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Stop 刷出缓冲并关闭客户端
func (b *InfluxDbSink) Stop() {
	b.writeAPI.Flush()
	b.client.Close()
}
