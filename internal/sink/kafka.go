package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

func init() {
	Register("kafka", NewKafkaSink)
}

// KafkaSinkConfig 包含 Kafka 发送端特定的配置
type KafkaSinkConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	Async           bool     `mapstructure:"async"`
	WriteTimeoutSec int      `mapstructure:"writeTimeoutSec"`
	RequiredAcks    int      `mapstructure:"requiredAcks"` // -1 全部 ISR, 0 不确认, 其他值单副本确认
}

// KafkaSink 把记录包批量发往 Kafka, 每条记录一条 JSON 消息
type KafkaSink struct {
	writer *kafka.Writer
	config KafkaSinkConfig
	logger *zap.Logger
	ctx    context.Context
}

// NewKafkaSink 构造 Kafka 发送端
func NewKafkaSink(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	para, found := sinkPara(config, "kafka")
	if !found {
		return nil, fmt.Errorf("没有启用的 kafka 发送端配置")
	}

	var cfg KafkaSinkConfig
	if err := mapstructure.Decode(para, &cfg); err != nil {
		return nil, fmt.Errorf("kafka 配置解析失败: %w", err)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka 配置缺少 brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka 配置缺少 topic")
	}
	if cfg.WriteTimeoutSec == 0 {
		cfg.WriteTimeoutSec = 10
	}

	acks := kafka.RequireOne
	switch cfg.RequiredAcks {
	case -1:
		acks = kafka.RequireAll
	case 0:
		acks = kafka.RequireNone
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		RequiredAcks: acks,
		Async:        cfg.Async,
	}

	logger := pkg.LoggerFromContext(ctx).With(
		zap.String("sink_type", "kafka"),
		zap.String("topic", cfg.Topic))
	logger.Info("Kafka发送端已初始化",
		zap.Strings("brokers", cfg.Brokers),
		zap.Bool("async", cfg.Async))

	return &KafkaSink{
		writer: writer,
		config: cfg,
		logger: logger,
		ctx:    ctx,
	}, nil
}

func (ks *KafkaSink) GetType() string {
	return "kafka"
}

// Start 消费记录包通道并批量写入 Kafka
func (ks *KafkaSink) Start(recordChan chan *pkg.RecordPackage) {
	metrics := pkg.GetPerformanceMetrics()
	ks.logger.Info("===KafkaSink已启动===")

	defer func() {
		if err := ks.writer.Close(); err != nil {
			ks.logger.Error("关闭Kafka writer失败", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ks.ctx.Done():
			ks.logger.Info("===KafkaSink停止===")
			return
		case rp, ok := <-recordChan:
			if !ok {
				ks.logger.Info("输入通道关闭, KafkaSink停止")
				return
			}
			if rp == nil || len(rp.Records) == 0 {
				continue
			}

			metrics.IncMsgReceived("kafka_sink")
			sendTimer := metrics.NewTimer("kafka_sink_send_batch")

			messages := BuildKafkaMessages(rp, ks.logger)
			if len(messages) == 0 {
				sendTimer.Stop()
				continue
			}

			err := ks.writer.WriteMessages(ks.ctx, messages...)
			duration := sendTimer.StopAndLog(ks.logger)

			if err != nil {
				if ks.ctx.Err() != nil {
					// 关停过程中的取消不算错误
					continue
				}
				metrics.IncErrorCount()
				metrics.IncMsgErrors("kafka_sink_write")
				ks.logger.Error("写入Kafka失败",
					zap.Error(err),
					zap.Int("batch_size", len(messages)),
					zap.String("frame_id", rp.FrameId.String()))
			} else {
				metrics.IncMsgParsed("kafka_sink")
				ks.logger.Debug("批次已发往Kafka",
					zap.Int("count", len(messages)),
					zap.Duration("duration", duration))
			}
		}
	}
}

// BuildKafkaMessages 把记录包转换成 Kafka 消息批次.
// 消息 key 取消息类型, 同类型消息落在同一分区保持顺序
func BuildKafkaMessages(rp *pkg.RecordPackage, logger *zap.Logger) []kafka.Message {
	messages := make([]kafka.Message, 0, len(rp.Records))
	for _, record := range rp.Records {
		if record == nil {
			continue
		}

		payload := map[string]any{
			"record_id": record.Id.String(),
			"frame_id":  rp.FrameId.String(),
			"type":      record.MessageType,
			"fields":    record.Fields,
			"comments":  record.Comments,
			"ts":        record.Ts.UnixNano(),
		}
		jsonData, err := json.Marshal(payload)
		if err != nil {
			logger.Error("记录序列化失败",
				zap.Error(err),
				zap.String("record", record.Id.String()))
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(record.MessageType),
			Value: jsonData,
			Time:  rp.Ts,
		})
	}
	return messages
}
