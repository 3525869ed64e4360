package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

func init() {
	Register("mqtt", NewMqttSink)
}

// MqttSinkConfig MQTT 发送端的专属配置
type MqttSinkConfig struct {
	Broker               string        `mapstructure:"broker"`
	ClientID             string        `mapstructure:"clientID"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	MaxReconnectInterval time.Duration `mapstructure:"maxReconnectInterval"`
	TopicPrefix          string        `mapstructure:"topicPrefix"` // 发布主题为 <prefix>/<消息类型>
	Qos                  byte          `mapstructure:"qos"`
}

// MqttSink 把每条记录作为 JSON 发布到按消息类型划分的主题
type MqttSink struct {
	client mqtt.Client
	config MqttSinkConfig
	ctx    context.Context
	logger *zap.Logger
}

// NewMqttSink 构造 MQTT 发送端
func NewMqttSink(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	para, found := sinkPara(config, "mqtt")
	if !found {
		return nil, fmt.Errorf("没有启用的 mqtt 发送端配置")
	}

	if intervalStr, ok := para["maxreconnectinterval"].(string); ok {
		duration, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("解析重连间隔失败: %w", err)
		}
		para["maxreconnectinterval"] = duration
	}

	var cfg MqttSinkConfig
	if err := mapstructure.Decode(para, &cfg); err != nil {
		return nil, fmt.Errorf("mqtt 发送端配置解析失败: %w", err)
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "ndm"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(cfg.MaxReconnectInterval)

	logger := pkg.LoggerFromContext(ctx).With(zap.String("sink_type", "mqtt"))

	return &MqttSink{
		client: mqtt.NewClient(opts),
		config: cfg,
		ctx:    ctx,
		logger: logger,
	}, nil
}

func (m *MqttSink) GetType() string {
	return "mqtt"
}

// Start 消费记录包通道并发布到 MQTT
func (m *MqttSink) Start(recordChan chan *pkg.RecordPackage) {
	metrics := pkg.GetPerformanceMetrics()

	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		metrics.IncErrorCount()
		reportError(m.ctx, m.logger, fmt.Errorf("MQTT发送端连接失败: %w", token.Error()))
		return
	}
	m.logger.Info("===MqttSink已启动===", zap.String("broker", m.config.Broker))

	defer m.client.Disconnect(250)
	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("===MqttSink停止===")
			return
		case rp, ok := <-recordChan:
			if !ok {
				m.logger.Info("输入通道关闭, MqttSink停止")
				return
			}
			m.publish(rp)
		}
	}
}

func (m *MqttSink) publish(rp *pkg.RecordPackage) {
	metrics := pkg.GetPerformanceMetrics()

	for _, record := range rp.Records {
		metrics.IncMsgReceived("mqtt_sink")

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
			metrics.IncMsgErrors("mqtt_sink")
			m.logger.Error("记录序列化失败", zap.Error(err))
			continue
		}

		topic := m.config.TopicPrefix + "/" + record.MessageType
		token := m.client.Publish(topic, m.config.Qos, false, jsonData)
		token.Wait()
		if err := token.Error(); err != nil {
			metrics.IncErrorCount()
			metrics.IncMsgErrors("mqtt_sink")
			m.logger.Error("MQTT发布失败", zap.String("topic", topic), zap.Error(err))
			continue
		}

		metrics.IncMsgParsed("mqtt_sink")
		m.logger.Debug("记录已发布", zap.String("topic", topic))
	}
}
