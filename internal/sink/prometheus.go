package sink

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

func init() {
	Register("prometheus", NewPrometheusSink)
}

// PrometheusInfo Prometheus 的专属配置
type PrometheusInfo struct {
	Port     int    `mapstructure:"port"`
	Endpoint string `mapstructure:"endpoint"`
}

// PrometheusSink 把记录的数值字段暴露为 Gauge 指标,
// 每种消息类型一个 GaugeVec, 按字段名打标签
type PrometheusSink struct {
	info    PrometheusInfo
	ctx     context.Context
	logger  *zap.Logger
	metrics map[string]*prometheus.GaugeVec
}

// NewPrometheusSink 构造 Prometheus 发送端并启动指标 HTTP 服务
func NewPrometheusSink(ctx context.Context) (Template, error) {
	logger := pkg.LoggerFromContext(ctx).With(zap.String("sink_type", "prometheus"))
	config := pkg.ConfigFromContext(ctx)

	para, found := sinkPara(config, "prometheus")
	if !found {
		return nil, fmt.Errorf("没有启用的 prometheus 发送端配置")
	}

	var info PrometheusInfo
	if err := mapstructure.Decode(para, &info); err != nil {
		return nil, fmt.Errorf("prometheus 配置解析失败: %w", err)
	}
	if info.Endpoint == "" {
		info.Endpoint = "/metrics"
	}

	http.Handle(info.Endpoint, promhttp.Handler())
	go func() {
		logger.Info("Prometheus指标服务已启动",
			zap.Int("port", info.Port),
			zap.String("endpoint", info.Endpoint))
		if err := http.ListenAndServe(fmt.Sprintf(":%d", info.Port), nil); err != nil {
			logger.Error("Prometheus指标服务启动失败", zap.Error(err))
		}
	}()

	return &PrometheusSink{
		info:    info,
		ctx:     ctx,
		logger:  logger,
		metrics: make(map[string]*prometheus.GaugeVec),
	}, nil
}

func (p *PrometheusSink) GetType() string {
	return "prometheus"
}

// Start 消费记录包通道并更新指标
func (p *PrometheusSink) Start(recordChan chan *pkg.RecordPackage) {
	p.logger.Info("===PrometheusSink已启动===")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("===PrometheusSink停止===")
			return
		case rp, ok := <-recordChan:
			if !ok {
				p.logger.Info("输入通道关闭, PrometheusSink停止")
				return
			}
			for _, record := range rp.Records {
				if err := p.Publish(record); err != nil {
					reportError(p.ctx, p.logger, fmt.Errorf("PrometheusSink 发布失败: %w", err))
				}
			}
		}
	}
}

// Publish 把一条记录的数值字段写入对应消息类型的 GaugeVec
func (p *PrometheusSink) Publish(record *pkg.Record) error {
	metricName := strings.ToLower(record.MessageType) + "_fields"
	gauge, exists := p.metrics[metricName]
	if !exists {
		gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricName,
				Help: fmt.Sprintf("Parsed numeric fields of %s messages", record.MessageType),
			},
			[]string{"field"},
		)
		if err := prometheus.Register(gauge); err != nil {
			return fmt.Errorf("注册 Prometheus 指标失败: %w", err)
		}
		p.metrics[metricName] = gauge
	}

	flat, _ := FlattenFields(record)
	for key, value := range flat {
		switch v := value.(type) {
		case float64:
			gauge.With(prometheus.Labels{"field": key}).Set(v)
		case int64:
			gauge.With(prometheus.Labels{"field": key}).Set(float64(v))
		default:
			// 字符串和日期时间字段没有对应的指标形态, 跳过
		}
	}
	p.logger.Debug("指标已更新", zap.String("metric", metricName))
	return nil
}
