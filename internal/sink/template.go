package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ndmgate/internal/kvn"
	"ndmgate/internal/pkg"
)

// Template 是所有发送端的通用接口
type Template interface {
	// GetType 返回发送端类型名, 与配置中的 type 对应
	GetType() string
	// Start 阻塞消费记录包通道, 通常在独立协程中运行
	Start(recordChan chan *pkg.RecordPackage)
}

// FactoryFunc 代表一个发送端的工厂函数
type FactoryFunc func(ctx context.Context) (Template, error)

// Factories 全局工厂映射, 用于注册不同类型发送端的构造函数
var Factories = make(map[string]FactoryFunc)

// Register 注册一个发送端类型
func Register(sinkType string, factory FactoryFunc) {
	Factories[sinkType] = factory
}

// NewAll 构造配置中所有启用的发送端, 返回类型到实例的映射
func NewAll(ctx context.Context) (map[string]Template, error) {
	config := pkg.ConfigFromContext(ctx)

	sinks := make(map[string]Template)
	for _, sinkConfig := range config.Sink {
		if !sinkConfig.Enable {
			continue
		}
		factory, ok := Factories[sinkConfig.Type]
		if !ok {
			return nil, fmt.Errorf("未找到发送端类型: %s", sinkConfig.Type)
		}
		instance, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("初始化发送端 %s 失败: %w", sinkConfig.Type, err)
		}
		sinks[sinkConfig.Type] = instance
	}
	return sinks, nil
}

// reportError 把错误推给全局错误通道, 通道未挂载时只记日志,
// 向 nil 通道发送会永久阻塞
func reportError(ctx context.Context, logger *zap.Logger, err error) {
	if errChan := pkg.ErrChanFromContext(ctx); errChan != nil {
		errChan <- err
		return
	}
	logger.Error("发送端错误", zap.Error(err))
}

// sinkPara 查找指定类型的发送端配置项
func sinkPara(config *pkg.Config, sinkType string) (map[string]any, bool) {
	for _, sinkConfig := range config.Sink {
		if sinkConfig.Enable && sinkConfig.Type == sinkType {
			return sinkConfig.Para, true
		}
	}
	return nil, false
}

// FlattenFields 把记录字段压平成适合时序库的形状:
// 复合字段取数值属性, 单位单独返回, 日期时间字段取原始子串
func FlattenFields(record *pkg.Record) (map[string]any, map[string]string) {
	fields := make(map[string]any, len(record.Fields))
	units := make(map[string]string)

	for key, value := range record.Fields {
		switch v := value.(type) {
		case kvn.DateTimeValue:
			fields[key] = v.FullValue
		case map[string]any:
			if base, ok := v["base"]; ok {
				fields[key] = base
			}
			if unit, ok := v["units"].(string); ok {
				units[key] = unit
			}
		default:
			fields[key] = v
		}
	}
	return fields, units
}
