package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// REnv 是过滤表达式的求值环境, 每条记录求值一次
type REnv struct {
	Type   string         `expr:"type"`   // 消息类型, 如 OPM
	Fields map[string]any `expr:"fields"` // 解析出的字段表
}

// Dispatcher 按每个 sink 配置的过滤表达式路由记录包.
// 表达式在启动时编译一次, 运行期只做求值
type Dispatcher struct {
	ctx      context.Context
	inChan   pkg.Parser2DispatcherChan
	outChans pkg.Dispatch2SinkChan
	programs map[string]*vm.Program
}

// NewDispatcher 编译所有启用的 sink 的过滤程序.
// 多个过滤表达式按 && 组合, 没有配置过滤时全量放行
func NewDispatcher(ctx context.Context, inChan pkg.Parser2DispatcherChan, outChans pkg.Dispatch2SinkChan) (*Dispatcher, error) {
	config := pkg.ConfigFromContext(ctx)

	programs := make(map[string]*vm.Program)
	for _, sinkConfig := range config.Sink {
		if !sinkConfig.Enable {
			continue
		}
		src := "true"
		if len(sinkConfig.Filter) > 0 {
			src = strings.Join(sinkConfig.Filter, " && ")
		}
		program, err := expr.Compile(src, expr.Env(REnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("编译 sink %s 的过滤表达式失败 %q: %w", sinkConfig.Type, src, err)
		}
		programs[sinkConfig.Type] = program
	}

	return &Dispatcher{
		ctx:      ctx,
		inChan:   inChan,
		outChans: outChans,
		programs: programs,
	}, nil
}

// Start 启动路由循环
func (d *Dispatcher) Start() {
	logger := pkg.LoggerFromContext(d.ctx)

	go func() {
		for {
			select {
			case <-d.ctx.Done():
				logger.Info("分发器退出")
				return
			case rp, ok := <-d.inChan:
				if !ok {
					logger.Info("上游通道关闭, 分发器退出")
					return
				}
				for sinkType, routed := range d.Dispatch(rp) {
					outChan, exists := d.outChans[sinkType]
					if !exists {
						continue
					}
					select {
					case outChan <- routed:
					default:
						// 堵塞的 sink 不应拖垮其他 sink
						logger.Warn("sink 通道堵塞, 丢弃记录包", zap.String("sink", sinkType))
					}
				}
			}
		}
	}()
}

// Dispatch 对一个记录包逐条求值过滤程序, 返回每个 sink 命中的子包
func (d *Dispatcher) Dispatch(rp *pkg.RecordPackage) map[string]*pkg.RecordPackage {
	logger := pkg.LoggerFromContext(d.ctx)
	out := make(map[string]*pkg.RecordPackage)

	for sinkType, program := range d.programs {
		var matched []*pkg.Record
		for _, record := range rp.Records {
			env := REnv{Type: record.MessageType, Fields: record.Fields}
			pass, err := expr.Run(program, env)
			if err != nil {
				pkg.GetPerformanceMetrics().IncErrorCount()
				logger.Error("过滤表达式求值失败",
					zap.String("sink", sinkType),
					zap.String("record", record.Id.String()),
					zap.Error(err))
				continue
			}
			if pass.(bool) {
				matched = append(matched, record)
			}
		}
		if len(matched) > 0 {
			out[sinkType] = &pkg.RecordPackage{FrameId: rp.FrameId, Records: matched, Ts: rp.Ts}
		}
	}
	return out
}
