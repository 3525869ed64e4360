// Package pipeline 把连接器、解析器、分发器和发送端串成一条数据流
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ndmgate/internal/connector"
	"ndmgate/internal/dispatcher"
	"ndmgate/internal/parser"
	"ndmgate/internal/pkg"
	"ndmgate/internal/sink"
)

// Pipeline 持有数据流的各个环节, 用于统一关闭
type Pipeline struct {
	ctx       context.Context
	connector connector.Template
}

// Start 按配置组装并启动整条数据流:
// connector -> parser -> dispatcher -> sinks
func Start(ctx context.Context) (*Pipeline, error) {
	logger := pkg.LoggerFromContext(ctx)

	// 发送端先就位, 避免上游启动后记录包无处可去
	sinks, err := sink.NewAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("构造发送端失败: %w", err)
	}
	sinkChans := make(pkg.Dispatch2SinkChan, len(sinks))
	for sinkType, s := range sinks {
		ch := make(chan *pkg.RecordPackage, 100)
		sinkChans[sinkType] = ch
		go s.Start(ch)
		logger.Info("发送端已启动", zap.String("type", sinkType))
	}

	parserOut := make(pkg.Parser2DispatcherChan, 100)
	disp, err := dispatcher.NewDispatcher(ctx, parserOut, sinkChans)
	if err != nil {
		return nil, fmt.Errorf("构造分发器失败: %w", err)
	}
	disp.Start()

	conn, err := connector.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("构造连接器失败: %w", err)
	}

	sourceChan := make(chan pkg.DataSource, 10)
	go consumeSources(ctx, sourceChan, parserOut)
	if err := conn.Start(sourceChan); err != nil {
		return nil, fmt.Errorf("启动连接器失败: %w", err)
	}
	logger.Info("数据流已启动", zap.String("connector", conn.GetType()))

	return &Pipeline{ctx: ctx, connector: conn}, nil
}

// consumeSources 为连接器产生的每个数据源挂一个解析器
func consumeSources(ctx context.Context, sourceChan chan pkg.DataSource, outChan pkg.Parser2DispatcherChan) {
	logger := pkg.LoggerFromContext(ctx)
	errChan := pkg.ErrChanFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case dataSource, ok := <-sourceChan:
			if !ok {
				return
			}
			p, err := parser.New(ctx, dataSource, outChan)
			if err != nil {
				logger.Error("构造解析器失败", zap.Error(err))
				if errChan != nil {
					errChan <- err
				}
				continue
			}
			p.Start()
			logger.Info("解析器已挂载", zap.String("source", dataSource.Type()))
		}
	}
}

// Close 停止连接器, 下游环节随 context 取消退出
func (p *Pipeline) Close() error {
	if p.connector == nil {
		return nil
	}
	return p.connector.Close()
}
