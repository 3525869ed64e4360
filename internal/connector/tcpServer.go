package connector

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// TcpServerConfig TCP 服务端连接器配置
type TcpServerConfig struct {
	Address string `mapstructure:"address"` // 监听地址, 如 :9011
}

// TcpServerConnector 监听 TCP 端口, 客户端以空行分隔多条 KVN 报文,
// 连接断开时把未结束的报文也投递出去
type TcpServerConnector struct {
	ctx      context.Context
	config   *TcpServerConfig
	listener net.Listener
	Sink     *pkg.MessageDataSource
	done     chan struct{}
	wg       sync.WaitGroup
	connsMu  sync.Mutex
	conns    map[net.Conn]struct{}
}

func init() {
	Register("tcpserver", NewTcpServerConnector)
}

// NewTcpServerConnector 构造 TCP 服务端连接器
func NewTcpServerConnector(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	var tcpConfig TcpServerConfig
	if err := mapstructure.Decode(config.Connector.Para, &tcpConfig); err != nil {
		return nil, fmt.Errorf("tcp 连接器配置解析失败: %w", err)
	}
	if tcpConfig.Address == "" {
		return nil, fmt.Errorf("tcp 连接器缺少 address 配置")
	}

	return &TcpServerConnector{
		ctx:    ctx,
		config: &tcpConfig,
		done:   make(chan struct{}),
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

func (t *TcpServerConnector) GetType() string {
	return "message"
}

func (t *TcpServerConnector) Start(sourceChan chan pkg.DataSource) error {
	logger := pkg.LoggerFromContext(t.ctx)

	listener, err := net.Listen("tcp", t.config.Address)
	if err != nil {
		return fmt.Errorf("监听失败 %s: %w", t.config.Address, err)
	}
	t.listener = listener

	source := pkg.NewMessageDataSource()
	source.MetaData["address"] = t.config.Address
	t.Sink = source
	sourceChan <- source

	logger.Info("TCP 连接器已启动", zap.String("address", t.config.Address))

	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *TcpServerConnector) acceptLoop() {
	defer t.wg.Done()
	logger := pkg.LoggerFromContext(t.ctx)
	metrics := pkg.GetPerformanceMetrics()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.ctx.Done():
			case <-t.done:
			default:
				metrics.IncErrorCount()
				logger.Error("接受连接失败", zap.Error(err))
			}
			return
		}
		logger.Info("客户端已连接", zap.String("remote", conn.RemoteAddr().String()))

		t.connsMu.Lock()
		t.conns[conn] = struct{}{}
		t.connsMu.Unlock()
		t.wg.Add(1)
		go t.handleConn(conn)
	}
}

// handleConn 按空行切分报文
func (t *TcpServerConnector) handleConn(conn net.Conn) {
	logger := pkg.LoggerFromContext(t.ctx)
	metrics := pkg.GetPerformanceMetrics()
	defer func() {
		conn.Close()
		t.connsMu.Lock()
		delete(t.conns, conn)
		t.connsMu.Unlock()
		t.wg.Done()
	}()

	var buf []string
	flush := func() {
		if len(buf) == 0 {
			return
		}
		payload := strings.Join(buf, "\n")
		buf = buf[:0]
		metrics.IncMsgReceived("tcpserver")
		// 关闭信号要能解除投递等待, 否则 Close 无法收敛
		select {
		case t.Sink.DataChan <- []byte(payload):
		case <-t.done:
		case <-t.ctx.Done():
		}
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	// 连接断开, 投递剩余内容
	flush()

	if err := scanner.Err(); err != nil {
		metrics.IncErrorCount()
		logger.Error("读取连接失败", zap.Error(err))
	}
	logger.Info("客户端连接关闭", zap.String("remote", conn.RemoteAddr().String()))
}

// Close 停止接入并等所有连接处理协程退出后再关闭数据通道
func (t *TcpServerConnector) Close() error {
	close(t.done)
	if t.listener != nil {
		if err := t.listener.Close(); err != nil {
			return fmt.Errorf("关闭监听失败: %w", err)
		}
	}
	t.connsMu.Lock()
	for conn := range t.conns {
		conn.Close()
	}
	t.connsMu.Unlock()

	t.wg.Wait()
	if t.Sink != nil {
		close(t.Sink.DataChan)
	}
	pkg.LoggerFromContext(t.ctx).Info("TCP 连接器已关闭")
	return nil
}
