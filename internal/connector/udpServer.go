package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// UdpServerConfig UDP 连接器配置
type UdpServerConfig struct {
	Address    string            `mapstructure:"address"`    // 监听地址, 如 :9012
	BufferSize int               `mapstructure:"bufferSize"` // 单个数据报缓冲区大小, 默认 64KB
	WhiteList  bool              `mapstructure:"whiteList"`  // 是否启用来源白名单
	IPAlias    map[string]string `mapstructure:"ipAlias"`    // 来源地址别名, 白名单开启时同时作为准入表
}

// UdpServerConnector 监听 UDP 端口, 一个数据报就是一条完整的 KVN 报文.
// 每个来源地址一个数据源, 下游为其各挂一个解析器
type UdpServerConnector struct {
	ctx        context.Context
	config     *UdpServerConfig
	conn       *net.UDPConn
	bufferPool *sync.Pool
	sources    map[string]*pkg.MessageDataSource
	stopped    chan struct{}
}

func init() {
	Register("udp", NewUdpServerConnector)
}

// NewUdpServerConnector 构造 UDP 连接器
func NewUdpServerConnector(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	var udpConfig UdpServerConfig
	if err := mapstructure.Decode(config.Connector.Para, &udpConfig); err != nil {
		return nil, fmt.Errorf("udp 连接器配置解析失败: %w", err)
	}
	if udpConfig.Address == "" {
		return nil, fmt.Errorf("udp 连接器缺少 address 配置")
	}
	if udpConfig.BufferSize <= 0 {
		udpConfig.BufferSize = 64 * 1024
	}

	return &UdpServerConnector{
		ctx:    ctx,
		config: &udpConfig,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, udpConfig.BufferSize)
			},
		},
		sources: make(map[string]*pkg.MessageDataSource),
		stopped: make(chan struct{}),
	}, nil
}

func (u *UdpServerConnector) GetType() string {
	return "message"
}

func (u *UdpServerConnector) Start(sourceChan chan pkg.DataSource) error {
	logger := pkg.LoggerFromContext(u.ctx)

	addr, err := net.ResolveUDPAddr("udp", u.config.Address)
	if err != nil {
		return fmt.Errorf("解析 UDP 地址失败 %s: %w", u.config.Address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("UDP 监听失败 %s: %w", u.config.Address, err)
	}
	u.conn = conn

	logger.Info("UDP 连接器已启动", zap.String("address", conn.LocalAddr().String()))

	go u.readLoop(sourceChan)
	return nil
}

// readLoop 是数据源通道的唯一生产者, 退出时统一关闭所有数据源
func (u *UdpServerConnector) readLoop(sourceChan chan pkg.DataSource) {
	logger := pkg.LoggerFromContext(u.ctx)
	metrics := pkg.GetPerformanceMetrics()

	defer func() {
		for _, source := range u.sources {
			close(source.DataChan)
		}
		close(u.stopped)
	}()

	for {
		buffer := u.bufferPool.Get().([]byte)
		n, remote, err := u.conn.ReadFromUDP(buffer)
		if err != nil {
			u.bufferPool.Put(buffer)
			if errors.Is(err, net.ErrClosed) {
				logger.Info("UDP 监听已关闭")
				return
			}
			metrics.IncErrorCount()
			logger.Error("读取 UDP 数据报失败", zap.Error(err))
			continue
		}

		remoteAddr := remote.String()
		alias, known := u.config.IPAlias[remoteAddr]
		if u.config.WhiteList && !known {
			u.bufferPool.Put(buffer)
			logger.Warn("白名单启用, 拒绝未登记的来源", zap.String("remote", remoteAddr))
			continue
		}

		source, exists := u.sources[remoteAddr]
		if !exists {
			source = pkg.NewMessageDataSource()
			source.MetaData["remote"] = remoteAddr
			if known {
				source.MetaData["originator"] = alias
			}
			u.sources[remoteAddr] = source
			select {
			case sourceChan <- source:
				logger.Info("接收到新的数据源", zap.String("remote", remoteAddr))
			case <-u.ctx.Done():
				u.bufferPool.Put(buffer)
				return
			}
		}

		// 缓冲区要归还池子, 报文必须复制后投递
		data := make([]byte, n)
		copy(data, buffer[:n])
		u.bufferPool.Put(buffer)

		metrics.IncMsgReceived("udp")
		select {
		case source.DataChan <- data:
			logger.Debug("数据报已投递",
				zap.String("remote", remoteAddr),
				zap.Int("bytes", n))
		case <-u.ctx.Done():
			return
		}
	}
}

// Close 先关闭监听, 等读循环退出后数据源才会被关闭
func (u *UdpServerConnector) Close() error {
	if u.conn == nil {
		return nil
	}
	if err := u.conn.Close(); err != nil {
		return fmt.Errorf("关闭 UDP 监听失败: %w", err)
	}
	<-u.stopped
	pkg.LoggerFromContext(u.ctx).Info("UDP 连接器已关闭")
	return nil
}
