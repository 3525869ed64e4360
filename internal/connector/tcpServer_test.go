package connector

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndmgate/internal/pkg"
)

func TestTcpServerConnector(t *testing.T) {
	ctx, cancel := context.WithCancel(pkg.WithConfig(context.Background(), &pkg.Config{
		Connector: pkg.ConnectorConfig{
			Type: "tcpserver",
			Para: map[string]any{"address": "127.0.0.1:0"},
		},
	}))
	defer cancel()

	conn, err := New(ctx)
	require.NoError(t, err, "tcp 连接器应注册成功")

	sourceChan := make(chan pkg.DataSource, 1)
	require.NoError(t, conn.Start(sourceChan))
	tcpConn := conn.(*TcpServerConnector)

	source, ok := (<-sourceChan).(*pkg.MessageDataSource)
	require.True(t, ok, "tcp 连接器应产生消息型数据源")

	client, err := net.Dial("tcp", tcpConn.listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	// 空行结束一条报文
	_, err = client.Write([]byte("CCSDS_OPM_VERS = 2.0\nORIGINATOR = GSOC\n\n"))
	require.NoError(t, err)

	received := make(chan []byte, 1)
	go func() {
		data, err := source.ReadOne()
		if err == nil {
			received <- data
		}
	}()
	select {
	case data := <-received:
		assert.Equal(t, "CCSDS_OPM_VERS = 2.0\nORIGINATOR = GSOC", string(data), "空行前的内容应作为一条报文")
	case <-time.After(3 * time.Second):
		t.Fatal("等待报文投递超时")
	}

	// 客户端仍然连接时关闭, 必须干净收敛
	closed := make(chan error, 1)
	go func() { closed <- conn.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close 未能收敛")
	}

	_, err = source.ReadOne()
	assert.Equal(t, io.EOF, err, "关闭后数据源应返回EOF")
}

func TestTcpServerCloseWhileDelivering(t *testing.T) {
	tc := &TcpServerConnector{
		ctx:    pkg.WithConfig(context.Background(), &pkg.Config{}),
		config: &TcpServerConfig{Address: ":0"},
		done:   make(chan struct{}),
		conns:  make(map[net.Conn]struct{}),
	}
	// 无缓冲通道且没有消费者, 投递必然阻塞
	tc.Sink = &pkg.MessageDataSource{DataChan: make(chan []byte), MetaData: map[string]string{}}

	server, client := net.Pipe()
	defer client.Close()
	tc.conns[server] = struct{}{}
	tc.wg.Add(1)
	go tc.handleConn(server)

	go func() {
		// 写完一条报文, 处理协程此时阻塞在投递上
		_, _ = client.Write([]byte("CCSDS_OPM_VERS = 2.0\n\n"))
	}()
	time.Sleep(100 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- tc.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err, "投递阻塞时 Close 也应正常返回")
	case <-time.After(2 * time.Second):
		t.Fatal("Close 未能收敛")
	}

	_, err := tc.Sink.ReadOne()
	assert.Equal(t, io.EOF, err, "关闭后数据源应返回EOF")
}
