package pkg

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record 是Parser解析单条 NDM 消息后产生的数据结构
type Record struct {
	Id          uuid.UUID              // 记录 id
	MessageType string                 // 消息类型, 如 OPM/OMM
	Fields      map[string]interface{} // 字段名称 考虑到record一旦放入chan后状态就会失控，没必要为了一点性能做危险操作
	Comments    []string               // 消息中收集到的 COMMENT 行内容
	Ts          time.Time              // 解析时间戳
}

// String 方法实现
func (r *Record) String() string {
	// 字段按名称排序, 保证输出稳定
	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %v", key, r.Fields[key]))
	}
	sb.WriteString("}")

	return fmt.Sprintf("Record(Id=%s, MessageType=%s, Fields=%s, Ts=%s)",
		r.Id, r.MessageType, sb.String(), r.Ts.Format(time.RFC3339))
}

// RecordPackage 是一帧原始消息解析出的记录集合
type RecordPackage struct {
	FrameId uuid.UUID // 帧 id, 同一原始报文产生的记录共享
	Records []*Record
	Ts      time.Time
}

// DataSource 是Connector和Parser之间传递的数据结构
type DataSource interface {
	Type() string // 用于标识数据源类型
}

// MessageDataSource 以完整报文为单位传递数据
type MessageDataSource struct {
	DataChan chan []byte
	MetaData map[string]string
}

// NewMessageDataSource 创建一个 MessageDataSource 实例
func NewMessageDataSource() *MessageDataSource {
	return &MessageDataSource{
		DataChan: make(chan []byte, 200),
		MetaData: make(map[string]string),
	}
}

func (m *MessageDataSource) Type() string {
	return "message"
}

// ReadOne 从通道中读取一个完整的数据包
func (m *MessageDataSource) ReadOne() ([]byte, error) {
	data, ok := <-m.DataChan
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

// WriteOne 向通道写入一个完整的数据包
func (m *MessageDataSource) WriteOne(data []byte) error {
	// 如果通道已关闭，返回 EOF
	if m.DataChan == nil {
		return io.EOF
	}
	m.DataChan <- data
	return nil
}
