// Package ndm 维护 NDM 消息类型目录: 每种消息一个 kvn 模式,
// 按首行的版本关键字注册和识别
package ndm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"ndmgate/internal/kvn"
)

// Message 是一种已注册的 NDM 消息类型
type Message struct {
	Type           string      // 消息类型名, 如 OPM
	VersionKeyword string      // 消息首个数据行的版本关键字, 如 CCSDS_OPM_VERS
	Schema         *kvn.Schema // 字段模式
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Message) // 版本关键字 -> 消息类型
)

// Register 注册一种消息类型, 相同版本关键字后注册的覆盖先注册的
func Register(m *Message) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[m.VersionKeyword] = m
}

// Lookup 按版本关键字查找消息类型
func Lookup(versionKeyword string) (*Message, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := registry[versionKeyword]
	return m, ok
}

// Types 返回已注册的消息类型名, 按字典序排序
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for _, m := range registry {
		types = append(types, m.Type)
	}
	sort.Strings(types)
	return types
}

// Detect 在首个非空非注释行上匹配版本关键字, 识别消息类型
func Detect(lines []string) (*Message, error) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if kvn.LineMatchesKeyword("COMMENT", line) {
			continue
		}

		registryMu.RLock()
		for keyword, m := range registry {
			if kvn.LineMatchesKeyword(keyword, line) {
				registryMu.RUnlock()
				return m, nil
			}
		}
		registryMu.RUnlock()

		return nil, fmt.Errorf("无法识别消息类型, 首个数据行: %q", line)
	}
	return nil, fmt.Errorf("消息为空, 没有数据行")
}
