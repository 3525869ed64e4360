// Package sink 实现记录包的各类下游发送端.
// 每种发送端在 init 中注册工厂, 由配置决定启用哪些,
// 彼此之间通过独立通道隔离, 单个发送端堵塞不影响其他发送端
package sink
