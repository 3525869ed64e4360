// Package kvn 实现 CCSDS 502.0-B-3 7.4 节定义的 Keyword Value Notation
// (KVN) 行级词法和模式驱动的反序列化.
//
// 词法比标准正文更宽松: 实际在用的地面系统产出的消息经常不严格符合标准,
// 因此在 F-5/F-8/F-9 图的语法基础上放宽了空白和单位的匹配规则.
// 核心不做任何 I/O, 行序列由调用方切分后整体传入.
package kvn
