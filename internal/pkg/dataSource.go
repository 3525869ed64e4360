package pkg

// Parser2DispatcherChan 是Parser和Dispatcher之间传递的数据结构
type Parser2DispatcherChan chan *RecordPackage

// Dispatch2SinkChan 是Dispatcher和Sink之间传递的数据结构
type Dispatch2SinkChan map[string]chan *RecordPackage
