// Package store 提供 core 接口的基础设施实现：
//
//   - MemoryStore / RedisStore：core.Store（嵌入缓存）
//   - MemoryCatalog：内存目录与用户历史（测试/开发）
//   - SQLiteCatalog：基于 modernc.org/sqlite 的持久化目录与用户历史
//   - RedisHistory：基于 Redis ZSET 的定长用户历史
//
// 接口定义在 core 包，引用完整性（级联删除、历史上限）由各实现负责。
package store
