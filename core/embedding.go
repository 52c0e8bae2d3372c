package core

import "context"

// Embedder 是句向量模型的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（embedding）实现
//   - 给定模型版本时结果确定：相同文本得到相同向量
//   - 模型标识来自配置常量，调用方不可控制
//
// 实现：
//   - embedding.HTTPEmbedder：调用句向量推理服务
//   - embedding.HashingEmbedder：离线确定性实现（测试/开发）
//   - embedding.CachedEmbedder：基于 core.Store 的缓存装饰器
type Embedder interface {
	// Model 返回模型标识（如 "all-mpnet-base-v2"），用于缓存 key 与观测
	Model() string

	// Embed 将单条文本编码为定长向量
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch 批量编码，返回顺序与输入一致
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
