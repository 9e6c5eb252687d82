package core

import "context"

// EmbeddingService 是文本向量化服务的领域接口。
//
// 约定：
//   - 同一模型版本下输出确定（相同输入产出相同向量）
//   - 向量 L2 归一化，余弦相似度退化为点积
//   - Dimension 与向量库集合维度一致，不一致时集合会被重建
//
// 实现：
//   - service.OpenAIEmbedding 实现此接口（远程 API）
//   - service.HashingEmbedding 实现此接口（本地确定性实现，测试/开发用）
type EmbeddingService interface {
	// Embed 向量化单条文本
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch 批量向量化（索引构建用，减少网络往返）
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension 返回输出向量的维度
	Dimension() int
}
