// Package service 提供外部服务客户端的实现：文本向量化（嵌入）等。
// 接口定义在 core 包，本包只放具体实现与工厂。
package service

import (
	"context"
	"fmt"
	"math"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/filmy/reco/core"
)

// OpenAIEmbedding 是基于 OpenAI Embeddings API 的 core.EmbeddingService 实现。
// 输出向量做 L2 归一化，余弦相似度退化为点积。
type OpenAIEmbedding struct {
	client openai.Client
	model  string
	dim    int
}

var _ core.EmbeddingService = (*OpenAIEmbedding)(nil)

// OpenAIEmbeddingConfig 配置 OpenAI 嵌入客户端。
type OpenAIEmbeddingConfig struct {
	// APIKey 鉴权 key；为空时走 OPENAI_API_KEY 环境变量
	APIKey string

	// BaseURL 自定义 API 地址（代理/兼容服务）
	BaseURL string

	// Model 嵌入模型名，默认 text-embedding-3-small
	Model string

	// Dimension 输出维度，默认 1536（text-embedding-3-small）
	Dimension int
}

func NewOpenAIEmbedding(cfg OpenAIEmbeddingConfig) *OpenAIEmbedding {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 1536
	}
	return &OpenAIEmbedding{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}
}

func (e *OpenAIEmbedding) Dimension() int { return e.dim }

func (e *OpenAIEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("service: openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("service: openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// normalize 原地做 L2 归一化；零向量保持不变。
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
