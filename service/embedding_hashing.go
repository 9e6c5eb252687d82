package service

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/filmy/reco/core"
)

// HashingEmbedding 是本地确定性的 core.EmbeddingService 实现：
// 把文本分词后以特征哈希（hashing trick）落入固定维度的桶，
// 再做 L2 归一化。没有语义理解能力，但满足接口的确定性与
// 归一化约定，适合测试与离线开发环境。
type HashingEmbedding struct {
	dim int
}

var _ core.EmbeddingService = (*HashingEmbedding)(nil)

// NewHashingEmbedding 创建哈希嵌入器；dim <= 0 时取 64。
func NewHashingEmbedding(dim int) *HashingEmbedding {
	if dim <= 0 {
		dim = 64
	}
	return &HashingEmbedding{dim: dim}
}

func (e *HashingEmbedding) Dimension() int { return e.dim }

func (e *HashingEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		// 最高位决定符号，降低哈希碰撞导致的系统性偏移
		if sum&(1<<63) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *HashingEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		}
		return true
	})
}
