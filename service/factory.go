package service

import (
	"fmt"

	"github.com/filmy/reco/core"
)

// 嵌入服务类型
const (
	EmbeddingTypeOpenAI  = "openai"
	EmbeddingTypeHashing = "hashing"
)

// EmbeddingConfig 是嵌入服务的工厂配置。
type EmbeddingConfig struct {
	// Type 服务类型：openai / hashing
	Type string `yaml:"type"`

	// APIKey 远程服务鉴权 key（openai）
	APIKey string `yaml:"api_key"`

	// BaseURL 自定义 API 地址（openai，可选）
	BaseURL string `yaml:"base_url"`

	// Model 嵌入模型名（openai，可选）
	Model string `yaml:"model"`

	// Dimension 输出维度；openai 默认 1536，hashing 默认 64
	Dimension int `yaml:"dimension"`
}

// NewEmbeddingService 根据配置创建 EmbeddingService 实例（工厂方法）。
func NewEmbeddingService(cfg *EmbeddingConfig) (core.EmbeddingService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("service: embedding config is required")
	}
	switch cfg.Type {
	case EmbeddingTypeOpenAI:
		return NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}), nil
	case EmbeddingTypeHashing, "":
		return NewHashingEmbedding(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("service: unknown embedding type: %s", cfg.Type)
	}
}
