// Package config 提供两类配置：
//   - 引擎配置（Config）：Redis/Qdrant 端点、embedding、训练超参、刷新排程
//   - 配置驱动的 Pipeline 装配（NodeFactory 构建器注册表）
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/filmy/reco/service"
	"github.com/filmy/reco/trainer"
	"github.com/filmy/reco/vector"
)

// RedisConfig 是键值存储端点（注册表与热榜用）。
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// QdrantConfig 是向量库端点与集合参数。
type QdrantConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	UseTLS         bool   `yaml:"use_tls"`
	APIKey         string `yaml:"api_key"`
	Collection     string `yaml:"collection"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
}

// Vector 转为向量适配层的连接配置。
func (c QdrantConfig) Vector() vector.QdrantConfig {
	return vector.QdrantConfig{
		Host:           c.Host,
		Port:           c.Port,
		UseTLS:         c.UseTLS,
		APIKey:         c.APIKey,
		RequestTimeout: time.Duration(c.RequestTimeout) * time.Second,
	}
}

// ScheduleConfig 是模型缓存的每日刷新排程。
type ScheduleConfig struct {
	// Hour 本地时区的刷新整点（0-23）
	Hour int `yaml:"hour"`

	// Timezone IANA 时区名，如 "Europe/Paris"
	Timezone string `yaml:"timezone"`
}

// Location 解析排程时区。
func (s ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Config 是推荐引擎的顶层配置。
type Config struct {
	Redis     RedisConfig             `yaml:"redis"`
	Qdrant    QdrantConfig            `yaml:"qdrant"`
	Embedding service.EmbeddingConfig `yaml:"embedding"`
	Trainer   trainer.Config          `yaml:"trainer"`
	Schedule  ScheduleConfig          `yaml:"schedule"`
}

// Default 返回生产基线配置。
func Default() Config {
	return Config{
		Redis: RedisConfig{Addr: "localhost:6379"},
		Qdrant: QdrantConfig{
			Host:           "localhost",
			Port:           6334,
			Collection:     "movies",
			RequestTimeout: 30,
		},
		Embedding: service.EmbeddingConfig{
			Type: service.EmbeddingTypeOpenAI,
		},
		Trainer:  trainer.DefaultConfig(),
		Schedule: ScheduleConfig{Hour: 4, Timezone: "Europe/Paris"},
	}
}

// Load 从 YAML 文件加载配置：默认值打底，文件覆盖，最后校验。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("config: qdrant host is required")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("config: qdrant collection is required")
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("config: schedule hour %d out of range", c.Schedule.Hour)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}
