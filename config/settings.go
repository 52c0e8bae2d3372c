package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/decorec/pkg/logging"
	"github.com/rushteam/decorec/rank"
	"github.com/rushteam/decorec/rerank"
)

// EnvPrefix 是环境变量前缀：DECOREC_RECOMMEND_LANGUAGE -> recommend.language
const EnvPrefix = "DECOREC_"

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "DECOREC_CONFIG"

// Settings 是进程级配置。加载顺序：默认值 → YAML 文件 → 环境变量。
type Settings struct {
	Logging   logging.Config    `koanf:"logging"`
	Embedding EmbeddingSettings `koanf:"embedding"`
	Recommend RecommendSettings `koanf:"recommend"`
	Store     StoreSettings     `koanf:"store"`

	// Pipeline 可选的召回后节点配置文件（pipeline YAML）
	Pipeline string `koanf:"pipeline"`
}

// EmbeddingSettings 句向量服务配置。模型标识只来自配置。
type EmbeddingSettings struct {
	// Provider: http（推理服务）| hashing（离线散列，开发/测试）
	Provider  string `koanf:"provider" validate:"oneof=http hashing"`
	Endpoint  string `koanf:"endpoint" validate:"required_if=Provider http,omitempty,url"`
	Model     string `koanf:"model" validate:"required"`
	Dimension int    `koanf:"dimension" validate:"gte=0"`
	BatchSize int    `koanf:"batch_size" validate:"gte=0"`

	// Timeout 单次嵌入调用的超时，超时返回 UNAVAILABLE
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	RatePerSec float64 `koanf:"rate_per_sec" validate:"gte=0"`
	Burst      int     `koanf:"burst" validate:"gte=0"`

	BreakerFailures    uint32        `koanf:"breaker_failures"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`

	// CacheTTL 嵌入缓存过期时间，0 表示不缓存
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// RecommendSettings 推荐与分类参数。
type RecommendSettings struct {
	Alpha   float64 `koanf:"alpha" validate:"gte=0"`
	Beta    float64 `koanf:"beta" validate:"gte=0"`
	KSpaces int     `koanf:"k_spaces" validate:"gte=1"`
	KStyles int     `koanf:"k_styles" validate:"gte=1"`

	// Language 语料语言，必填且无默认值
	Language        string `koanf:"language" validate:"required,oneof=english spanish"`
	IncludeTaxonomy bool   `koanf:"include_taxonomy"`

	DefaultLimit int `koanf:"default_limit" validate:"gte=1"`
	RelatedTopN  int `koanf:"related_top_n" validate:"gte=1"`

	// Workers 计算池并发数，0 表示 GOMAXPROCS
	Workers        int           `koanf:"workers" validate:"gte=0"`
	ComputeTimeout time.Duration `koanf:"compute_timeout" validate:"gte=0"`
}

// StoreSettings 存储配置。
type StoreSettings struct {
	// Driver: memory | sqlite
	Driver     string `koanf:"driver" validate:"oneof=memory sqlite"`
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`

	// RedisAddr 非空时用 Redis 保存用户历史与嵌入缓存
	RedisAddr   string `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPrefix string `koanf:"redis_prefix"`

	HistoryCap int `koanf:"history_cap" validate:"gte=1"`
}

// Default 返回默认配置。Recommend.Language 故意留空，必须显式配置。
func Default() *Settings {
	return &Settings{
		Logging: logging.Config{Level: "info", Format: "json"},
		Embedding: EmbeddingSettings{
			Provider:           "hashing",
			Model:              "hashing-v1",
			Dimension:          256,
			BatchSize:          32,
			Timeout:            10 * time.Second,
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Recommend: RecommendSettings{
			Alpha:          rank.DefaultAlpha,
			Beta:           rank.DefaultBeta,
			KSpaces:        3,
			KStyles:        3,
			DefaultLimit:   rerank.DefaultLimit,
			RelatedTopN:    5,
			ComputeTimeout: 30 * time.Second,
		},
		Store: StoreSettings{
			Driver:      "memory",
			RedisPrefix: "decorec:",
			HistoryCap:  50,
		},
	}
}

// Validate 校验配置。
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载并校验配置。
// path 为空时读取 DECOREC_CONFIG 指向的文件（不存在则跳过文件层）。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// envKey 把 DECOREC_EMBEDDING_RATE_PER_SEC 转成 embedding.rate_per_sec：
// 第一个下划线分隔配置段，其余保留为字段名。
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == ConfigKey {
		return ""
	}
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + field
}

// ConfigKey 是 DECOREC_CONFIG 去掉前缀后的名字，不参与配置映射。
const ConfigKey = "config"
