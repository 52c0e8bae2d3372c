package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/decorec/core"
	"github.com/rushteam/decorec/pipeline"
)

// 召回后阶段（过滤、打分、分页）可以由 pipeline YAML 声明。
// 内置节点类型在 config/builders 的 init 中注册，入口处需要 import _ "github.com/rushteam/decorec/config/builders"。

// NodeBuilder 根据节点 config 构建 pipeline.Node。
type NodeBuilder = pipeline.NodeBuilder

var registry = struct {
	sync.RWMutex
	builders map[string]NodeBuilder
}{builders: make(map[string]NodeBuilder)}

// Register 登记节点类型。同名重复登记时后者覆盖前者，空类型名或空 builder 会被忽略。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registry.Lock()
	registry.builders[typeName] = builder
	registry.Unlock()
}

// SupportedTypes 返回已登记的节点类型（字典序）。
func SupportedTypes() []string {
	registry.RLock()
	defer registry.RUnlock()
	types := make([]string, 0, len(registry.builders))
	for t := range registry.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 用当前登记表的快照生成 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	registry.RLock()
	defer registry.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range registry.builders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 一次性检查所有节点：缺少 type 或 type 未登记都会列入同一个 VALIDATION 错误，
// 错误的 Allowed 为已登记的类型。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	registry.RLock()
	var bad []string
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			bad = append(bad, fmt.Sprintf("#%d: missing type", i))
			continue
		}
		if _, ok := registry.builders[nc.Type]; !ok {
			bad = append(bad, fmt.Sprintf("#%d: %q", i, nc.Type))
		}
	}
	registry.RUnlock()

	if len(bad) == 0 {
		return nil
	}
	return core.Validation(core.ModuleConfig, "unsupported pipeline nodes "+strings.Join(bad, ", "), SupportedTypes())
}

// BuildPipeline 加载 path 指向的 pipeline YAML，校验后构建。path 为空时返回空 Pipeline。
func BuildPipeline(path string) (*pipeline.Pipeline, error) {
	if path == "" {
		return &pipeline.Pipeline{}, nil
	}
	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(DefaultFactory())
}
