// Package decorec 是家居商品的推荐与自动分类引擎。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑由 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: 类别/空间/风格标签由句向量相似度自动打标，目录变更后整体重建
// - 冷启动按质量分排序，个性化按 TF-IDF 画像相似度与质量分融合排序
package decorec

import "github.com/rushteam/decorec/pipeline"

// 轻量 facade：便于直接 import "decorec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
