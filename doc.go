// Package reco 是一个电影混合推荐引擎（内容语义 + 协同过滤）。
//
// 设计要点：
// - Pipeline-first: 推荐链路由 Node 串联（Recall → Filter → ReRank）
// - 双信号: 向量索引承担语义召回，隐式 ALS 因子承担个性化重排
// - 离线闭环: 反馈 → 训练 → 评估 → 注册表择优晋升 → 缓存每日热加载
package reco

import "github.com/filmy/reco/pipeline"

// 轻量 facade：便于直接 import 根包使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
