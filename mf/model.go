// Package mf 实现隐式反馈的矩阵分解（ALS）：训练、评估与模型载体。
//
// 训练产物是两个稠密因子矩阵（用户 × k、物品 × k）加上生成它们的
// dataset.Map。预测分数 = 用户隐向量 · 物品隐向量。
package mf

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/filmy/reco/dataset"
)

// Model 是训练完成的矩阵分解模型。
// 不变式：len(UserFactors) == Map.NumUsers()，len(ItemFactors) == Map.NumItems()；
// 任何不在 Map.ItemIndex 中的候选物品无法被该模型打分，
// 调用方必须回退到非个性化排序。
type Model struct {
	// Factors 隐向量维度 k
	Factors int

	// UserFactors 用户隐向量，num_users × k
	UserFactors [][]float64

	// ItemFactors 物品隐向量，num_items × k
	ItemFactors [][]float64

	// Map 训练时使用的索引空间（与因子矩阵同生共死）
	Map *dataset.Map
}

// Validate 校验因子矩阵行数与索引空间一致。
func (m *Model) Validate() error {
	if m.Map == nil {
		return fmt.Errorf("mf: model has no dataset map")
	}
	if len(m.UserFactors) != m.Map.NumUsers() {
		return fmt.Errorf("mf: user factors rows %d != mapped users %d", len(m.UserFactors), m.Map.NumUsers())
	}
	if len(m.ItemFactors) != m.Map.NumItems() {
		return fmt.Errorf("mf: item factors rows %d != mapped items %d", len(m.ItemFactors), m.Map.NumItems())
	}
	return nil
}

// UserVector 返回外部用户 ID 对应的隐向量；用户不在索引空间时返回 false。
func (m *Model) UserVector(userID int64) ([]float64, bool) {
	idx, ok := m.Map.UserOf(userID)
	if !ok || idx >= len(m.UserFactors) {
		return nil, false
	}
	return m.UserFactors[idx], true
}

// ItemVector 返回外部物品 ID 对应的隐向量；物品不可打分时返回 false。
// 行下标超出已训练因子行数的物品同样视为不可打分。
func (m *Model) ItemVector(itemID int64) ([]float64, bool) {
	idx, ok := m.Map.ItemOf(itemID)
	if !ok || idx >= len(m.ItemFactors) {
		return nil, false
	}
	return m.ItemFactors[idx], true
}

// Score 计算 dot(用户隐向量, 物品隐向量)。
func Score(userVec, itemVec []float64) float64 {
	var sum float64
	for i := range userVec {
		sum += userVec[i] * itemVec[i]
	}
	return sum
}

// Encode 把模型序列化为注册表可存储的 artifact 字节。
func (m *Model) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("mf: encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode 从 artifact 字节还原模型，并校验不变式。
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("mf: decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
