// Package dataset 负责把原始反馈行转换为训练用的索引空间与稀疏置信度矩阵。
//
// 索引空间只对本次训练快照有效：用户集或物品集任一发生变化后，
// 旧的 DatasetMap 不得复用到新的因子矩阵上。
package dataset

import (
	"math"
	"sort"

	"github.com/filmy/reco/core"
)

// Map 是外部 ID 与稠密 0 基矩阵下标之间的双向映射，用户与物品各一份。
// 不变式：矩阵中每个下标恰好对应一个外部 ID，反之亦然。
type Map struct {
	// UserIndex 外部用户 ID -> 矩阵列下标
	UserIndex map[int64]int `json:"user_index"`

	// ItemIndex 外部物品 ID -> 矩阵行下标
	ItemIndex map[int64]int `json:"item_index"`

	// Users 列下标 -> 外部用户 ID（逆映射）
	Users []int64 `json:"users"`

	// Items 行下标 -> 外部物品 ID（逆映射）
	Items []int64 `json:"items"`
}

// NumUsers 返回用户数。
func (m *Map) NumUsers() int { return len(m.Users) }

// NumItems 返回物品数。
func (m *Map) NumItems() int { return len(m.Items) }

// UserOf 返回用户的列下标。
func (m *Map) UserOf(userID int64) (int, bool) {
	idx, ok := m.UserIndex[userID]
	return idx, ok
}

// ItemOf 返回物品的行下标。
func (m *Map) ItemOf(itemID int64) (int, bool) {
	idx, ok := m.ItemIndex[itemID]
	return idx, ok
}

// newMap 按外部 ID 升序分配稠密下标（确定性，同一快照下可复现）。
func newMap(userIDs, itemIDs map[int64]struct{}) *Map {
	users := make([]int64, 0, len(userIDs))
	for uid := range userIDs {
		users = append(users, uid)
	}
	items := make([]int64, 0, len(itemIDs))
	for mid := range itemIDs {
		items = append(items, mid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	m := &Map{
		UserIndex: make(map[int64]int, len(users)),
		ItemIndex: make(map[int64]int, len(items)),
		Users:     users,
		Items:     items,
	}
	for idx, uid := range users {
		m.UserIndex[uid] = idx
	}
	for idx, mid := range items {
		m.ItemIndex[mid] = idx
	}
	return m
}

// Entry 是稀疏矩阵中的一个非零元：物品行 × 用户列上的置信度。
type Entry struct {
	Item       int     `json:"item"`
	User       int     `json:"user"`
	Confidence float64 `json:"confidence"`
}

// Matrix 是 (num_items × num_users) 的稀疏置信度矩阵（COO 形态）。
// 行=物品、列=用户的方向在训练与打分两侧保持一致。
// 缺失的元素表示"无信号"（置信度为零），不是负反馈。
type Matrix struct {
	NumItems int     `json:"num_items"`
	NumUsers int     `json:"num_users"`
	Entries  []Entry `json:"entries"`
}

// NNZ 返回非零元个数。
func (m *Matrix) NNZ() int { return len(m.Entries) }

// ItemsOfUser 返回每个用户（列）交互过的物品行下标，按 Entry 出现顺序。
// 评估时用于构建正例集合。
func (m *Matrix) ItemsOfUser() [][]int {
	out := make([][]int, m.NumUsers)
	for _, e := range m.Entries {
		out[e.User] = append(out[e.User], e.Item)
	}
	return out
}

// Build 把反馈行转换为 (Map, Matrix)。
//
// 流程：
//  1. 同一 (user, item) 出现多行时只保留最新一行（CreatedAt，相同则取后出现者）
//  2. 无评分且状态不是 watched 的行丢弃；非有限评分丢弃
//  3. 幸存行中的用户/物品按 ID 升序分配稠密下标
//  4. 置信度 = 1 + alpha*rating，落在 (物品行, 用户列)
//
// 全部行被过滤时返回 core.ErrEmptyDataset：空矩阵上禁止训练。
func Build(feedbacks []*core.Feedback, alpha float64) (*Map, *Matrix, error) {
	type key struct{ user, item int64 }

	// 去重：保留最新一行
	latest := make(map[key]*core.Feedback, len(feedbacks))
	order := make([]key, 0, len(feedbacks))
	for _, f := range feedbacks {
		if f == nil {
			continue
		}
		k := key{f.UserID, f.MovieID}
		if old, ok := latest[k]; ok {
			if !f.CreatedAt.Before(old.CreatedAt) {
				latest[k] = f
			}
			continue
		}
		latest[k] = f
		order = append(order, k)
	}

	// 过滤无信号行
	type signal struct {
		userID int64
		itemID int64
		rating float64
	}
	signals := make([]signal, 0, len(order))
	userIDs := make(map[int64]struct{})
	itemIDs := make(map[int64]struct{})
	for _, k := range order {
		f := latest[k]
		rating, ok := f.RatingValue()
		if !ok {
			continue
		}
		if math.IsNaN(rating) || math.IsInf(rating, 0) {
			continue
		}
		signals = append(signals, signal{userID: f.UserID, itemID: f.MovieID, rating: rating})
		userIDs[f.UserID] = struct{}{}
		itemIDs[f.MovieID] = struct{}{}
	}

	if len(signals) == 0 {
		return nil, nil, core.ErrEmptyDataset
	}

	dm := newMap(userIDs, itemIDs)
	mat := &Matrix{
		NumItems: dm.NumItems(),
		NumUsers: dm.NumUsers(),
		Entries:  make([]Entry, 0, len(signals)),
	}
	for _, s := range signals {
		uidx := dm.UserIndex[s.userID]
		midx := dm.ItemIndex[s.itemID]
		mat.Entries = append(mat.Entries, Entry{
			Item:       midx,
			User:       uidx,
			Confidence: 1.0 + alpha*s.rating,
		})
	}
	return dm, mat, nil
}
