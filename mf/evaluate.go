package mf

import (
	"math"
	"math/rand"
	"sort"

	"github.com/filmy/reco/dataset"
)

// EvalOptions 是 leave-one-out 评估参数。
type EvalOptions struct {
	// SampleSize 参评用户数上限（超出时随机抽样）
	SampleSize int

	// Seed 抽样种子；固定种子下两次评估结果逐位一致
	Seed int64
}

// DefaultEvalOptions 返回离线评估基线参数。
func DefaultEvalOptions() EvalOptions {
	return EvalOptions{SampleSize: 2000, Seed: 7}
}

const (
	evalRankDepth = 100
	evalCutoff    = 10
)

// Evaluate 对模型做 leave-one-out 排序评估：
// 在 ≥2 次交互的用户中抽样，为每人扣留最后一条交互作为正例，
// 其余训练交互的分数置为 -Inf 后对全部可打分物品排序，
// 取 top-100 计算 precision@10 / recall@10。
//
// 行下标 ≥ 已训练物品因子行数的物品视为不可打分，
// 既不参与掩蔽也不参与排序；同理，列下标超出用户因子行数的用户
// 不参评、不计入分母。没有合格用户时返回 (0, 0)。
func Evaluate(model *Model, m *dataset.Matrix, opts EvalOptions) (precisionAt10, recallAt10 float64) {
	if model == nil || m == nil {
		return 0, 0
	}
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultEvalOptions().SampleSize
	}

	validItems := len(model.ItemFactors)
	userPos := m.ItemsOfUser()

	// 合格用户：有已训练的用户因子行，且过滤掉不可打分物品后仍有 ≥2 个正例。
	// 没有因子行的用户在此处排除，不进入指标分母。
	validUsers := len(model.UserFactors)
	eligible := make([]int, 0, len(userPos))
	filtered := make([][]int, len(userPos))
	for u, items := range userPos {
		if u >= validUsers {
			continue
		}
		kept := items[:0:0]
		for _, it := range items {
			if it < validItems {
				kept = append(kept, it)
			}
		}
		filtered[u] = kept
		if len(kept) >= 2 {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return 0, 0
	}

	if len(eligible) > sampleSize {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})
		eligible = eligible[:sampleSize]
	}

	scores := make([]float64, validItems)
	var sumP, sumR float64
	for _, u := range eligible {
		pos := filtered[u]
		held := pos[len(pos)-1]
		train := pos[:len(pos)-1]

		userVec := model.UserFactors[u]
		for it := 0; it < validItems; it++ {
			scores[it] = Score(userVec, model.ItemFactors[it])
		}
		for _, it := range train {
			scores[it] = math.Inf(-1)
		}

		top := topIndices(scores, evalRankDepth)
		hit := 0
		for i := 0; i < evalCutoff && i < len(top); i++ {
			if top[i] == held {
				hit = 1
				break
			}
		}
		sumP += float64(hit) / float64(evalCutoff)
		sumR += float64(hit) // 每用户恰一个扣留正例，recall 分母为 1
	}

	n := float64(len(eligible))
	return sumP / n, sumR / n
}

// topIndices 返回分数最高的前 n 个下标（降序）。
func topIndices(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}
