package mf

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/filmy/reco/dataset"
)

// Options 是 ALS 训练超参数。
type Options struct {
	// Factors 隐向量维度 k
	Factors int

	// Regularization L2 正则系数 λ
	Regularization float64

	// Epochs 交替迭代轮数
	Epochs int

	// Seed 因子初始化的随机种子；0 表示使用固定默认种子。
	// 位级确定性不作要求，但相同矩阵+超参的多次训练评估指标应在小容差内收敛。
	Seed int64
}

// DefaultOptions 返回与离线训练基线一致的默认超参。
func DefaultOptions() Options {
	return Options{
		Factors:        64,
		Regularization: 0.01,
		Epochs:         20,
	}
}

// Fit 在稀疏置信度矩阵上运行隐式反馈 ALS（Hu-Koren 形式），
// 最小化观测置信度上的加权重构误差，未观测元素按零置信度正则化。
//
// 矩阵方向为 物品行 × 用户列（dataset.Build 的产出），
// 打分侧沿用同一方向。
func Fit(m *dataset.Matrix, dm *dataset.Map, opts Options) (*Model, error) {
	if m == nil || m.NNZ() == 0 {
		return nil, fmt.Errorf("mf: empty interaction matrix")
	}
	k := opts.Factors
	if k <= 0 {
		k = DefaultOptions().Factors
	}
	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = DefaultOptions().Epochs
	}
	reg := opts.Regularization
	if reg <= 0 {
		reg = DefaultOptions().Regularization
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 42
	}

	numUsers := m.NumUsers
	numItems := m.NumItems

	// 按用户列 / 物品行分组的观测，ALS 两个半步各用一份
	byUser := make([][]obs, numUsers)
	byItem := make([][]obs, numItems)
	for _, e := range m.Entries {
		byUser[e.User] = append(byUser[e.User], obs{idx: e.Item, confidence: e.Confidence})
		byItem[e.Item] = append(byItem[e.Item], obs{idx: e.User, confidence: e.Confidence})
	}

	rng := rand.New(rand.NewSource(seed))
	userF := randomFactors(rng, numUsers, k)
	itemF := randomFactors(rng, numItems, k)

	for epoch := 0; epoch < epochs; epoch++ {
		solveSide(userF, itemF, byUser, reg, k)
		solveSide(itemF, userF, byItem, reg, k)
	}

	model := &Model{
		Factors:     k,
		UserFactors: userF,
		ItemFactors: itemF,
		Map:         dm,
	}
	if dm != nil {
		if err := model.Validate(); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// obs 是一侧视角下的单个观测：对侧下标 + 置信度。
type obs struct {
	idx        int
	confidence float64
}

// solveSide 固定 other 侧因子，对 target 侧的每一行解正规方程：
//
//	(Y^T Y + Y^T (C_u - I) Y + λI) x_u = Y^T C_u p_u
//
// 其中 p_u 是观测位置上的单位偏好向量，C_u 为置信度对角阵。
func solveSide(target, other [][]float64, observed [][]obs, reg float64, k int) {
	// 预计算 Y^T Y（所有行共享）
	yty := mat.NewSymDense(k, nil)
	for _, row := range other {
		for a := 0; a < k; a++ {
			for b := a; b < k; b++ {
				yty.SetSym(a, b, yty.At(a, b)+row[a]*row[b])
			}
		}
	}

	a := mat.NewSymDense(k, nil)
	b := mat.NewVecDense(k, nil)
	x := mat.NewVecDense(k, nil)

	for u := range target {
		// A = YtY + λI
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				v := yty.At(i, j)
				if i == j {
					v += reg
				}
				a.SetSym(i, j, v)
			}
		}
		for i := 0; i < k; i++ {
			b.SetVec(i, 0)
		}

		// 观测位置的修正项：A += (c-1)·y yᵀ，b += c·y
		for _, o := range observed[u] {
			y := other[o.idx]
			w := o.confidence - 1.0
			for i := 0; i < k; i++ {
				for j := i; j < k; j++ {
					a.SetSym(i, j, a.At(i, j)+w*y[i]*y[j])
				}
				b.SetVec(i, b.AtVec(i)+o.confidence*y[i])
			}
		}

		var ch mat.Cholesky
		if ch.Factorize(a) {
			if err := ch.SolveVecTo(x, b); err == nil {
				for i := 0; i < k; i++ {
					target[u][i] = x.AtVec(i)
				}
				continue
			}
		}
		// 正定性失败时退化为带更强阻尼的对角解，避免训练整体失败
		for i := 0; i < k; i++ {
			target[u][i] = b.AtVec(i) / (a.At(i, i) + reg)
		}
	}
}

func randomFactors(rng *rand.Rand, rows, k int) [][]float64 {
	f := make([][]float64, rows)
	scale := 1.0 / float64(k)
	for i := range f {
		f[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			f[i][j] = rng.NormFloat64() * scale
		}
	}
	return f
}
