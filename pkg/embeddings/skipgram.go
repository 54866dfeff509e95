package embeddings

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const (
	// unigramTableSize bounds the negative sampling table.
	unigramTableSize = 1 << 20
	// unigramPower flattens the node frequency distribution.
	unigramPower = 0.75
	// maxExp clips the sigmoid input.
	maxExp = 6.0
)

// train fits a skip-gram model with negative sampling on the walks and
// returns the input vectors, one per node ID.
func (n *Node2Vec) train(ctx context.Context, walks [][]int64, nodes int, rng *rand.Rand, log *zap.Logger) ([][]float64, error) {
	dim := n.Dimensions
	syn0 := make([][]float64, nodes)
	syn1 := make([][]float64, nodes)
	for i := range syn0 {
		syn0[i] = make([]float64, dim)
		for d := range syn0[i] {
			syn0[i][d] = (rng.Float64() - 0.5) / float64(dim)
		}
		syn1[i] = make([]float64, dim)
	}

	counts := make([]int, nodes)
	tokens := 0
	for _, w := range walks {
		for _, v := range w {
			counts[v]++
		}
		tokens += len(w)
	}
	table := unigramTable(counts)

	total := float64(tokens * n.Epochs)
	processed := 0
	neu1e := make([]float64, dim)

	for epoch := 0; epoch < n.Epochs; epoch++ {
		for wi, w := range walks {
			if wi%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			for pos, center := range w {
				lr := n.LearningRate - (n.LearningRate-n.MinLearningRate)*float64(processed)/total
				lr = max(lr, n.MinLearningRate)
				processed++

				reduced := n.Window - rng.Intn(n.Window)
				lo := max(0, pos-reduced)
				hi := min(len(w)-1, pos+reduced)
				for c := lo; c <= hi; c++ {
					if c == pos {
						continue
					}
					n.trainPair(syn0[w[c]], syn1, center, table, neu1e, lr, rng)
				}
			}
		}
		log.Debug("epoch finished", zap.Int("epoch", epoch+1), zap.Int("tokens", tokens))
	}
	return syn0, nil
}

// trainPair updates the input vector l1 of a context node towards predicting
// target, against Negative nodes drawn from the unigram table.
func (n *Node2Vec) trainPair(l1 []float64, syn1 [][]float64, target int64, table []int32, neu1e []float64, lr float64, rng *rand.Rand) {
	for i := range neu1e {
		neu1e[i] = 0
	}
	for d := 0; d <= n.Negative; d++ {
		node, label := target, 1.0
		if d > 0 {
			if len(table) == 0 {
				break
			}
			node = int64(table[rng.Intn(len(table))])
			if node == target {
				continue
			}
			label = 0
		}
		out := syn1[node]
		f := floats.Dot(l1, out)
		var g float64
		switch {
		case f > maxExp:
			g = (label - 1) * lr
		case f < -maxExp:
			g = label * lr
		default:
			g = (label - sigmoid(f)) * lr
		}
		floats.AddScaled(neu1e, g, out)
		floats.AddScaled(out, g, l1)
	}
	floats.Add(l1, neu1e)
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// unigramTable fills a table where node v occupies a share of slots
// proportional to counts[v]^0.75. Nodes with a zero count get no slot.
func unigramTable(counts []int) []int32 {
	var norm float64
	for _, c := range counts {
		norm += math.Pow(float64(c), unigramPower)
	}
	if norm == 0 {
		return nil
	}
	table := make([]int32, unigramTableSize)
	v := 0
	for v < len(counts) && counts[v] == 0 {
		v++
	}
	cum := math.Pow(float64(counts[v]), unigramPower) / norm
	for i := range table {
		table[i] = int32(v)
		if float64(i+1)/unigramTableSize > cum && v < len(counts)-1 {
			v++
			for v < len(counts)-1 && counts[v] == 0 {
				v++
			}
			cum += math.Pow(float64(counts[v]), unigramPower) / norm
		}
	}
	return table
}
