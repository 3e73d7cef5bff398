package skin

import (
	"fmt"
	"sort"
)

// MaxInfluences is the number of joint/weight pairs emitted per vertex.
const MaxInfluences = 4

// weightEpsilon is the tolerance before authored weights get
// renormalized to sum to 1.
const weightEpsilon = 1e-4

// Influences carries per-vertex skin attributes, MaxInfluences pairs per
// vertex. Joint indices are float32 because that is what the engine's
// skin-index vertex attribute stores.
type Influences struct {
	Joints  []float32
	Weights []float32
}

// VertexInfluences reads authored joint indices and weights — elemSize
// entries per source point — and emits per-vertex influence sets for a
// realized vertex stream. origPoint maps each emitted vertex back to its
// source point (tracked through de-indexing). remap, when non-nil,
// converts authored mesh joint order into skeleton bone order; entries
// mapping to -1 lose their weight.
//
// Weights are truncated to the MaxInfluences largest and renormalized
// when their sum strays from 1 by more than weightEpsilon. A vertex with
// no positive weight keeps an all-zero influence set.
func VertexInfluences(jointIndices []int, weights []float32, elemSize int, origPoint []int, remap []int) (*Influences, error) {
	if len(jointIndices) == 0 || len(weights) == 0 {
		return nil, fmt.Errorf("skin: missing joint indices or weights")
	}
	if len(jointIndices) != len(weights) {
		return nil, fmt.Errorf("skin: joint index count %d != weight count %d", len(jointIndices), len(weights))
	}
	if elemSize <= 0 {
		// Unauthored element size: infer from the densest point index.
		maxPoint := 0
		for _, p := range origPoint {
			if p > maxPoint {
				maxPoint = p
			}
		}
		elemSize = len(jointIndices) / (maxPoint + 1)
		if elemSize <= 0 {
			return nil, fmt.Errorf("skin: cannot infer element size")
		}
	}

	n := len(origPoint)
	inf := &Influences{
		Joints:  make([]float32, n*MaxInfluences),
		Weights: make([]float32, n*MaxInfluences),
	}

	type pair struct {
		joint  int
		weight float32
	}
	pairs := make([]pair, 0, elemSize)

	for v, p := range origPoint {
		lo := p * elemSize
		if lo < 0 || lo+elemSize > len(jointIndices) {
			continue // out-of-range point keeps zero influences
		}
		pairs = pairs[:0]
		for k := 0; k < elemSize; k++ {
			j := jointIndices[lo+k]
			w := weights[lo+k]
			if remap != nil {
				if j < 0 || j >= len(remap) {
					continue
				}
				j = remap[j]
			}
			if j < 0 || w <= 0 {
				continue
			}
			pairs = append(pairs, pair{j, w})
		}
		if len(pairs) == 0 {
			continue
		}
		if len(pairs) > MaxInfluences {
			sort.Slice(pairs, func(a, b int) bool { return pairs[a].weight > pairs[b].weight })
			pairs = pairs[:MaxInfluences]
		}
		var sum float32
		for _, pr := range pairs {
			sum += pr.weight
		}
		scale := float32(1)
		if d := sum - 1; (d > weightEpsilon || d < -weightEpsilon) && sum > 0 {
			scale = 1 / sum
		}
		for k, pr := range pairs {
			inf.Joints[v*MaxInfluences+k] = float32(pr.joint)
			inf.Weights[v*MaxInfluences+k] = pr.weight * scale
		}
	}
	return inf, nil
}
