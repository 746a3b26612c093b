package gallery

import (
	"sort"

	"github.com/coder/hnsw"
)

// HNSW graph parameters. Galleries are small (tens of identities, a few
// samples each) so the defaults favour recall over memory.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// DefaultCandidates is how many samples are pulled from the graph before exact re-ranking.
	DefaultCandidates = 32
)

// hnswIndex retrieves approximate nearest samples; Store re-ranks them exactly.
type hnswIndex struct {
	graph *hnsw.Graph[int]
	k     int
}

func newHNSWIndex(samples []sample, k int) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i, s := range samples {
		g.Add(hnsw.MakeNode(i, s.vec))
	}
	return &hnswIndex{graph: g, k: k}
}

// candidates returns sample indices sorted ascending so that exact re-ranking
// applies the same name-order tie-break as the linear scan.
func (h *hnswIndex) candidates(query []float32) []int {
	if h.graph.Len() == 0 {
		return nil
	}
	k := min(h.k, h.graph.Len())
	nodes := h.graph.Search(query, k)

	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	sort.Ints(out)
	return out
}
