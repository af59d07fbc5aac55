package hnsw

// Stats summarizes the graph's shape for observability.
type Stats struct {
	NodeCount      int
	DeletedCount   int
	EdgeCount      int
	TopLayer       int
	LevelHistogram []int // LevelHistogram[L] = number of nodes present at layer L
}

// Stats computes a snapshot of the graph's current shape.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st := Stats{
		NodeCount:    len(idx.nodes),
		DeletedCount: int(idx.deleted.GetCardinality()),
		TopLayer:     idx.topLayer,
	}
	if idx.topLayer >= 0 {
		st.LevelHistogram = make([]int, idx.topLayer+1)
	}
	for _, n := range idx.nodes {
		for l := 0; l <= n.level; l++ {
			st.LevelHistogram[l]++
			st.EdgeCount += len(n.neighbors[l])
		}
	}
	return st
}
