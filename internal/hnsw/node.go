package hnsw

// node is one vector's entry in the graph: its payload, its level, and its
// per-layer neighbor lists. All mutation is serialized by Index.mu, so no
// per-node synchronization is needed (spec §9: "do not attempt fine-grained
// per-node locking").
type node struct {
	id        uint64
	vector    []float32
	level     int
	deleted   bool
	neighbors [][]int // neighbors[layer] holds offsets into Index.nodes
}

func newNode(id uint64, vector []float32, level int) *node {
	n := &node{
		id:        id,
		vector:    vector,
		level:     level,
		neighbors: make([][]int, level+1),
	}
	for l := range n.neighbors {
		n.neighbors[l] = nil
	}
	return n
}
