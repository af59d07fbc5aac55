// Package hnsw implements an in-memory, multi-layer proximity graph
// (Hierarchical Navigable Small World) for approximate k-nearest-neighbor
// search over fixed-dimension float32 vectors.
//
// The graph is a dense arena of node records addressed by internal integer
// offset (spec §9: "pointer graphs -> arena + ids"), with an id-to-offset
// map for lookups. A single sync.RWMutex guards the whole structure:
// readers (Search) take the read lock and never mutate; writers (Insert,
// MarkDelete) take the write lock. This is the simplest of the two options
// spec §9 allows and is the one this implementation makes (see DESIGN.md).
package hnsw

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Result is one hit from Search: an id and its score under the index's
// configured metric ("best first", see Index.Search).
type Result struct {
	ID    uint64
	Score float32
}

// Config fixes the parameters of an Index for its lifetime.
type Config struct {
	Dimension      int
	Metric         Metric
	M              int
	EfConstruction int
	MaxElements    int
}

// Index is a single collection's HNSW graph.
type Index struct {
	mu sync.RWMutex

	dim            int
	metric         Metric
	m              int
	m0             int // layer-0 degree cap, 2*m
	efConstruction int
	ml             float64

	nodes      []*node
	idToOffset map[uint64]int
	entryPoint int // offset of the current entry point, -1 if empty
	topLayer   int

	deleted    *roaring.Bitmap // tombstoned offsets, O(1) DeletedCount()
	rng        *rand.Rand
}

// New constructs an empty Index from cfg.
func New(cfg Config) *Index {
	m := cfg.M
	if m <= 0 {
		m = 64
	}
	efc := cfg.EfConstruction
	if efc <= 0 {
		efc = 200
	}
	cap := cfg.MaxElements
	if cap <= 0 {
		cap = 1024
	}
	return &Index{
		dim:            cfg.Dimension,
		metric:         cfg.Metric,
		m:              m,
		m0:             2 * m,
		efConstruction: efc,
		ml:             1 / math.Log(float64(m)),
		nodes:          make([]*node, 0, cap),
		idToOffset:     make(map[uint64]int, cap),
		entryPoint:     -1,
		topLayer:       -1,
		deleted:        roaring.New(),
		rng:            rand.New(rand.NewSource(1)),
	}
}

// Dimension returns the fixed vector length this index accepts.
func (idx *Index) Dimension() int { return idx.dim }

// Metric returns the configured distance metric.
func (idx *Index) Metric() Metric { return idx.metric }

// Reserve grows the backing storage to hold at least n nodes without
// further reallocation. It never shrinks the index.
func (idx *Index) Reserve(n int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reserveLocked(n)
}

func (idx *Index) reserveLocked(n int) {
	if n <= cap(idx.nodes) {
		return
	}
	grown := make([]*node, len(idx.nodes), n)
	copy(grown, idx.nodes)
	idx.nodes = grown
}

// Size returns the count of nodes including tombstoned ones.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// DeletedCount returns the number of tombstoned nodes.
func (idx *Index) DeletedCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int(idx.deleted.GetCardinality())
}

func (idx *Index) randomLevel() int {
	// Geometric distribution with parameter ml = 1/ln(M).
	r := idx.rng.Float64()
	for r == 0 {
		r = idx.rng.Float64()
	}
	return int(math.Floor(-math.Log(r) * idx.ml))
}

// Insert adds id with vector vec. Capacity grows by doubling (or at least
// to len+1) when the backing arena is full. Insertion never partially
// mutates the graph: if it fails at any step, the graph is left unchanged.
func (idx *Index) Insert(id uint64, vec []float32) error {
	if len(vec) != idx.dim {
		return ErrDimensionMismatch
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.idToOffset[id]; exists {
		// Re-inserting a live or tombstoned id is not supported (open
		// question in the source; see DESIGN.md).
		return ErrAlreadyExists
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	if idx.metric == Cosine {
		normalizeL2InPlace(stored)
	}

	level := idx.randomLevel()
	offset := len(idx.nodes)
	if offset == cap(idx.nodes) {
		newCap := 2 * cap(idx.nodes)
		if newCap <= offset {
			newCap = offset + 1
		}
		idx.reserveLocked(newCap)
	}

	n := newNode(id, stored, level)
	idx.nodes = append(idx.nodes, n)
	idx.idToOffset[id] = offset

	if idx.entryPoint == -1 {
		idx.entryPoint = offset
		idx.topLayer = level
		return nil
	}

	cur := idx.entryPoint
	curDist := dist(idx.metric, stored, idx.nodes[cur].vector)

	// Phase 1: greedy descent from topLayer down to level+1.
	for layer := idx.topLayer; layer > level; layer-- {
		improved := true
		for improved {
			improved = false
			for _, nb := range idx.nodes[cur].neighbors[layer] {
				d := dist(idx.metric, stored, idx.nodes[nb].vector)
				if d < curDist {
					curDist = d
					cur = nb
					improved = true
				}
			}
		}
	}

	// Phase 2: beam search + heuristic pruning from min(level, topLayer) to 0.
	start := level
	if idx.topLayer < start {
		start = idx.topLayer
	}
	for layer := start; layer >= 0; layer-- {
		candidates := idx.searchLayer(stored, cur, idx.efConstruction, layer)
		capacity := idx.m
		if layer == 0 {
			capacity = idx.m0
		}
		selected := idx.selectNeighborsHeuristic(stored, candidates, capacity)

		n.neighbors[layer] = make([]int, 0, len(selected))
		for _, c := range selected {
			n.neighbors[layer] = append(n.neighbors[layer], c.offset)
		}

		// Install bidirectional links, re-pruning the neighbor's own list
		// if it now exceeds capacity.
		for _, c := range selected {
			other := idx.nodes[c.offset]
			other.neighbors[layer] = append(other.neighbors[layer], offset)
			if len(other.neighbors[layer]) > capacity {
				pruned := idx.pruneNeighborList(other.vector, other.neighbors[layer], capacity)
				// A node pruned from other's list also loses its link back
				// to other, so every link stays bidirectional.
				kept := make(map[int]bool, len(pruned))
				for _, o := range pruned {
					kept[o] = true
				}
				for _, o := range other.neighbors[layer] {
					if kept[o] {
						continue
					}
					back := idx.nodes[o].neighbors[layer]
					for i, b := range back {
						if b == c.offset {
							idx.nodes[o].neighbors[layer] = append(back[:i], back[i+1:]...)
							break
						}
					}
				}
				other.neighbors[layer] = pruned
			}
		}

		if len(candidates) > 0 {
			cur = candidates[0].offset
		}
	}

	if level > idx.topLayer {
		idx.topLayer = level
		idx.entryPoint = offset
	}
	return nil
}

// pruneNeighborList re-applies the heuristic-RNG rule to an existing
// neighbor list (as offsets) to bring it back under cap.
func (idx *Index) pruneNeighborList(of []float32, offsets []int, capacity int) []int {
	cands := make([]candidate, 0, len(offsets))
	for _, o := range offsets {
		cands = append(cands, candidate{offset: o, dist: dist(idx.metric, of, idx.nodes[o].vector)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	selected := idx.selectNeighborsHeuristic(of, cands, capacity)
	out := make([]int, 0, len(selected))
	for _, c := range selected {
		out = append(out, c.offset)
	}
	return out
}

// selectNeighborsHeuristic implements the heuristic-RNG pruning rule:
// iterate candidates in ascending distance, accept c iff no already
// accepted neighbor a is strictly closer to c than c is to the query.
func (idx *Index) selectNeighborsHeuristic(query []float32, candidates []candidate, capacity int) []candidate {
	selected := make([]candidate, 0, capacity)
	for _, c := range candidates {
		if len(selected) >= capacity {
			break
		}
		good := true
		for _, a := range selected {
			if dist(idx.metric, idx.nodes[a.offset].vector, idx.nodes[c.offset].vector) < c.dist {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c)
		}
	}
	return selected
}

// searchLayer runs a bounded best-first search with beam width ef starting
// at entry, within layer, returning up to ef nearest candidates sorted by
// ascending distance (tombstoned nodes are included — they remain routing
// waypoints during construction and intermediate descent).
func (idx *Index) searchLayer(query []float32, entry int, ef int, layer int) []candidate {
	visited := make(map[int]bool)
	entryDist := dist(idx.metric, query, idx.nodes[entry].vector)

	frontier := &minHeap{{offset: entry, dist: entryDist}}
	results := &maxHeap{{offset: entry, dist: entryDist}}
	visited[entry] = true

	for frontier.Len() > 0 {
		c := (*frontier)[0]
		worst := (*results)[0]
		if c.dist > worst.dist && results.Len() >= ef {
			break
		}
		heap.Pop(frontier)

		for _, nb := range idx.nodes[c.offset].neighbors[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d := dist(idx.metric, query, idx.nodes[nb].vector)
			worst = (*results)[0]
			if results.Len() < ef || d < worst.dist {
				heap.Push(frontier, candidate{offset: nb, dist: d})
				heap.Push(results, candidate{offset: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, len(*results))
	copy(out, *results)
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out
}

// Search returns up to k nearest non-deleted neighbors of query, best
// first under the index's metric.
func (idx *Index) Search(query []float32, k, ef int) ([]Result, error) {
	if len(query) != idx.dim {
		return nil, ErrDimensionMismatch
	}
	if ef < k {
		ef = k
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.entryPoint == -1 {
		return nil, nil
	}

	q := query
	if idx.metric == Cosine {
		q = make([]float32, len(query))
		copy(q, query)
		normalizeL2InPlace(q)
	}

	cur := idx.entryPoint
	curDist := dist(idx.metric, q, idx.nodes[cur].vector)
	for layer := idx.topLayer; layer >= 1; layer-- {
		improved := true
		for improved {
			improved = false
			for _, nb := range idx.nodes[cur].neighbors[layer] {
				d := dist(idx.metric, q, idx.nodes[nb].vector)
				if d < curDist {
					curDist = d
					cur = nb
					improved = true
				}
			}
		}
	}

	candidates := idx.searchLayer(q, cur, ef, 0)

	out := make([]Result, 0, k)
	for _, c := range candidates {
		if idx.nodes[c.offset].deleted {
			continue
		}
		out = append(out, Result{ID: idx.nodes[c.offset].id, Score: score(idx.metric, c.dist)})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// VectorByID returns the stored vector for id (metric-normalized if the
// index's metric does that on insert) and whether id was found. Tombstoned
// ids are still returned: deletion hides a vector from Search, not from
// direct lookup.
func (idx *Index) VectorByID(id uint64) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	offset, ok := idx.idToOffset[id]
	if !ok {
		return nil, false
	}
	stored := idx.nodes[offset].vector
	out := make([]float32, len(stored))
	copy(out, stored)
	return out, true
}

// MarkDelete sets id's tombstone. The node remains a routing waypoint but
// is filtered from Search results.
func (idx *Index) MarkDelete(id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	offset, ok := idx.idToOffset[id]
	if !ok {
		return ErrNotFound
	}
	if idx.nodes[offset].deleted {
		return nil
	}
	idx.nodes[offset].deleted = true
	idx.deleted.Add(uint32(offset))
	return nil
}

