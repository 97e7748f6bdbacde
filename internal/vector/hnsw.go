package vector

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// Config holds HNSW construction and search parameters.
type Config struct {
	Dimensions     int
	MaxElements    int // preallocation hint, not a limit
	M              int // links per node above layer 0; layer 0 keeps 2*M
	MaxLayers      int
	EfConstruction int
	EfSearch       int
	Seed           uint64 // seeds the level generator
	Normalize      bool   // unit-normalize vectors before indexing
}

// DefaultConfig returns the reference parameters for the given dimension.
func DefaultConfig(dimensions int) Config {
	return Config{
		Dimensions:     dimensions,
		MaxElements:    100000,
		M:              24,
		MaxLayers:      16,
		EfConstruction: 400,
		EfSearch:       16,
		Normalize:      true,
	}
}

type node struct {
	id      models.RecordID
	vector  []float32
	friends [][]uint32 // friends[level]
}

// HNSW is a hierarchical navigable small world graph using squared Euclidean
// distance. When Normalize is set, vectors are scaled to unit length on
// insert and query so Euclidean order equals cosine order.
//
// Level assignment draws from a PCG generator seeded by Config.Seed, so
// inserting the same vectors in the same order yields the same graph.
type HNSW struct {
	cfg       Config
	nodes     []node
	entry     uint32
	maxLevel  int
	levelMult float64
	rng       *rand.Rand
}

// NewHNSW allocates an empty graph.
func NewHNSW(cfg Config) (*HNSW, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrInvalidInput)
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("%w: m must be at least 2", models.ErrInvalidInput)
	}
	if cfg.MaxLayers <= 0 {
		return nil, fmt.Errorf("%w: max layers must be positive", models.ErrInvalidInput)
	}
	if cfg.EfConstruction < cfg.M {
		cfg.EfConstruction = cfg.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 1
	}
	return &HNSW{
		cfg:       cfg,
		nodes:     make([]node, 0, max(cfg.MaxElements, 0)),
		maxLevel:  -1,
		levelMult: 1 / math.Log(float64(cfg.M)),
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Config returns the parameters the graph was built with.
func (h *HNSW) Config() Config { return h.cfg }

// Size returns the number of indexed points.
func (h *HNSW) Size() int { return len(h.nodes) }

// Dimensions returns the fixed vector length.
func (h *HNSW) Dimensions() int { return h.cfg.Dimensions }

func (h *HNSW) maxConn(level int) int {
	if level == 0 {
		return 2 * h.cfg.M
	}
	return h.cfg.M
}

func (h *HNSW) randomLevel() int {
	// 1-Float64 lies in (0, 1], keeping the log finite.
	level := int(-math.Log(1-h.rng.Float64()) * h.levelMult)
	return min(level, h.cfg.MaxLayers-1)
}

func (h *HNSW) prepare(v []float32) []float32 {
	if h.cfg.Normalize {
		return normalized(v)
	}
	return slices.Clone(v)
}

func (h *HNSW) dist(q []float32, n uint32) float32 {
	return SquaredL2(q, h.nodes[n].vector)
}

// Insert adds vector under id.
func (h *HNSW) Insert(vector []float32, id models.RecordID) error {
	if len(vector) != h.cfg.Dimensions {
		return fmt.Errorf("%w: got %d, index expects %d", models.ErrDimensionMismatch, len(vector), h.cfg.Dimensions)
	}
	vec := h.prepare(vector)
	level := h.randomLevel()
	n := uint32(len(h.nodes))
	h.nodes = append(h.nodes, node{id: id, vector: vec, friends: make([][]uint32, level+1)})

	if h.maxLevel < 0 {
		h.entry = n
		h.maxLevel = level
		return nil
	}

	ep := []candidate{{node: h.entry, dist: h.dist(vec, h.entry)}}
	for l := h.maxLevel; l > level; l-- {
		ep = h.searchLayer(vec, ep, 1, l)
	}
	for l := min(level, h.maxLevel); l >= 0; l-- {
		found := h.searchLayer(vec, ep, h.cfg.EfConstruction, l)
		neighbors := h.selectNeighbors(found, h.cfg.M)
		links := make([]uint32, len(neighbors))
		for i, nb := range neighbors {
			links[i] = nb.node
		}
		h.nodes[n].friends[l] = links
		for _, nb := range neighbors {
			h.link(nb.node, n, l)
		}
		ep = found
	}
	if level > h.maxLevel {
		h.maxLevel = level
		h.entry = n
	}
	return nil
}

// link adds to as a neighbour of from at level, pruning with the heuristic
// when from exceeds its degree bound.
func (h *HNSW) link(from, to uint32, level int) {
	friends := append(h.nodes[from].friends[level], to)
	limit := h.maxConn(level)
	if len(friends) <= limit {
		h.nodes[from].friends[level] = friends
		return
	}
	base := h.nodes[from].vector
	cands := make([]candidate, len(friends))
	for i, f := range friends {
		cands[i] = candidate{node: f, dist: SquaredL2(base, h.nodes[f].vector)}
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		if closer(a, b) {
			return -1
		}
		if closer(b, a) {
			return 1
		}
		return 0
	})
	kept := h.selectNeighbors(cands, limit)
	pruned := make([]uint32, len(kept))
	for i, c := range kept {
		pruned[i] = c.node
	}
	h.nodes[from].friends[level] = pruned
}

// selectNeighbors applies the HNSW heuristic to cands, which must be sorted
// by ascending distance to the base point: a candidate is kept only if it is
// closer to the base than to every candidate already kept.
func (h *HNSW) selectNeighbors(cands []candidate, m int) []candidate {
	if len(cands) <= m {
		return cands
	}
	selected := make([]candidate, 0, m)
	for _, c := range cands {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if SquaredL2(h.nodes[c.node].vector, h.nodes[s.node].vector) < c.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		}
	}
	return selected
}

// searchLayer runs a best-first search at level starting from entry and
// returns up to ef candidates sorted by ascending distance.
func (h *HNSW) searchLayer(q []float32, entry []candidate, ef, level int) []candidate {
	visited := make(map[uint32]struct{}, ef*4)
	cands := make(minQueue, 0, ef)
	results := make(maxQueue, 0, ef+1)
	for _, e := range entry {
		if _, ok := visited[e.node]; ok {
			continue
		}
		visited[e.node] = struct{}{}
		heap.Push(&cands, e)
		heap.Push(&results, e)
		if results.Len() > ef {
			heap.Pop(&results)
		}
	}

	for cands.Len() > 0 {
		c := heap.Pop(&cands).(candidate)
		if results.Len() >= ef && c.dist > results.top().dist {
			break
		}
		for _, f := range h.nodes[c.node].friends[level] {
			if _, ok := visited[f]; ok {
				continue
			}
			visited[f] = struct{}{}
			next := candidate{node: f, dist: h.dist(q, f)}
			if results.Len() < ef || closer(next, results.top()) {
				heap.Push(&cands, next)
				heap.Push(&results, next)
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(candidate)
	}
	return out
}

// Search returns up to k nearest hits using the configured ef.
func (h *HNSW) Search(query []float32, k int) ([]Hit, error) {
	return h.SearchEf(query, k, h.cfg.EfSearch)
}

// SearchEf returns up to k nearest hits by ascending distance. The candidate
// list holds max(ef, k) entries.
func (h *HNSW) SearchEf(query []float32, k, ef int) ([]Hit, error) {
	if len(query) != h.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, index expects %d", models.ErrDimensionMismatch, len(query), h.cfg.Dimensions)
	}
	if k <= 0 || len(h.nodes) == 0 {
		return nil, nil
	}
	q := h.prepare(query)
	ep := []candidate{{node: h.entry, dist: h.dist(q, h.entry)}}
	for l := h.maxLevel; l > 0; l-- {
		ep = h.searchLayer(q, ep, 1, l)
	}
	found := h.searchLayer(q, ep, max(ef, k), 0)
	if len(found) > k {
		found = found[:k]
	}
	hits := make([]Hit, len(found))
	for i, c := range found {
		hits[i] = Hit{ID: h.nodes[c.node].id, Distance: c.dist}
	}
	return hits, nil
}

var _ Index = (*HNSW)(nil)
