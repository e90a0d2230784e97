// Package index implements the Hierarchical Navigable Small World
// approximate-nearest-neighbor graph the meaning dimension uses to
// answer similarity queries: probabilistic layering, greedy layer
// traversal, M-bounded neighbor selection, and ef-bounded candidate
// lists.
package index

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/juergengeck/meaningcore/pkg/errs"
	"github.com/juergengeck/meaningcore/pkg/metric"
)

// arenaID is the internal, runtime-only graph identity. The external
// object_id remains a content hash; arenaID is a dense integer assigned
// on insertion so neighbor sets can store cheap integers instead of
// pointers or strings.
type arenaID uint32

// Config tunes graph construction and search.
type Config struct {
	M              int // neighbors linked per layer when a node is inserted; existing neighbor sets are not pruned back to M
	EfConstruction int // candidate list size during insertion
	EfSearch       int // default candidate list size during search
}

// DefaultConfig returns the reference tuning: M=16, EfConstruction=200,
// EfSearch=50.
func DefaultConfig() Config {
	return Config{M: 16, EfConstruction: 200, EfSearch: 50}
}

func (c Config) withDefaults() Config {
	if c.M <= 0 {
		c.M = 16
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 50
	}
	return c
}

// maxLevelCap bounds the number of layers a single node can draw into,
// capping memory for pathological random draws.
const maxLevelCap = 16

type hnswNode struct {
	id            arenaID
	objectID      string
	meaningNodeID string
	vector        []float32
	level         int
	connections   map[int]map[arenaID]struct{} // layer -> neighbor set
}

// HNSW is an in-memory approximate nearest-neighbor index over a single
// fixed-width, single-metric vector space.
type HNSW struct {
	mu sync.RWMutex

	dimensions int
	metricKind metric.Metric
	config     Config

	nodes       map[arenaID]*hnswNode
	objectIndex map[string]arenaID
	nextID      arenaID

	entryPoint *arenaID
	maxLevel   int

	rng *rand.Rand
}

// New creates an empty index over vectors of the given width and
// metric. A zero Config falls back to DefaultConfig's values.
func New(dimensions int, m metric.Metric, config Config) *HNSW {
	return &HNSW{
		dimensions:  dimensions,
		metricKind:  m,
		config:      config.withDefaults(),
		nodes:       make(map[arenaID]*hnswNode),
		objectIndex: make(map[string]arenaID),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dimensions returns the index's configured vector width.
func (h *HNSW) Dimensions() int { return h.dimensions }

// Metric returns the index's configured metric.
func (h *HNSW) Metric() metric.Metric { return h.metricKind }

// IndexConfig returns the index's tuning parameters.
func (h *HNSW) IndexConfig() Config { return h.config }

// selectLevel draws a level from the geometrically decaying
// distribution: mL = 1/ln(M); starting at level 0, increment while
// uniform(0,1) < exp(-level/mL), capped at 16.
func (h *HNSW) selectLevel() int {
	mL := 1.0 / math.Log(float64(h.config.M))
	level := 0
	for h.rng.Float64() < math.Exp(-float64(level)/mL) && level < maxLevelCap {
		level++
	}
	return level
}

// Add inserts a vector under object_id, idempotent on a repeat
// object_id. meaning_node_id is carried through to search results so
// callers can resolve the persistent MeaningNode without a second
// lookup.
func (h *HNSW) Add(objectID, meaningNodeID string, embedding []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := metric.ValidateEmbedding(embedding, -1); err != nil {
		return errs.Wrap("add", err)
	}
	if len(embedding) != h.dimensions {
		return errs.Wrap("add", fmt.Errorf("%w: expected width %d, got %d", errs.ErrDimensionMismatch, h.dimensions, len(embedding)))
	}
	if _, exists := h.objectIndex[objectID]; exists {
		return nil
	}

	level := h.selectLevel()
	vec := append([]float32(nil), embedding...)

	id := h.nextID
	h.nextID++

	connections := make(map[int]map[arenaID]struct{}, level+1)
	for l := 0; l <= level; l++ {
		connections[l] = make(map[arenaID]struct{})
	}
	node := &hnswNode{id: id, objectID: objectID, meaningNodeID: meaningNodeID, vector: vec, level: level, connections: connections}

	if h.entryPoint == nil {
		h.nodes[id] = node
		h.objectIndex[objectID] = id
		ep := id
		h.entryPoint = &ep
		h.maxLevel = level
		return nil
	}

	current := *h.entryPoint
	for lc := h.maxLevel; lc > level; lc-- {
		best := h.searchLayer(vec, []arenaID{current}, 1, lc)
		if len(best) > 0 {
			current = best[0].id
		}
	}

	top := level
	if h.maxLevel < top {
		top = h.maxLevel
	}

	perLayerNeighbors := make(map[int][]arenaID, top+1)
	for lc := top; lc >= 0; lc-- {
		candidates := h.searchLayer(vec, []arenaID{current}, h.config.EfConstruction, lc)
		perLayerNeighbors[lc] = selectNeighbors(candidates, h.config.M)
		if len(candidates) > 0 {
			current = candidates[0].id
		}
	}

	h.nodes[id] = node
	h.objectIndex[objectID] = id

	for lc, neighbors := range perLayerNeighbors {
		for _, n := range neighbors {
			h.addConnection(id, n, lc)
			h.addConnection(n, id, lc)
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		ep := id
		h.entryPoint = &ep
	}

	return nil
}

func (h *HNSW) addConnection(from, to arenaID, layer int) {
	n, ok := h.nodes[from]
	if !ok {
		return
	}
	set, ok := n.connections[layer]
	if !ok {
		return
	}
	set[to] = struct{}{}
}

// selectNeighbors applies the reference's simple heuristic: the first m
// candidates by ascending distance. It does not prune the neighbors'
// own connection sets afterward — see the open question in SPEC_FULL.md
// §9 about the canonical "shrink connections" step.
func selectNeighbors(candidates []distItem, m int) []arenaID {
	n := len(candidates)
	if n > m {
		n = m
	}
	out := make([]arenaID, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].id
	}
	return out
}

// Result is a single search hit.
type Result struct {
	ObjectID      string
	MeaningNodeID string
	Similarity    float64
}

// Search returns the k closest indexed vectors to query under the
// index's metric, ordered by descending similarity, filtered to those
// meeting threshold (inclusive) when threshold is non-nil.
func (h *HNSW) Search(query []float32, k int, threshold *float64) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := metric.ValidateEmbedding(query, -1); err != nil {
		return nil, errs.Wrap("search", err)
	}
	if len(query) != h.dimensions {
		return nil, errs.Wrap("search", fmt.Errorf("%w: expected width %d, got %d", errs.ErrDimensionMismatch, h.dimensions, len(query)))
	}
	if h.entryPoint == nil {
		return []Result{}, nil
	}

	current := *h.entryPoint
	for lc := h.maxLevel; lc >= 1; lc-- {
		best := h.searchLayer(query, []arenaID{current}, 1, lc)
		if len(best) > 0 {
			current = best[0].id
		}
	}

	ef := h.config.EfSearch
	if k > ef {
		ef = k
	}
	candidates := h.searchLayer(query, []arenaID{current}, ef, 0)

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		n := h.nodes[c.id]
		sim := metric.ToSimilarity(h.metricKind, c.dist)
		if threshold != nil && sim < *threshold {
			continue
		}
		results = append(results, Result{ObjectID: n.objectID, MeaningNodeID: n.meaningNodeID, Similarity: sim})
	}

	return results, nil
}

// Remove deletes object_id from the graph, reporting whether it was
// present. Neighbors' connection sets are cleaned at every layer the
// node occupied; no further graph repair is performed.
func (h *HNSW) Remove(objectID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, exists := h.objectIndex[objectID]
	if !exists {
		return false
	}

	node := h.nodes[id]
	for layer, neighbors := range node.connections {
		for nb := range neighbors {
			if nbNode, ok := h.nodes[nb]; ok {
				delete(nbNode.connections[layer], id)
			}
		}
	}

	delete(h.nodes, id)
	delete(h.objectIndex, objectID)

	if h.entryPoint != nil && *h.entryPoint == id {
		if len(h.nodes) == 0 {
			h.entryPoint = nil
			h.maxLevel = 0
		} else {
			var best *arenaID
			bestLevel := -1
			for candID, candNode := range h.nodes {
				if candNode.level > bestLevel {
					level := candNode.level
					cid := candID
					best = &cid
					bestLevel = level
				}
			}
			h.entryPoint = best
			h.maxLevel = bestLevel
		}
	}

	return true
}

// Size returns the number of indexed vectors.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Has reports whether object_id is indexed.
func (h *HNSW) Has(objectID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.objectIndex[objectID]
	return ok
}

// AllObjectIDs returns every indexed object_id in no particular order.
func (h *HNSW) AllObjectIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.objectIndex))
	for id := range h.objectIndex {
		out = append(out, id)
	}
	return out
}

// distItem pairs an arena id with its distance to some query vector.
type distItem struct {
	id   arenaID
	dist float64
}

func (h *HNSW) distanceTo(query []float32, id arenaID) float64 {
	n := h.nodes[id]
	d, err := metric.Distance(h.metricKind, query, n.vector)
	if err != nil {
		// Widths are validated at every public boundary; an internal
		// mismatch here would mean a corrupt graph, not a caller error.
		return math.Inf(1)
	}
	return d
}

// searchLayer performs the bidirectional best-first traversal described
// in SPEC_FULL.md §4.3 restricted to edges at layer L, returning the
// results sorted by ascending distance.
func (h *HNSW) searchLayer(query []float32, entryPoints []arenaID, ef int, layer int) []distItem {
	visited := make(map[arenaID]bool, ef*2)
	candidates := &minDistHeap{}
	results := &maxDistHeap{}

	for _, ep := range entryPoints {
		if _, ok := h.nodes[ep]; !ok {
			continue
		}
		if visited[ep] {
			continue
		}
		visited[ep] = true
		d := h.distanceTo(query, ep)
		heap.Push(candidates, distItem{ep, d})
		heap.Push(results, distItem{ep, d})
	}

	for candidates.Len() > 0 {
		closest := (*candidates)[0]
		furthest := (*results)[0]
		if closest.dist > furthest.dist {
			break
		}

		cur := heap.Pop(candidates).(distItem)
		curNode, ok := h.nodes[cur.id]
		if !ok {
			continue
		}
		neighborSet, ok := curNode.connections[layer]
		if !ok {
			continue
		}

		for nb := range neighborSet {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			d := h.distanceTo(query, nb)
			furthest = (*results)[0]
			if results.Len() < ef || d < furthest.dist {
				heap.Push(candidates, distItem{nb, d})
				heap.Push(results, distItem{nb, d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]distItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(distItem)
	}
	return out
}

// minDistHeap pops the closest item first.
type minDistHeap []distItem

func (h minDistHeap) Len() int            { return len(h) }
func (h minDistHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minDistHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minDistHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *minDistHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxDistHeap pops the furthest item first, used to track (and evict)
// the current worst member of the result set.
type maxDistHeap []distItem

func (h maxDistHeap) Len() int            { return len(h) }
func (h maxDistHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxDistHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxDistHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *maxDistHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
