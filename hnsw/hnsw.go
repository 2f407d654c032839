// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search.
//
// The graph stores topology only: node levels and per-level neighbor lists,
// addressed by dense positions in insertion order. Vector data is owned by
// the caller and accessed through a VectorSource, so the same vectors can
// back both the graph and the persistent record store without copies.
package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/featherdb/feather/metric"
	"github.com/featherdb/feather/queue"
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// DistanceFunc represents a function for calculating the distance between two vectors.
type DistanceFunc func(v1, v2 []float32) (float32, error)

// VectorSource provides read access to the vectors backing graph positions.
// Vector must return the vector of any position previously inserted.
type VectorSource interface {
	Vector(pos uint32) []float32
}

// SearchResult is a single (position, distance) pair, nearest first.
type SearchResult struct {
	Pos      uint32
	Distance float32
}

// Options represents the options for configuring the graph.
type Options struct {
	// M specifies the number of established connections for every new element
	// during construction. The range M=12-48 is ok for most use cases.
	M int

	// EFConstruction specifies the size of the dynamic candidate list during
	// insertion. Larger values improve graph quality at the cost of build time.
	EFConstruction int

	// Heuristic indicates whether to use the diversity heuristic (true) or
	// naive closest-first selection (false) when choosing neighbors.
	Heuristic bool

	// DistanceFunc calculates the distance between vectors.
	DistanceFunc DistanceFunc

	// RandomSeed seeds the level generator. Level assignment is the only
	// source of randomness in the graph, so a fixed seed makes construction
	// bit-reproducible for a fixed insertion order.
	RandomSeed int64
}

// DefaultOptions contains the default options for the graph.
var DefaultOptions = Options{
	M:              16,
	EFConstruction: 200,
	Heuristic:      true,
	DistanceFunc:   metric.SquaredL2,
	RandomSeed:     1,
}

// Node represents a node in the graph.
type Node struct {
	Connections [][]uint32 // Neighbor positions per level, index 0 = bottom
	Layer       int        // Top level the node exists on
}

// Index represents the HNSW graph.
type Index struct {
	dimension int
	mmax      int     // Max number of connections per node per layer
	mmax0     int     // Max for layer 0
	ml        float64 // Normalization factor for level generation
	ep        uint32  // Entry point position
	maxLevel  int     // Current max level in use

	nodes   []*Node
	vectors VectorSource
	rng     *rand.Rand

	opts Options
}

// New creates a new Index with the given dimension, vector source and options.
func New(dimension int, vectors VectorSource, optFns ...func(o *Options)) *Index {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < 2 {
		// M == 1 would make ml = 1/log(M) divide by zero
		opts.M = 2
	}

	return &Index{
		dimension: dimension,
		mmax:      opts.M,
		mmax0:     2 * opts.M,
		ml:        1 / math.Log(float64(opts.M)),
		maxLevel:  -1,
		vectors:   vectors,
		rng:       rand.New(rand.NewSource(opts.RandomSeed)), // nolint gosec
		opts:      opts,
	}
}

// Len returns the number of nodes in the graph.
func (h *Index) Len() int { return len(h.nodes) }

// Dimension returns the vector dimensionality of the graph.
func (h *Index) Dimension() int { return h.dimension }

// MaxLevel returns the highest level currently in use, or -1 when empty.
func (h *Index) MaxLevel() int { return h.maxLevel }

// Insert adds a vector to the graph and returns its position. Positions are
// assigned densely in insertion order; the caller must ensure the same
// vector is readable from the VectorSource at the returned position.
func (h *Index) Insert(v []float32) (uint32, error) {
	if len(v) != h.dimension {
		return 0, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(v)}
	}

	pos := uint32(len(h.nodes))
	layer := int(math.Floor(-math.Log(h.rng.Float64()) * h.ml))

	node := &Node{
		Layer:       layer,
		Connections: make([][]uint32, layer+1),
	}

	// First node becomes the entry point, no linking required.
	if len(h.nodes) == 0 {
		h.nodes = append(h.nodes, node)
		h.ep = pos
		h.maxLevel = layer
		return pos, nil
	}

	// Greedy descent through the layers above the new node's top layer.
	currPos, currDist, err := h.greedyDescend(v, h.ep, h.maxLevel, layer)
	if err != nil {
		return 0, err
	}

	// For every layer the node lives on, run a beam search and link the
	// closest candidates.
	for level := min(layer, h.maxLevel); level >= 0; level-- {
		topCandidates, err := h.searchLayer(v, &queue.PriorityQueueItem{Node: currPos, Distance: currDist}, h.opts.EFConstruction, level)
		if err != nil {
			return 0, err
		}

		// The best candidate seeds the descent into the next layer.
		if best := h.bestOf(topCandidates); best != nil {
			currPos, currDist = best.Node, best.Distance
		}

		neighbors := h.selectNeighbours(topCandidates, h.opts.M)
		node.Connections[level] = neighbors
	}

	h.nodes = append(h.nodes, node)

	// Back-link the neighbors, pruning lists that overflow.
	for level := min(layer, h.maxLevel); level >= 0; level-- {
		for _, neighbor := range node.Connections[level] {
			if err := h.link(neighbor, pos, level); err != nil {
				return 0, err
			}
		}
	}

	if layer > h.maxLevel {
		h.ep = pos
		h.maxLevel = layer
	}

	return pos, nil
}

// Search performs a k-nearest neighbor search with the given beam width.
// An empty graph yields an empty result, and k larger than the node count
// returns every node. Equal distances are broken by insertion order.
func (h *Index) Search(q []float32, k int, efSearch int) ([]SearchResult, error) {
	if len(h.nodes) == 0 {
		return nil, nil
	}

	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	if efSearch < k {
		efSearch = k
	}

	currPos, currDist, err := h.greedyDescend(q, h.ep, h.maxLevel, 0)
	if err != nil {
		return nil, err
	}

	topCandidates, err := h.searchLayer(q, &queue.PriorityQueueItem{Node: currPos, Distance: currDist}, efSearch, 0)
	if err != nil {
		return nil, err
	}

	return h.extract(topCandidates, k), nil
}

// BruteSearch performs an exact linear scan. Used as a recall baseline.
func (h *Index) BruteSearch(q []float32, k int) ([]SearchResult, error) {
	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	topCandidates := &queue.PriorityQueue{Order: true}
	heap.Init(topCandidates)

	for pos := range h.nodes {
		dist, err := h.opts.DistanceFunc(q, h.vectors.Vector(uint32(pos)))
		if err != nil {
			return nil, err
		}

		if topCandidates.Len() < k {
			heap.Push(topCandidates, &queue.PriorityQueueItem{Node: uint32(pos), Distance: dist})
			continue
		}

		if worst, _ := topCandidates.Top().(*queue.PriorityQueueItem); dist < worst.Distance {
			heap.Pop(topCandidates)
			heap.Push(topCandidates, &queue.PriorityQueueItem{Node: uint32(pos), Distance: dist})
		}
	}

	return h.extract(topCandidates, k), nil
}

// greedyDescend walks from the entry point down to targetLevel+1, always
// moving to the closest neighbor, and returns the closest position found.
func (h *Index) greedyDescend(v []float32, epPos uint32, fromLevel, targetLevel int) (uint32, float32, error) {
	currPos := epPos

	currDist, err := h.opts.DistanceFunc(v, h.vectors.Vector(currPos))
	if err != nil {
		return 0, 0, err
	}

	for level := fromLevel; level > targetLevel; level-- {
		changed := true
		for changed {
			changed = false

			curr := h.nodes[currPos]
			if level > curr.Layer {
				continue
			}

			for _, neighbor := range curr.Connections[level] {
				dist, err := h.opts.DistanceFunc(v, h.vectors.Vector(neighbor))
				if err != nil {
					return 0, 0, err
				}

				if dist < currDist {
					currPos = neighbor
					currDist = dist
					changed = true
				}
			}
		}
	}

	return currPos, currDist, nil
}

// searchLayer performs a beam search in a single layer. The returned queue
// is a max-heap holding at most ef candidates.
func (h *Index) searchLayer(q []float32, ep *queue.PriorityQueueItem, ef int, level int) (*queue.PriorityQueue, error) {
	var visited bitset.BitSet
	visited.Set(uint(ep.Node))

	candidates := &queue.PriorityQueue{}
	heap.Init(candidates)
	heap.Push(candidates, &queue.PriorityQueueItem{Node: ep.Node, Distance: ep.Distance})

	topCandidates := &queue.PriorityQueue{Order: true}
	heap.Init(topCandidates)
	heap.Push(topCandidates, &queue.PriorityQueueItem{Node: ep.Node, Distance: ep.Distance})

	for candidates.Len() > 0 {
		lowerBound := topCandidates.Top().(*queue.PriorityQueueItem).Distance

		candidate, _ := heap.Pop(candidates).(*queue.PriorityQueueItem)
		if candidate.Distance > lowerBound && topCandidates.Len() >= ef {
			break
		}

		node := h.nodes[candidate.Node]
		if level > node.Layer {
			continue
		}

		for _, neighbor := range node.Connections[level] {
			if visited.Test(uint(neighbor)) {
				continue
			}
			visited.Set(uint(neighbor))

			dist, err := h.opts.DistanceFunc(q, h.vectors.Vector(neighbor))
			if err != nil {
				return nil, err
			}

			if topCandidates.Len() < ef {
				heap.Push(topCandidates, &queue.PriorityQueueItem{Node: neighbor, Distance: dist})
				heap.Push(candidates, &queue.PriorityQueueItem{Node: neighbor, Distance: dist})
			} else if topCandidates.Top().(*queue.PriorityQueueItem).Distance > dist {
				heap.Pop(topCandidates)
				heap.Push(topCandidates, &queue.PriorityQueueItem{Node: neighbor, Distance: dist})
				heap.Push(candidates, &queue.PriorityQueueItem{Node: neighbor, Distance: dist})
			}
		}
	}

	return topCandidates, nil
}

// link records dst as a neighbor of src at the given level, pruning the
// neighbor list when it overflows the per-level connection limit.
func (h *Index) link(src, dst uint32, level int) error {
	maxConnections := h.mmax
	// The bottom layer allows double the connections
	if level == 0 {
		maxConnections = h.mmax0
	}

	node := h.nodes[src]
	node.Connections[level] = append(node.Connections[level], dst)

	if len(node.Connections[level]) <= maxConnections {
		return nil
	}

	// Rebuild the overflowing list from scratch through neighbor selection.
	srcVec := h.vectors.Vector(src)

	topCandidates := &queue.PriorityQueue{Order: true}
	heap.Init(topCandidates)

	for _, neighbor := range node.Connections[level] {
		dist, err := h.opts.DistanceFunc(srcVec, h.vectors.Vector(neighbor))
		if err != nil {
			return err
		}
		heap.Push(topCandidates, &queue.PriorityQueueItem{Node: neighbor, Distance: dist})
	}

	node.Connections[level] = h.selectNeighbours(topCandidates, maxConnections)
	return nil
}

// selectNeighbours picks up to m neighbors from the max-heap of candidates,
// consuming the queue. Results are ordered nearest first.
func (h *Index) selectNeighbours(topCandidates *queue.PriorityQueue, m int) []uint32 {
	items := h.sortedCandidates(topCandidates)

	if !h.opts.Heuristic || len(items) <= m {
		if len(items) > m {
			items = items[:m]
		}
		return positionsOf(items)
	}

	// Diversity heuristic: a candidate is kept only if it is closer to the
	// source than to every already-selected neighbor (relative neighborhood
	// graph property). Rejected candidates fill remaining slots afterwards.
	selected := make([]*queue.PriorityQueueItem, 0, m)
	rejected := make([]*queue.PriorityQueueItem, 0, len(items))

	for _, item := range items {
		if len(selected) >= m {
			break
		}

		good := true
		for _, s := range selected {
			dist, err := h.opts.DistanceFunc(h.vectors.Vector(s.Node), h.vectors.Vector(item.Node))
			if err != nil {
				good = false
				break
			}
			if dist < item.Distance {
				good = false
				break
			}
		}

		if good {
			selected = append(selected, item)
		} else {
			rejected = append(rejected, item)
		}
	}

	for _, item := range rejected {
		if len(selected) >= m {
			break
		}
		selected = append(selected, item)
	}

	return positionsOf(selected)
}

// sortedCandidates drains a max-heap into a slice ordered nearest first,
// breaking distance ties by insertion order.
func (h *Index) sortedCandidates(topCandidates *queue.PriorityQueue) []*queue.PriorityQueueItem {
	items := make([]*queue.PriorityQueueItem, 0, topCandidates.Len())
	for topCandidates.Len() > 0 {
		item, _ := heap.Pop(topCandidates).(*queue.PriorityQueueItem)
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		return items[i].Node < items[j].Node
	})

	return items
}

func (h *Index) bestOf(topCandidates *queue.PriorityQueue) *queue.PriorityQueueItem {
	var best *queue.PriorityQueueItem
	for _, item := range topCandidates.Items {
		if best == nil || item.Distance < best.Distance {
			best = item
		}
	}
	return best
}

// extract drains the result heap into at most k results, nearest first.
func (h *Index) extract(topCandidates *queue.PriorityQueue, k int) []SearchResult {
	items := h.sortedCandidates(topCandidates)
	if len(items) > k {
		items = items[:k]
	}

	results := make([]SearchResult, len(items))
	for i, item := range items {
		results[i] = SearchResult{Pos: item.Node, Distance: item.Distance}
	}
	return results
}

func positionsOf(items []*queue.PriorityQueueItem) []uint32 {
	positions := make([]uint32, len(items))
	for i, item := range items {
		positions[i] = item.Node
	}
	return positions
}
