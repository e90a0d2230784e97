package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/juergengeck/meaningcore/pkg/errs"
	"github.com/juergengeck/meaningcore/pkg/metric"
)

// snapshot is the self-describing document serialize/deserialize
// exchange. Connections are recorded by object_id, not arena id, since
// arena ids are a runtime-only identity (SPEC_FULL.md §9) that gets
// reassigned on every deserialize.
type snapshot struct {
	Dimensions int
	MetricKind metric.Metric
	Config     Config
	EntryPoint string // object_id; empty means none
	MaxLevel   int
	Nodes      []snapshotNode
}

type snapshotNode struct {
	ObjectID      string
	MeaningNodeID string
	Vector        []float32
	Level         int
	Connections   [][]string // Connections[layer] = neighbor object_ids
}

// Serialize encodes the index into a single opaque, self-describing
// gob document. Snapshots are a cache of the in-memory graph, not the
// authoritative state — the store-backed rebuild path is (SPEC_FULL.md
// §9, open question 3).
func (h *HNSW) Serialize() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := snapshot{
		Dimensions: h.dimensions,
		MetricKind: h.metricKind,
		Config:     h.config,
		MaxLevel:   h.maxLevel,
	}
	if h.entryPoint != nil {
		snap.EntryPoint = h.nodes[*h.entryPoint].objectID
	}

	ids := make([]arenaID, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := h.nodes[id]
		conns := make([][]string, n.level+1)
		for l := 0; l <= n.level; l++ {
			neighbors := make([]string, 0, len(n.connections[l]))
			for nb := range n.connections[l] {
				neighbors = append(neighbors, h.nodes[nb].objectID)
			}
			sort.Strings(neighbors)
			conns[l] = neighbors
		}
		snap.Nodes = append(snap.Nodes, snapshotNode{
			ObjectID:      n.objectID,
			MeaningNodeID: n.meaningNodeID,
			Vector:        n.vector,
			Level:         n.level,
			Connections:   conns,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, errs.Wrap("serialize", err)
	}
	return buf.Bytes(), nil
}

// Deserialize replaces the index's contents with the graph encoded in
// data, failing with ErrCorruptSerializedState if the decoded graph
// violates any of the invariants in SPEC_FULL.md §3.
func (h *HNSW) Deserialize(data []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return errs.Wrap("deserialize", fmt.Errorf("%w: %v", errs.ErrCorruptSerializedState, err))
	}

	nodes := make(map[arenaID]*hnswNode, len(snap.Nodes))
	objectIndex := make(map[string]arenaID, len(snap.Nodes))
	var nextID arenaID

	for _, sn := range snap.Nodes {
		if len(sn.Vector) != snap.Dimensions {
			return errs.Wrap("deserialize", fmt.Errorf("%w: node %q has width %d, want %d", errs.ErrCorruptSerializedState, sn.ObjectID, len(sn.Vector), snap.Dimensions))
		}
		if len(sn.Connections) != sn.Level+1 {
			return errs.Wrap("deserialize", fmt.Errorf("%w: node %q has %d connection layers, want %d", errs.ErrCorruptSerializedState, sn.ObjectID, len(sn.Connections), sn.Level+1))
		}
		if _, dup := objectIndex[sn.ObjectID]; dup {
			return errs.Wrap("deserialize", fmt.Errorf("%w: duplicate object_id %q", errs.ErrCorruptSerializedState, sn.ObjectID))
		}

		id := nextID
		nextID++
		connections := make(map[int]map[arenaID]struct{}, sn.Level+1)
		for l := 0; l <= sn.Level; l++ {
			connections[l] = make(map[arenaID]struct{})
		}
		nodes[id] = &hnswNode{
			id:            id,
			objectID:      sn.ObjectID,
			meaningNodeID: sn.MeaningNodeID,
			vector:        append([]float32(nil), sn.Vector...),
			level:         sn.Level,
			connections:   connections,
		}
		objectIndex[sn.ObjectID] = id
	}

	// Second pass: resolve neighbor object_ids to arena ids now that
	// every node has been allocated.
	for _, sn := range snap.Nodes {
		id := objectIndex[sn.ObjectID]
		for layer, neighborIDs := range sn.Connections {
			for _, nbObjectID := range neighborIDs {
				nbID, ok := objectIndex[nbObjectID]
				if !ok {
					return errs.Wrap("deserialize", fmt.Errorf("%w: node %q references unknown neighbor %q", errs.ErrCorruptSerializedState, sn.ObjectID, nbObjectID))
				}
				nodes[id].connections[layer][nbID] = struct{}{}
			}
		}
	}

	if err := verifyInvariants(nodes, snap.EntryPoint, objectIndex, snap.MaxLevel); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.dimensions = snap.Dimensions
	h.metricKind = snap.MetricKind
	h.config = snap.Config.withDefaults()
	h.nodes = nodes
	h.objectIndex = objectIndex
	h.nextID = nextID
	h.maxLevel = snap.MaxLevel
	if snap.EntryPoint == "" {
		h.entryPoint = nil
	} else {
		ep := objectIndex[snap.EntryPoint]
		h.entryPoint = &ep
	}

	return nil
}

// verifyInvariants checks SPEC_FULL.md §3 invariants 3–6 against a
// freshly decoded graph: connection symmetry per level, connection
// layer keys matching [0, level], entry point consistency, and maxLevel
// dominance.
func verifyInvariants(nodes map[arenaID]*hnswNode, entryObjectID string, objectIndex map[string]arenaID, maxLevel int) error {
	if entryObjectID == "" {
		if len(nodes) != 0 {
			return errs.Wrap("deserialize", fmt.Errorf("%w: empty entry point but %d nodes present", errs.ErrCorruptSerializedState, len(nodes)))
		}
		return nil
	}
	if len(nodes) == 0 {
		return errs.Wrap("deserialize", fmt.Errorf("%w: entry point set but no nodes present", errs.ErrCorruptSerializedState))
	}

	epID, ok := objectIndex[entryObjectID]
	if !ok {
		return errs.Wrap("deserialize", fmt.Errorf("%w: entry point %q not found among nodes", errs.ErrCorruptSerializedState, entryObjectID))
	}
	if nodes[epID].level != maxLevel {
		return errs.Wrap("deserialize", fmt.Errorf("%w: entry point level %d != max_level %d", errs.ErrCorruptSerializedState, nodes[epID].level, maxLevel))
	}

	for id, n := range nodes {
		if n.level > maxLevel {
			return errs.Wrap("deserialize", fmt.Errorf("%w: node %q has level %d > max_level %d", errs.ErrCorruptSerializedState, n.objectID, n.level, maxLevel))
		}
		for layer := range n.connections {
			if layer < 0 || layer > n.level {
				return errs.Wrap("deserialize", fmt.Errorf("%w: node %q has connections at layer %d outside [0,%d]", errs.ErrCorruptSerializedState, n.objectID, layer, n.level))
			}
		}
		for layer, neighbors := range n.connections {
			for nb := range neighbors {
				nbNode, ok := nodes[nb]
				if !ok {
					return errs.Wrap("deserialize", fmt.Errorf("%w: node %q references missing neighbor", errs.ErrCorruptSerializedState, n.objectID))
				}
				if _, back := nbNode.connections[layer][id]; !back {
					return errs.Wrap("deserialize", fmt.Errorf("%w: asymmetric connection between %q and %q at layer %d", errs.ErrCorruptSerializedState, n.objectID, nbNode.objectID, layer))
				}
			}
		}
	}

	return nil
}
