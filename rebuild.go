package meaning

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/juergengeck/meaningcore/pkg/store"
)

// resolvedValue is what a MeaningDimensionValue resolves to once its
// MeaningNode and linked objects have been read back from the store.
type resolvedValue struct {
	meaningNodeID string
	embedding     []float32
	objectIDs     []string
}

// rebuildRoundtrips is the ceiling on concurrent store reads during a
// rebuild; store.Adapter implementations are expected to tolerate at
// least this much fan-out (SQLiteStore opens a bounded connection pool
// for exactly this reason).
const rebuildRoundtrips = 8

// rebuildIndex walks every MeaningDimensionValue this dimension has
// persisted and re-adds the matching (object_id, embedding) pairs to
// f.idx. Per-entry problems — a missing record, a corrupt body, a
// model mismatch — are logged and skipped rather than aborting the
// rebuild; a partially rebuilt graph is still useful, an aborted one is
// not.
//
// Store reads fan out across a bounded worker pool since they are I/O
// bound and independent of one another; the graph mutation at the end
// stays on a single goroutine, since HNSW insertion order affects the
// resulting graph and the index is not built to arbitrate concurrent
// writers.
func (f *Facade) rebuildIndex(ctx context.Context) {
	f.mu.RLock()
	adapter := f.adapter
	dimensionID := f.dimensionID
	expectedModel := f.cfg.Model
	logger := f.logger.With("dimension_id", dimensionID)
	f.mu.RUnlock()

	valueIDs, err := adapter.ReverseMap(ctx, dimensionID, store.TypeMeaningDimensionValue)
	if err != nil {
		logger.Warn("rebuild: reverse map failed", "error", err)
		return
	}

	results := make([]*resolvedValue, len(valueIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildRoundtrips)

	for i, valueID := range valueIDs {
		i, valueID := i, valueID
		g.Go(func() error {
			resolved, ok := resolveValue(gctx, adapter, logger, expectedModel, valueID)
			if ok {
				results[i] = resolved
			}
			return nil
		})
	}
	_ = g.Wait() // resolveValue absorbs every error it encounters; Wait never returns non-nil here

	count := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, objectID := range r.objectIDs {
			if err := f.idx.Add(objectID, r.meaningNodeID, r.embedding); err != nil {
				logger.Warn("rebuild: failed to add object to index", "object_id", objectID, "error", err)
				continue
			}
			count++
		}
	}

	logger.Info("rebuild complete", "dimension_values", len(valueIDs), "objects_indexed", count)
}

func resolveValue(ctx context.Context, adapter store.Adapter, logger Logger, expectedModel Name, valueID string) (*resolvedValue, bool) {
	valueRec, ok, err := adapter.Get(ctx, valueID)
	if err != nil || !ok {
		logger.Warn("rebuild: missing dimension value", "id", valueID)
		return nil, false
	}
	mdv, err := decodeMeaningDimensionValue(valueRec.Body)
	if err != nil {
		logger.Warn("rebuild: corrupt dimension value", "id", valueID, "error", err)
		return nil, false
	}

	nodeRec, ok, err := adapter.Get(ctx, mdv.MeaningNodeID)
	if err != nil || !ok {
		logger.Warn("rebuild: missing meaning node", "id", mdv.MeaningNodeID)
		return nil, false
	}
	node, err := decodeMeaningNode(nodeRec.Body)
	if err != nil {
		logger.Warn("rebuild: corrupt meaning node", "id", mdv.MeaningNodeID, "error", err)
		return nil, false
	}
	if node.Model != expectedModel {
		logger.Warn("rebuild: model mismatch, skipping", "id", valueID, "expected", expectedModel, "got", node.Model)
		return nil, false
	}

	cubeObjectIDs, err := adapter.ReverseMap(ctx, valueID, store.TypeCubeObject)
	if err != nil {
		logger.Warn("rebuild: reverse map for objects failed", "value_id", valueID, "error", err)
		return nil, false
	}

	objectIDs := make([]string, 0, len(cubeObjectIDs))
	for _, cubeID := range cubeObjectIDs {
		cubeRec, ok, err := adapter.Get(ctx, cubeID)
		if err != nil || !ok {
			logger.Warn("rebuild: missing cube object record", "id", cubeID)
			continue
		}
		objectIDs = append(objectIDs, string(cubeRec.Body))
	}
	if len(objectIDs) == 0 {
		return nil, false
	}

	return &resolvedValue{meaningNodeID: mdv.MeaningNodeID, embedding: node.Embedding, objectIDs: objectIDs}, true
}
