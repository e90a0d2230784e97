package meaning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juergengeck/meaningcore/pkg/errs"
	"github.com/juergengeck/meaningcore/pkg/index"
	"github.com/juergengeck/meaningcore/pkg/metric"
	"github.com/juergengeck/meaningcore/pkg/model"
	"github.com/juergengeck/meaningcore/pkg/store"
)

// lifecycleState is the facade's three-state machine: unborn until
// Init is called, initializing while the index is being built, ready
// once queries and inserts are safe to accept.
type lifecycleState int

const (
	stateUnborn lifecycleState = iota
	stateInitializing
	stateReady
)

// Facade is the meaning dimension: an HNSW index over embeddings, kept
// consistent with a content-addressed store. A Facade is safe for
// concurrent use after Init returns.
type Facade struct {
	mu sync.RWMutex

	cfg      Config
	adapter  store.Adapter
	logger   Logger
	modelInf model.Info

	idx         *index.HNSW
	dimensionID string
	state       lifecycleState
}

// New constructs a Facade in its unborn state. cfg.Model is required;
// everything else has a workable default. adapter is the content-
// addressed store backing persistence; it may be nil, in which case a
// fresh store.MemoryStore is used. logger may be nil, in which case
// NopLogger is used.
func New(cfg Config, adapter store.Adapter, logger Logger) *Facade {
	if adapter == nil {
		adapter = store.NewMemoryStore()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Facade{cfg: cfg.withDefaults(), adapter: adapter, logger: logger}
}

// requireReady returns ErrNotInitialized unless Init has completed.
func (f *Facade) requireReady() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state != stateReady {
		return errs.Wrap("require_ready", errs.ErrNotInitialized)
	}
	return nil
}

// Init resolves the configured model, persists the dimension's own
// singleton record, allocates the index, and rebuilds it from whatever
// the store already holds. Init is idempotent: calling it again once
// ready is a no-op.
func (f *Facade) Init(ctx context.Context) error {
	f.mu.Lock()
	if f.state == stateReady {
		f.mu.Unlock()
		return nil
	}
	f.state = stateInitializing
	f.mu.Unlock()

	info, err := model.Resolve(f.cfg.Model, f.cfg.CustomDimensions)
	if err != nil {
		return errs.Wrap("init", err)
	}
	if !f.cfg.Metric.Valid() {
		return errs.Wrap("init", fmt.Errorf("%w: unknown metric %q", errs.ErrConfigurationError, f.cfg.Metric))
	}

	dimID, _, err := f.adapter.PutUnversioned(ctx, store.Record{
		Type: store.TypeDimension,
		Body: encodeDimension(newDimensionSingleton()),
	})
	if err != nil {
		return errs.Wrap("init", fmt.Errorf("%w: %v", errs.ErrStore, err))
	}

	idx := index.New(info.Dimensions, f.cfg.Metric, f.cfg.HNSWConfig)

	f.mu.Lock()
	f.modelInf = info
	f.dimensionID = dimID
	f.idx = idx
	f.mu.Unlock()

	f.rebuildIndex(ctx)

	f.mu.Lock()
	f.state = stateReady
	f.mu.Unlock()

	f.logger.Info("meaning dimension ready", "dimension_id", dimID, "model", info.Name, "dimensions", info.Dimensions, "size", idx.Size())

	return nil
}

// IndexEmbedding persists vector as a MeaningNode under objectID and
// adds it to the index, returning the MeaningDimensionValue id. Writes
// land in the store before the index is updated, so a store failure
// leaves no in-memory trace.
func (f *Facade) IndexEmbedding(ctx context.Context, objectID string, vector []float32) (string, error) {
	if err := f.requireReady(); err != nil {
		return "", err
	}

	f.mu.RLock()
	dims := f.idx.Dimensions()
	modelName := f.cfg.Model
	dimensionID := f.dimensionID
	f.mu.RUnlock()

	if err := metric.ValidateEmbedding(vector, dims); err != nil {
		return "", errs.Wrap("index_embedding", err)
	}

	nodeID, err := putMeaningNode(ctx, f.adapter, MeaningNode{
		Embedding:  vector,
		Model:      modelName,
		Dimensions: len(vector),
	})
	if err != nil {
		return "", errs.Wrap("index_embedding", err)
	}

	valueID, err := putMeaningDimensionValue(ctx, f.adapter, MeaningDimensionValue{
		DimensionID:   dimensionID,
		MeaningNodeID: nodeID,
		CreatedUnixMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return "", errs.Wrap("index_embedding", err)
	}

	if _, err := f.linkCubeObject(ctx, objectID, valueID); err != nil {
		return "", errs.Wrap("index_embedding", err)
	}

	f.mu.Lock()
	addErr := f.idx.Add(objectID, nodeID, vector)
	f.mu.Unlock()
	if addErr != nil {
		return "", errs.Wrap("index_embedding", addErr)
	}

	return valueID, nil
}

// IndexText embeds text through the configured Provider and indexes
// the result, recording the source text on the MeaningNode. Fails with
// ErrNoEmbeddingProvider if no Provider was configured.
func (f *Facade) IndexText(ctx context.Context, objectID string, text string) (string, error) {
	if err := f.requireReady(); err != nil {
		return "", err
	}

	f.mu.RLock()
	prov := f.cfg.Provider
	dims := f.idx.Dimensions()
	modelName := f.cfg.Model
	dimensionID := f.dimensionID
	f.mu.RUnlock()

	if prov == nil {
		return "", errs.Wrap("index_text", errs.ErrNoEmbeddingProvider)
	}

	vector, err := prov.Embed(ctx, text)
	if err != nil {
		return "", errs.Wrap("index_text", err)
	}
	if err := metric.ValidateEmbedding(vector, dims); err != nil {
		return "", errs.Wrap("index_text", err)
	}

	nodeID, err := putMeaningNode(ctx, f.adapter, MeaningNode{
		Embedding:   vector,
		Model:       modelName,
		Dimensions:  len(vector),
		SourceText:  text,
		ContentType: "text",
	})
	if err != nil {
		return "", errs.Wrap("index_text", err)
	}

	valueID, err := putMeaningDimensionValue(ctx, f.adapter, MeaningDimensionValue{
		DimensionID:   dimensionID,
		MeaningNodeID: nodeID,
		CreatedUnixMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return "", errs.Wrap("index_text", err)
	}

	if _, err := f.linkCubeObject(ctx, objectID, valueID); err != nil {
		return "", errs.Wrap("index_text", err)
	}

	f.mu.Lock()
	addErr := f.idx.Add(objectID, nodeID, vector)
	f.mu.Unlock()
	if addErr != nil {
		return "", errs.Wrap("index_text", addErr)
	}

	return valueID, nil
}

// linkCubeObject records that objectID sits at dimension value
// valueID, so a future rebuild can recover the (objectID, embedding)
// pairing from the store alone.
func (f *Facade) linkCubeObject(ctx context.Context, objectID, valueID string) (string, error) {
	id, _, err := f.adapter.PutUnversioned(ctx, store.Record{
		Type:       store.TypeCubeObject,
		Body:       []byte(objectID),
		References: []string{valueID},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrStore, err)
	}
	return id, nil
}

// GetValueHash returns a stable MeaningDimensionValue id for vector,
// persisting the underlying MeaningNode and value but without touching
// the index or linking any object to it. The value's creation time is
// fixed at 0, so the id depends only on vector, model and dimension and
// repeated calls return the same id; IndexEmbedding stamps its values
// with the current time, so its ids differ from this one.
func (f *Facade) GetValueHash(ctx context.Context, vector []float32) (string, error) {
	if err := f.requireReady(); err != nil {
		return "", err
	}

	f.mu.RLock()
	dims := f.idx.Dimensions()
	modelName := f.cfg.Model
	dimensionID := f.dimensionID
	f.mu.RUnlock()

	if err := metric.ValidateEmbedding(vector, dims); err != nil {
		return "", errs.Wrap("get_value_hash", err)
	}

	nodeID, err := putMeaningNode(ctx, f.adapter, MeaningNode{Embedding: vector, Model: modelName, Dimensions: len(vector)})
	if err != nil {
		return "", errs.Wrap("get_value_hash", err)
	}

	valueID, err := putMeaningDimensionValue(ctx, f.adapter, MeaningDimensionValue{
		DimensionID:   dimensionID,
		MeaningNodeID: nodeID,
		CreatedUnixMs: 0,
	})
	if err != nil {
		return "", errs.Wrap("get_value_hash", err)
	}

	return valueID, nil
}

// Query returns the object_ids of the k nearest indexed vectors to
// query, most similar first.
func (f *Facade) Query(ctx context.Context, query []float32, k int, threshold *float64) ([]string, error) {
	results, err := f.QueryWithScores(ctx, query, k, threshold)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ObjectID
	}
	return ids, nil
}

// QueryWithScores is Query but also reports each hit's similarity.
func (f *Facade) QueryWithScores(ctx context.Context, query []float32, k int, threshold *float64) ([]index.Result, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	idx := f.idx
	f.mu.RUnlock()

	results, err := idx.Search(query, k, threshold)
	if err != nil {
		return nil, errs.Wrap("query", err)
	}
	return results, nil
}

// QueryByText embeds text through the configured Provider and queries
// the index with the result.
func (f *Facade) QueryByText(ctx context.Context, text string, k int, threshold *float64) ([]index.Result, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	prov := f.cfg.Provider
	f.mu.RUnlock()

	if prov == nil {
		return nil, errs.Wrap("query_by_text", errs.ErrNoEmbeddingProvider)
	}

	vector, err := prov.Embed(ctx, text)
	if err != nil {
		return nil, errs.Wrap("query_by_text", err)
	}

	return f.QueryWithScores(ctx, vector, k, threshold)
}

// IsIndexed reports whether objectID currently has a live entry in the
// index.
func (f *Facade) IsIndexed(objectID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.idx == nil {
		return false
	}
	return f.idx.Has(objectID)
}

// Size returns the number of objects currently indexed.
func (f *Facade) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.idx == nil {
		return 0
	}
	return f.idx.Size()
}

// Model returns the configured embedding model.
func (f *Facade) Model() model.Name {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg.Model
}

// Dimensions returns the index's vector width, resolved during Init.
func (f *Facade) Dimensions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.idx == nil {
		return 0
	}
	return f.idx.Dimensions()
}

// Serialize snapshots the in-memory index. The store, not this
// snapshot, is the dimension's durable source of truth; Serialize
// exists to cache a warm graph across a fast restart.
func (f *Facade) Serialize() ([]byte, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	idx := f.idx
	f.mu.RUnlock()
	return idx.Serialize()
}

// Deserialize replaces the in-memory index with a previously
// serialized snapshot. Callers that want index contents to reflect
// writes made to the store since the snapshot was taken should call
// RebuildIndex afterward instead.
func (f *Facade) Deserialize(data []byte) error {
	if err := f.requireReady(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idx.Deserialize(data)
}

// RebuildIndex discards the in-memory index and repopulates it from
// the store's MeaningDimensionValue records. It is exported so a
// caller recovering from a suspected in-memory/store divergence can
// force a resync without restarting the process.
func (f *Facade) RebuildIndex(ctx context.Context) error {
	if err := f.requireReady(); err != nil {
		return err
	}

	f.mu.Lock()
	f.idx = index.New(f.modelInf.Dimensions, f.cfg.Metric, f.cfg.HNSWConfig)
	f.mu.Unlock()

	f.rebuildIndex(ctx)
	return nil
}
