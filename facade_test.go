package meaning_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/juergengeck/meaningcore/pkg/metric"
	"github.com/juergengeck/meaningcore/pkg/model"
	"github.com/juergengeck/meaningcore/pkg/provider"
	"github.com/juergengeck/meaningcore/pkg/store"

	"github.com/juergengeck/meaningcore"
)

func newTestFacade(t *testing.T, adapter store.Adapter) *meaning.Facade {
	t.Helper()
	f := meaning.New(meaning.Config{
		Model:            model.Custom,
		CustomDimensions: 8,
		Metric:           metric.Cosine,
	}, adapter, meaning.NopLogger())
	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return f
}

func unitVector(dims int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	v := make([]float32, dims)
	var norm float64
	for i := range v {
		v[i] = rng.Float32()*2 - 1
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func TestNotInitializedBeforeInit(t *testing.T) {
	f := meaning.New(meaning.Config{Model: model.Custom, CustomDimensions: 4}, store.NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := f.IndexEmbedding(ctx, "obj-1", []float32{1, 2, 3, 4}); !errors.Is(err, meaning.ErrNotInitialized) {
		t.Errorf("IndexEmbedding() error = %v, want ErrNotInitialized", err)
	}
	if _, err := f.Query(ctx, []float32{1, 2, 3, 4}, 1, nil); !errors.Is(err, meaning.ErrNotInitialized) {
		t.Errorf("Query() error = %v, want ErrNotInitialized", err)
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	f := newTestFacade(t, store.NewMemoryStore())
	ctx := context.Background()

	_, err := f.IndexEmbedding(ctx, "obj-1", []float32{1, 2, 3})
	if !errors.Is(err, meaning.ErrInvalidEmbedding) {
		t.Fatalf("IndexEmbedding() error = %v, want ErrInvalidEmbedding", err)
	}
}

func TestIndexAndQueryRoundTrip(t *testing.T) {
	f := newTestFacade(t, store.NewMemoryStore())
	ctx := context.Background()

	vecs := map[string][]float32{
		"north": {0, 1, 0, 0, 0, 0, 0, 0},
		"south": {0, -1, 0, 0, 0, 0, 0, 0},
		"east":  {1, 0, 0, 0, 0, 0, 0, 0},
	}
	for id, v := range vecs {
		if _, err := f.IndexEmbedding(ctx, id, v); err != nil {
			t.Fatalf("IndexEmbedding(%q) error = %v", id, err)
		}
	}

	if f.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", f.Size())
	}
	if !f.IsIndexed("north") {
		t.Error("IsIndexed(north) = false, want true")
	}

	results, err := f.QueryWithScores(ctx, []float32{0, 1, 0, 0, 0, 0, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("QueryWithScores() error = %v", err)
	}
	if len(results) != 1 || results[0].ObjectID != "north" {
		t.Fatalf("QueryWithScores() = %+v, want [north]", results)
	}
	if results[0].Similarity < 0.999 {
		t.Errorf("Similarity = %v, want ~1.0", results[0].Similarity)
	}
}

func TestGetValueHashIsIdempotent(t *testing.T) {
	f := newTestFacade(t, store.NewMemoryStore())
	ctx := context.Background()
	vec := unitVector(8, 1)

	id1, err := f.GetValueHash(ctx, vec)
	if err != nil {
		t.Fatalf("GetValueHash() error = %v", err)
	}
	id2, err := f.GetValueHash(ctx, vec)
	if err != nil {
		t.Fatalf("GetValueHash() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("GetValueHash() not stable: %q vs %q", id1, id2)
	}
	if f.IsIndexed("anything") {
		t.Error("GetValueHash() must not touch the index")
	}
}

func TestIndexTextRequiresProvider(t *testing.T) {
	f := newTestFacade(t, store.NewMemoryStore())
	ctx := context.Background()

	if _, err := f.IndexText(ctx, "obj-1", "hello"); !errors.Is(err, meaning.ErrNoEmbeddingProvider) {
		t.Fatalf("IndexText() error = %v, want ErrNoEmbeddingProvider", err)
	}
}

func TestIndexTextAndQueryByText(t *testing.T) {
	prov := provider.NewMockProvider(model.Custom, 8)
	f := meaning.New(meaning.Config{
		Model:            model.Custom,
		CustomDimensions: 8,
		Provider:         prov,
	}, store.NewMemoryStore(), meaning.NopLogger())
	ctx := context.Background()
	if err := f.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, err := f.IndexText(ctx, "doc-1", "the quick brown fox"); err != nil {
		t.Fatalf("IndexText() error = %v", err)
	}

	results, err := f.QueryByText(ctx, "the quick brown fox", 1, nil)
	if err != nil {
		t.Fatalf("QueryByText() error = %v", err)
	}
	if len(results) != 1 || results[0].ObjectID != "doc-1" {
		t.Fatalf("QueryByText() = %+v, want [doc-1]", results)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	f := newTestFacade(t, store.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		v := unitVector(8, int64(i))
		if _, err := f.IndexEmbedding(ctx, idOf(i), v); err != nil {
			t.Fatalf("IndexEmbedding() error = %v", err)
		}
	}

	query := unitVector(8, 0)
	before, err := f.QueryWithScores(ctx, query, 5, nil)
	if err != nil {
		t.Fatalf("QueryWithScores() error = %v", err)
	}

	snap, err := f.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	f2 := newTestFacade(t, store.NewMemoryStore())
	if err := f2.Deserialize(snap); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	after, err := f2.QueryWithScores(ctx, query, 5, nil)
	if err != nil {
		t.Fatalf("QueryWithScores() after deserialize error = %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ObjectID != after[i].ObjectID {
			t.Errorf("result %d changed: %q vs %q", i, before[i].ObjectID, after[i].ObjectID)
		}
	}
}

func TestRebuildAcrossRestart(t *testing.T) {
	adapter := store.NewMemoryStore()
	ctx := context.Background()

	f1 := meaning.New(meaning.Config{Model: model.Custom, CustomDimensions: 16}, adapter, meaning.NopLogger())
	if err := f1.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	const n = 100
	for i := 0; i < n; i++ {
		if _, err := f1.IndexEmbedding(ctx, idOf(i), unitVector(16, int64(i))); err != nil {
			t.Fatalf("IndexEmbedding(%d) error = %v", i, err)
		}
	}

	query := unitVector(16, 0)
	before, err := f1.Query(ctx, query, 10, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	// Simulate a cold restart: a fresh facade over the same store, same
	// configuration, so it resolves the same dimension id and rebuilds
	// from the persisted MeaningDimensionValue/CubeObject records alone.
	f2 := meaning.New(meaning.Config{Model: model.Custom, CustomDimensions: 16}, adapter, meaning.NopLogger())
	if err := f2.Init(ctx); err != nil {
		t.Fatalf("Init() on restart error = %v", err)
	}

	if f2.Size() != n {
		t.Fatalf("Size() after rebuild = %d, want %d", f2.Size(), n)
	}

	after, err := f2.Query(ctx, query, 10, nil)
	if err != nil {
		t.Fatalf("Query() after rebuild error = %v", err)
	}

	agreement := 0
	afterSet := make(map[string]bool, len(after))
	for _, id := range after {
		afterSet[id] = true
	}
	for _, id := range before {
		if afterSet[id] {
			agreement++
		}
	}
	if agreement < 9 {
		t.Errorf("top-10 agreement after rebuild = %d/10, want >= 9", agreement)
	}
}

// TestModelMismatchSkippedDuringRebuild indexes one vector under each
// of two same-width models through the same underlying store (the
// Dimension singleton record, and so the dimension id reverse-map
// anchors on, does not vary with Model). A facade rebuilding under
// just one of those models should recover only the matching entry.
func TestModelMismatchSkippedDuringRebuild(t *testing.T) {
	adapter := store.NewMemoryStore()
	ctx := context.Background()

	fA := meaning.New(meaning.Config{Model: model.AllMiniLML6V2}, adapter, meaning.NopLogger())
	if err := fA.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := fA.IndexEmbedding(ctx, "obj-a", unitVector(384, 1)); err != nil {
		t.Fatalf("IndexEmbedding() error = %v", err)
	}

	fB := meaning.New(meaning.Config{Model: model.BGESmallEnV15}, adapter, meaning.NopLogger())
	if err := fB.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := fB.IndexEmbedding(ctx, "obj-b", unitVector(384, 2)); err != nil {
		t.Fatalf("IndexEmbedding() error = %v", err)
	}

	fC := meaning.New(meaning.Config{Model: model.AllMiniLML6V2}, adapter, meaning.NopLogger())
	if err := fC.Init(ctx); err != nil {
		t.Fatalf("Init() on restart error = %v", err)
	}
	if fC.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (BGESmallEnV15 entry should be skipped)", fC.Size())
	}
	if !fC.IsIndexed("obj-a") {
		t.Error("obj-a should have been recovered")
	}
	if fC.IsIndexed("obj-b") {
		t.Error("obj-b should have been skipped as a model mismatch")
	}
}

func idOf(i int) string {
	return "obj-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}
