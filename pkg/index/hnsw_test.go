package index

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/juergengeck/meaningcore/pkg/errs"
	"github.com/juergengeck/meaningcore/pkg/metric"
)

func threshold(v float64) *float64 { return &v }

// TestBasicRecall is end-to-end scenario 1 from SPEC_FULL.md §8: five
// known 2-D vectors under cosine metric, query (1,0) with k=2,
// threshold=0.8 should return (1,0) then (0.9,0.1).
func TestBasicRecall(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())

	vectors := map[string][]float32{
		"east":      {1, 0},
		"north":     {0, 1},
		"west":      {-1, 0},
		"south":     {0, -1},
		"near-east": {0.9, 0.1},
	}
	for id, v := range vectors {
		if err := idx.Add(id, "mn-"+id, v); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	results, err := idx.Search([]float32{1, 0}, 2, threshold(0.8))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].ObjectID != "east" {
		t.Errorf("results[0].ObjectID = %q, want east", results[0].ObjectID)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-6 {
		t.Errorf("results[0].Similarity = %v, want ~1.0", results[0].Similarity)
	}
	if results[1].ObjectID != "near-east" {
		t.Errorf("results[1].ObjectID = %q, want near-east", results[1].ObjectID)
	}
	if math.Abs(results[1].Similarity-0.9939) > 1e-3 {
		t.Errorf("results[1].Similarity = %v, want ~0.9939", results[1].Similarity)
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	idx := New(3, metric.Cosine, DefaultConfig())
	if err := idx.Add("a", "mn-a", []float32{1, 2}); err == nil {
		t.Fatal("expected DimensionMismatch error")
	}
	if _, err := idx.Search([]float32{1, 2}, 1, nil); err == nil {
		t.Fatal("expected DimensionMismatch error")
	}
}

func TestNonFiniteEmbeddingRejected(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())

	if err := idx.Add("a", "mn-a", []float32{1, float32(math.NaN())}); !errors.Is(err, errs.ErrInvalidEmbedding) {
		t.Fatalf("Add() error = %v, want ErrInvalidEmbedding", err)
	}
	if err := idx.Add("a", "mn-a", []float32{}); !errors.Is(err, errs.ErrInvalidEmbedding) {
		t.Fatalf("Add() error = %v, want ErrInvalidEmbedding for empty vector", err)
	}
	if idx.Size() != 0 {
		t.Fatalf("size = %d, want 0 after rejected inserts", idx.Size())
	}

	if err := idx.Add("seed", "mn-seed", []float32{1, 0}); err != nil {
		t.Fatalf("Add(seed) error = %v", err)
	}
	if _, err := idx.Search([]float32{1, float32(math.Inf(1))}, 1, nil); !errors.Is(err, errs.ErrInvalidEmbedding) {
		t.Fatalf("Search() error = %v, want ErrInvalidEmbedding", err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	if err := idx.Add("a", "mn-a", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Fatalf("size = %d, want 1", idx.Size())
	}
	if err := idx.Add("a", "mn-a-again", []float32{0, 1}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Fatalf("size = %d, want 1 after repeat insert", idx.Size())
	}
}

func TestEmptyGraphBoundary(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	results, err := idx.Search([]float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %+v", results)
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d, want 0", idx.Size())
	}
	if idx.Has("anything") {
		t.Error("Has() true on empty graph")
	}
}

func TestSingleElementGraph(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	if err := idx.Add("only", "mn-only", []float32{1, 1}); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search([]float32{1, 1}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ObjectID != "only" {
		t.Fatalf("unexpected results: %+v", results)
	}

	if removed := idx.Remove("only"); !removed {
		t.Fatal("Remove() returned false for present element")
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d after removing only element, want 0", idx.Size())
	}
}

func TestZeroMagnitudeVectorIndexable(t *testing.T) {
	idx := New(3, metric.Cosine, DefaultConfig())
	if err := idx.Add("zero", "mn-zero", []float32{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search([]float32{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Similarity != 0 {
		t.Errorf("similarity = %v, want 0 for zero-magnitude vector under cosine", results[0].Similarity)
	}
}

func TestKExceedingSizeReturnsAll(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	idx.Add("a", "mn-a", []float32{1, 0})
	idx.Add("b", "mn-b", []float32{0, 1})

	results, err := idx.Search([]float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want all 2", len(results))
	}
}

func TestInsertRemoveInsertCycle(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	idx.Add("a", "mn-a", []float32{1, 0})
	idx.Remove("a")
	if idx.Has("a") {
		t.Fatal("Has() true after remove")
	}
	if err := idx.Add("a", "mn-a-2", []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if !idx.Has("a") {
		t.Fatal("Has() false after re-insert")
	}
}

func TestConnectionSymmetry(t *testing.T) {
	idx := New(4, metric.Euclidean, Config{M: 4, EfConstruction: 32, EfSearch: 16})
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 150; i++ {
		v := make([]float32, 4)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		if err := idx.Add(idForIndex(i), idForIndex(i)+"-mn", v); err != nil {
			t.Fatal(err)
		}
	}

	for _, n := range idx.nodes {
		for layer, neighbors := range n.connections {
			for nb := range neighbors {
				nbNode := idx.nodes[nb]
				if _, ok := nbNode.connections[layer][n.id]; !ok {
					t.Fatalf("asymmetric connection: %s -> %s at layer %d has no back-edge", n.objectID, nbNode.objectID, layer)
				}
			}
		}
	}
}

func TestConnectionLayerKeysMatchLevel(t *testing.T) {
	idx := New(4, metric.Cosine, DefaultConfig())
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 40; i++ {
		v := make([]float32, 4)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		idx.Add(idForIndex(i), idForIndex(i)+"-mn", v)
	}
	for _, n := range idx.nodes {
		if len(n.connections) != n.level+1 {
			t.Fatalf("node %s has %d connection layers, want %d", n.objectID, len(n.connections), n.level+1)
		}
		for l := 0; l <= n.level; l++ {
			if _, ok := n.connections[l]; !ok {
				t.Fatalf("node %s missing layer %d", n.objectID, l)
			}
		}
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	idx := New(4, metric.Cosine, DefaultConfig())
	rng := rand.New(rand.NewSource(11))
	var vecs [][]float32
	for i := 0; i < 60; i++ {
		v := make([]float32, 4)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vecs = append(vecs, v)
		idx.Add(idForIndex(i), idForIndex(i)+"-mn", v)
	}

	data, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	restored := New(4, metric.Cosine, DefaultConfig())
	if err := restored.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	if restored.Size() != idx.Size() {
		t.Fatalf("restored size = %d, want %d", restored.Size(), idx.Size())
	}

	query := vecs[0]
	before, _ := idx.Search(query, 5, nil)
	after, _ := restored.Search(query, 5, nil)
	if len(before) != len(after) {
		t.Fatalf("result count mismatch: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ObjectID != after[i].ObjectID {
			t.Errorf("result[%d] ObjectID mismatch: %q vs %q", i, before[i].ObjectID, after[i].ObjectID)
		}
		if math.Abs(before[i].Similarity-after[i].Similarity) > 1e-9 {
			t.Errorf("result[%d] Similarity mismatch: %v vs %v", i, before[i].Similarity, after[i].Similarity)
		}
	}
}

func TestDeserializeRejectsCorruptState(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	if err := idx.Deserialize([]byte("not a gob stream")); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}

func TestThresholdZeroIsInclusive(t *testing.T) {
	idx := New(2, metric.Cosine, DefaultConfig())
	idx.Add("orth", "mn-orth", []float32{0, 1})
	results, err := idx.Search([]float32{1, 0}, 1, threshold(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected orthogonal vector (sim=0) to pass threshold=0, got %+v", results)
	}
}

func idForIndex(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	if i < len(letters) {
		return string(letters[i])
	}
	return string(letters[i%len(letters)]) + string(letters[(i/len(letters))%len(letters)])
}
