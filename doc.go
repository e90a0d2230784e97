// Package meaning implements the meaning dimension: a similarity-search
// facade over a content-addressed object store. It turns embedding
// vectors into queryable neighbors by pairing a probabilistic HNSW
// graph (pkg/index) with idempotent persistence through a narrow
// store.Adapter contract (pkg/store), so the same vector space can be
// rebuilt from the store on a cold start and stays consistent with
// whatever else is layered on the store underneath it.
//
// # Lifecycle
//
// A Facade starts unborn. Init resolves the configured model and
// metric, persists the dimension's own singleton record, and rebuilds
// the in-memory index from whatever MeaningDimensionValue records the
// store already holds. Every other operation that returns an error
// requires a completed Init; calling one first returns
// ErrNotInitialized. IsIndexed, Size and Dimensions report false or 0
// before Init, and Model reports the configured name.
//
// # Quick start
//
//	f := meaning.New(meaning.Config{
//	    Model:    model.AllMiniLML6V2,
//	    Metric:   metric.Cosine,
//	    Provider: provider.NewMockProvider(model.AllMiniLML6V2, 384),
//	}, store.NewMemoryStore(), meaning.NopLogger())
//
//	if err := f.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := f.IndexText(ctx, "doc-1", "the quick brown fox"); err != nil {
//	    log.Fatal(err)
//	}
//	hits, err := f.QueryByText(ctx, "a fast fox", 5, nil)
package meaning
