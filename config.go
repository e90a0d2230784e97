package meaning

import (
	"github.com/juergengeck/meaningcore/pkg/index"
	"github.com/juergengeck/meaningcore/pkg/metric"
	"github.com/juergengeck/meaningcore/pkg/model"
	"github.com/juergengeck/meaningcore/pkg/provider"
)

// Config selects the facade's model, metric, and collaborators. Zero
// values for Metric and HNSWConfig fall back to sane defaults; Model is
// required.
type Config struct {
	// Model is the registered embedding model this dimension indexes.
	// Use model.Custom together with CustomDimensions for an
	// unregistered model.
	Model Name

	// CustomDimensions supplies the vector width when Model is
	// model.Custom. Ignored otherwise.
	CustomDimensions int

	// Metric is the distance/similarity kernel the index uses. Zero
	// value resolves to metric.Cosine.
	Metric metric.Metric

	// HNSWConfig tunes the graph. Zero value resolves to
	// index.DefaultConfig().
	HNSWConfig index.Config

	// Provider, if set, backs the text-path operations (IndexText,
	// QueryByText). Operations that require it fail with
	// ErrNoEmbeddingProvider when it is nil.
	Provider provider.Provider
}

// Name is an alias of model.Name, so the type can be spelled
// meaning.Name; the model constants themselves (model.AllMiniLML6V2,
// model.Custom, ...) are only declared in package model.
type Name = model.Name

// withDefaults resolves Metric's zero value. HNSWConfig's own zero
// fields are resolved inside index.New, so nothing to do here.
func (c Config) withDefaults() Config {
	if c.Metric == "" {
		c.Metric = metric.Cosine
	}
	return c
}
