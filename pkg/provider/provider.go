// Package provider defines the embedding generator capability the
// dimension facade calls into for its text-path operations. The
// provider is not a subclass of anything in this module — it is a pair
// of operations plus a readable model tag, supplied by configuration.
package provider

import (
	"context"
	"errors"

	"github.com/juergengeck/meaningcore/pkg/model"
)

// ErrEmptyText is returned when Embed is asked to embed an empty string.
var ErrEmptyText = errors.New("provider: empty text")

// Provider converts text into embedding vectors. Construction of
// embeddings from raw text is a collaborator's concern (SPEC_FULL.md
// §1) — this module only depends on the interface.
type Provider interface {
	// Model reports which registered model this provider produces
	// vectors for.
	Model() model.Name

	// Embed converts a single text string into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts into vectors in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// MockProvider is a deterministic, hash-based provider used by tests
// and the CLI demo in place of a real model integration.
type MockProvider struct {
	model      model.Name
	dimensions int
}

// NewMockProvider returns a provider that deterministically maps text
// to a vector of the given width under modelName.
func NewMockProvider(modelName model.Name, dimensions int) *MockProvider {
	return &MockProvider{model: modelName, dimensions: dimensions}
}

// Model implements Provider.
func (p *MockProvider) Model() model.Name { return p.model }

// Embed implements Provider with a deterministic hash-based vector, so
// the same text always produces the same embedding across runs.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dimensions)
	var hash uint32
	for _, c := range text {
		hash = hash*31 + uint32(c)
	}
	seed := hash
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(int32(seed)) / float32(1<<31) * 2
	}
	return vec, nil
}

// EmbedBatch implements Provider by embedding each text in turn.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
