// Package model implements the closed enumeration of known embedding
// models: their dimensionality, token limits, and provider tag, plus
// the compatibility check used when two models must agree.
package model

import (
	"fmt"

	"github.com/juergengeck/meaningcore/pkg/errs"
)

// Name identifies a known embedding model. "custom" is the one open
// variant, carrying a caller-supplied dimensionality.
type Name string

const (
	TextEmbedding3Small Name = "text-embedding-3-small"
	TextEmbedding3Large Name = "text-embedding-3-large"
	TextEmbeddingAda002 Name = "text-embedding-ada-002"
	AllMiniLML6V2       Name = "all-MiniLM-L6-v2"
	AllMpnetBaseV2      Name = "all-mpnet-base-v2"
	BGESmallEnV15       Name = "bge-small-en-v1.5"
	BGEBaseEnV15        Name = "bge-base-en-v1.5"
	BGELargeEnV15       Name = "bge-large-en-v1.5"
	NomicEmbedText      Name = "nomic-embed-text"
	NomicEmbedTextV15   Name = "nomic-embed-text-v1.5"
	Custom              Name = "custom"
)

// Info describes a registry entry.
type Info struct {
	Name       Name
	Dimensions int
	MaxTokens  int
	Provider   string
}

// registry is the closed table of known models. Custom carries 0/0
// placeholders; its real dimensionality is supplied at construction via
// Resolve.
var registry = map[Name]Info{
	TextEmbedding3Small: {TextEmbedding3Small, 1536, 8191, "openai"},
	TextEmbedding3Large: {TextEmbedding3Large, 3072, 8191, "openai"},
	TextEmbeddingAda002: {TextEmbeddingAda002, 1536, 8191, "openai"},
	AllMiniLML6V2:       {AllMiniLML6V2, 384, 512, "huggingface"},
	AllMpnetBaseV2:      {AllMpnetBaseV2, 768, 512, "huggingface"},
	BGESmallEnV15:       {BGESmallEnV15, 384, 512, "huggingface"},
	BGEBaseEnV15:        {BGEBaseEnV15, 768, 512, "huggingface"},
	BGELargeEnV15:       {BGELargeEnV15, 1024, 512, "huggingface"},
	NomicEmbedText:      {NomicEmbedText, 768, 8192, "local"},
	NomicEmbedTextV15:   {NomicEmbedTextV15, 768, 8192, "huggingface"},
	Custom:              {Custom, 0, 0, "custom"},
}

// Lookup returns the registry entry for name and whether it is known.
func Lookup(name Name) (Info, bool) {
	info, ok := registry[name]
	return info, ok
}

// Resolve returns the effective Info for name, resolving "custom" against
// customDimensions. It fails with ErrConfigurationError when name is
// "custom" and customDimensions is not positive, and when name is not a
// known model at all.
func Resolve(name Name, customDimensions int) (Info, error) {
	info, ok := registry[name]
	if !ok {
		return Info{}, errs.Wrap("resolve_model", fmt.Errorf("%w: unknown model %q", errs.ErrConfigurationError, name))
	}

	if name == Custom {
		if customDimensions <= 0 {
			return Info{}, errs.Wrap("resolve_model", fmt.Errorf("%w: custom model requires custom_dimensions > 0", errs.ErrConfigurationError))
		}
		info.Dimensions = customDimensions
		return info, nil
	}

	return info, nil
}

// ValidateCompatibility fails with ErrModelMismatch unless a == b.
func ValidateCompatibility(a, b Name) error {
	if a != b {
		return errs.Wrap("validate_model_compatibility", fmt.Errorf("%w: %q vs %q", errs.ErrModelMismatch, a, b))
	}
	return nil
}

// Known returns every registered model name, for enumeration in tests
// and CLI help text.
func Known() []Name {
	names := make([]Name, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
