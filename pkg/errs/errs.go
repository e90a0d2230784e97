// Package errs defines the error taxonomy shared across the meaning
// dimension's components: the metric kernel, the model registry, the
// HNSW index, and the dimension facade.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers should match these with errors.Is, since
// CoreError and index-level wrapping preserve the chain via Unwrap.
var (
	// ErrConfigurationError marks an invalid configuration, e.g. a
	// "custom" model declared without a positive CustomDimensions.
	ErrConfigurationError = errors.New("configuration error")

	// ErrNotInitialized is returned by facade operations invoked before
	// a successful Init.
	ErrNotInitialized = errors.New("dimension not initialized")

	// ErrNoEmbeddingProvider is returned by text-path operations when no
	// embedding provider was configured.
	ErrNoEmbeddingProvider = errors.New("no embedding provider configured")

	// ErrInvalidEmbedding marks a vector that is not a sequence, is
	// empty, contains a non-finite element, or has the wrong width.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrDimensionMismatch marks a vector whose width differs from the
	// index's configured dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrModelMismatch is returned by explicit model comparisons; the
	// rebuild path downgrades a mismatch to a logged skip instead.
	ErrModelMismatch = errors.New("model mismatch")

	// ErrStore wraps a failure surfaced by the store collaborator.
	ErrStore = errors.New("store error")

	// ErrCorruptSerializedState marks an index invariant violated while
	// deserializing a snapshot.
	ErrCorruptSerializedState = errors.New("corrupt serialized state")
)

// CoreError wraps a sentinel error with the operation name that produced
// it, so logs and error messages carry context without losing errors.Is
// compatibility with the sentinel.
type CoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("meaning: %v", e.Err)
	}
	return fmt.Sprintf("meaning: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is reports whether the wrapped error matches target.
func (e *CoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Wrap attaches an operation name to err. Returns nil if err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CoreError{Op: op, Err: err}
}
