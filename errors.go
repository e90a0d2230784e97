package meaning

import "github.com/juergengeck/meaningcore/pkg/errs"

// Re-exported so callers depending only on this package can match
// facade errors with errors.Is without importing pkg/errs directly.
var (
	ErrConfigurationError     = errs.ErrConfigurationError
	ErrNotInitialized         = errs.ErrNotInitialized
	ErrNoEmbeddingProvider    = errs.ErrNoEmbeddingProvider
	ErrInvalidEmbedding       = errs.ErrInvalidEmbedding
	ErrDimensionMismatch      = errs.ErrDimensionMismatch
	ErrModelMismatch          = errs.ErrModelMismatch
	ErrStore                  = errs.ErrStore
	ErrCorruptSerializedState = errs.ErrCorruptSerializedState
)
