// Package store defines the narrow interface the dimension facade uses
// to reach the external content-addressed object store, plus two
// reference implementations (in-memory and SQLite-backed) that satisfy
// it. The store itself — persistence of arbitrary domain objects,
// recipe registration, multi-dimension query composition — is a
// collaborator's concern; this module depends only on the contract
// below.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// RecordType tags a persisted record's shape.
type RecordType string

const (
	TypeDimension            RecordType = "Dimension"
	TypeMeaningNode          RecordType = "MeaningNode"
	TypeMeaningDimensionValue RecordType = "MeaningDimensionValue"
	TypeCubeObject           RecordType = "CubeObject"
)

// Record is a typed, content-addressed document. Body holds the
// record's fields serialized in their canonical order (the order named
// in SPEC_FULL.md §6), so that two logically identical records always
// hash to the same id. References lists the ids of other records this
// record points to — the store adapter uses it to answer ReverseMap
// without the caller needing to maintain its own index.
type Record struct {
	Type       RecordType
	Body       []byte
	References []string
}

// ID returns the record's content hash: sha256 over the type tag and
// canonical body. Two Records with equal Type and Body always produce
// the same ID, which is what makes PutUnversioned idempotent.
func (r Record) ID() string {
	h := sha256.New()
	h.Write([]byte(r.Type))
	h.Write([]byte{0})
	h.Write(r.Body)
	return hex.EncodeToString(h.Sum(nil))
}

// Adapter is the store collaborator's contract: idempotent
// content-addressed writes, point reads, and reverse-reference lookup.
type Adapter interface {
	// PutUnversioned writes record by content hash. created reports
	// whether this call produced a new record or matched an existing
	// one with the same id.
	PutUnversioned(ctx context.Context, record Record) (id string, created bool, err error)

	// Get retrieves a record by id. ok is false when absent.
	Get(ctx context.Context, id string) (record Record, ok bool, err error)

	// ReverseMap returns, in insertion order, the ids of every stored
	// record of targetType whose References include sourceID.
	ReverseMap(ctx context.Context, sourceID string, targetType RecordType) ([]string, error)
}
